package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dvloznov/finansmanager/internal/llm"
	"github.com/dvloznov/finansmanager/internal/nlu"
)

// Policy decides what happens when a message arrives with a system
// instruction that differs from the one its session was created with.
type Policy string

const (
	// PolicyRefresh restarts the conversation with the new instruction and
	// carries the history over.
	PolicyRefresh Policy = "refresh"
	// PolicyPin keeps the instruction the session was created with.
	PolicyPin Policy = "pin"
	// PolicyReject fails the message with ErrConfigMismatch.
	PolicyReject Policy = "reject"
)

// ParsePolicy validates a policy name. Empty means PolicyRefresh.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyRefresh, nil
	case PolicyRefresh, PolicyPin, PolicyReject:
		return p, nil
	default:
		return "", fmt.Errorf("ParsePolicy: unknown session policy %q", s)
	}
}

// Config is the versioned configuration of a conversation.
type Config struct {
	Model             string
	SystemInstruction string
	ResponseMIMEType  string
	// Version fingerprints the fields above. The per-message tail of an
	// NLU instruction is left out, so consecutive messages under one profile
	// share a version.
	Version string
}

// NewConfig builds a JSON-mode configuration and computes its version.
func NewConfig(model, systemInstruction string) Config {
	c := Config{
		Model:             model,
		SystemInstruction: systemInstruction,
		ResponseMIMEType:  llm.JSONMIMEType,
	}
	c.Version = fingerprint(c.Model, c.ResponseMIMEType, nlu.StableInstruction(c.SystemInstruction))
	return c
}

func (c Config) conversation() llm.ConversationConfig {
	return llm.ConversationConfig{
		Model:             c.Model,
		SystemInstruction: c.SystemInstruction,
		ResponseMIMEType:  c.ResponseMIMEType,
	}
}

func fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
