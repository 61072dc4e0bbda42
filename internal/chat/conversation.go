// Package chat is the client side of the chat: it builds the instruction
// from the user's profile, calls the proxy and turns the reply into chat
// history entries.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/interpreter"
	"github.com/dvloznov/finansmanager/internal/nlu"
	"github.com/dvloznov/finansmanager/internal/store"
)

// Fixed chat messages.
const (
	WelcomeMessage     = "Welcome to FinansManager! The NLU system is now running on the Advanced Intent/Entity model."
	PlaceholderMessage = "...Running Advanced NLU..."
	systemErrorPrefix  = "System Error: "
	followUpPrefix     = "Follow Up: "
)

var (
	// ErrBusy is returned when a message is submitted while another is in flight.
	ErrBusy = errors.New("a message is already being processed")
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNoProfile is returned before setup has been completed.
	ErrNoProfile = errors.New("complete setup before chatting")
)

// Conversation is one user's chat history and the single in-flight message.
type Conversation struct {
	userID   string
	proxy    Proxy
	profiles store.ProfileRepository
	interp   *interpreter.Interpreter
	log      zerolog.Logger

	mu      sync.Mutex
	busy    bool
	entries []domain.ChatEntry
	nextID  int64
}

// NewConversation starts a history holding the welcome message.
func NewConversation(userID string, proxy Proxy, profiles store.ProfileRepository, interp *interpreter.Interpreter, log zerolog.Logger) *Conversation {
	c := &Conversation{
		userID:   userID,
		proxy:    proxy,
		profiles: profiles,
		interp:   interp,
		log:      log.With().Str("user_id", userID).Logger(),
	}
	c.appendLocked(domain.EntrySystem, WelcomeMessage)
	return c
}

// Entries returns a copy of the history.
func (c *Conversation) Entries() []domain.ChatEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ChatEntry{}, c.entries...)
}

// Busy reports whether a message is in flight.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Submit sends one message and returns the entry that replaced the
// placeholder. Input rejected before sending returns an error and leaves the
// history untouched. Failures after that are reported as error entries; the
// returned error is then non-nil only for a failed transaction write.
func (c *Conversation) Submit(ctx context.Context, text string) (domain.ChatEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatEntry{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return domain.ChatEntry{}, ErrBusy
	}
	c.busy = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	profile, err := c.profiles.GetProfile(ctx, c.userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ChatEntry{}, ErrNoProfile
		}
		return domain.ChatEntry{}, fmt.Errorf("Submit: loading profile: %w", err)
	}
	contract := nlu.ContractFor(profile)

	c.mu.Lock()
	c.appendLocked(domain.EntryUser, text)
	placeholder := c.appendLocked(domain.EntrySystem, PlaceholderMessage)
	c.mu.Unlock()

	result, commitErr := c.process(ctx, contract, text)

	c.mu.Lock()
	result.ID = placeholder
	c.replaceLocked(result)
	c.mu.Unlock()

	return result, commitErr
}

func (c *Conversation) process(ctx context.Context, contract nlu.Contract, text string) (domain.ChatEntry, error) {
	env, err := c.proxy.ProcessChat(ctx, domain.ProcessChatRequest{
		UserID:            c.userID,
		SystemInstruction: nlu.BuildInstruction(contract, text),
		UserMessage:       text,
	})
	if err != nil {
		c.log.Error().Err(err).Msg("Chat proxy call failed")
		return systemError(err.Error()), nil
	}

	if env.Status != domain.StatusSuccess {
		var clar domain.Clarification
		if len(env.ParsedData) > 0 && json.Unmarshal(env.ParsedData, &clar) == nil && clar.Type == domain.ClarificationType {
			return domain.ChatEntry{Type: domain.EntryAI, Message: followUpPrefix + clar.Issue}, nil
		}
		msg := env.Message
		if msg == "" {
			msg = "the proxy returned an error"
		}
		return systemError(msg), nil
	}

	res, err := nlu.Decode(env.ParsedData)
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to decode NLU result")
		return systemError(err.Error()), nil
	}

	return c.interp.Interpret(ctx, interpreter.Context{UserID: c.userID, Contract: contract}, res)
}

func (c *Conversation) appendLocked(t domain.EntryType, msg string) int64 {
	c.nextID++
	c.entries = append(c.entries, domain.ChatEntry{ID: c.nextID, Type: t, Message: msg})
	return c.nextID
}

func (c *Conversation) replaceLocked(e domain.ChatEntry) {
	for i := range c.entries {
		if c.entries[i].ID == e.ID {
			c.entries[i] = e
			return
		}
	}
}

func systemError(msg string) domain.ChatEntry {
	return domain.ChatEntry{Type: domain.EntryError, Message: systemErrorPrefix + msg}
}
