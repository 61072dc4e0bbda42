// Package llmtest provides an in-memory Model for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/dvloznov/finansmanager/internal/llm"
)

// ReplyFunc produces the model reply for a message. history holds the turns
// before message.
type ReplyFunc func(cfg llm.ConversationConfig, history []llm.Turn, message string) (string, error)

// Model is a scripted llm.Model. The zero value replies "{}".
type Model struct {
	// Reply answers conversation messages.
	Reply ReplyFunc
	// GenerateFunc answers one-shot prompts.
	GenerateFunc func(prompt string) (string, error)
	// StartErr fails StartConversation when set.
	StartErr error

	mu            sync.Mutex
	conversations []*Conversation
	prompts       []string
}

var _ llm.Model = (*Model)(nil)

// StartConversation implements llm.Model.
func (m *Model) StartConversation(ctx context.Context, cfg llm.ConversationConfig, history []llm.Turn) (llm.Conversation, error) {
	if m.StartErr != nil {
		return nil, m.StartErr
	}
	c := &Conversation{model: m, cfg: cfg, turns: append([]llm.Turn{}, history...)}
	m.mu.Lock()
	m.conversations = append(m.conversations, c)
	m.mu.Unlock()
	return c, nil
}

// Generate implements llm.Model.
func (m *Model) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(prompt)
	}
	return "", nil
}

// Conversations returns every conversation started so far.
func (m *Model) Conversations() []*Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Conversation{}, m.conversations...)
}

// Prompts returns every one-shot prompt received so far.
func (m *Model) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.prompts...)
}

// Conversation is the fake conversation handed out by Model.
type Conversation struct {
	model *Model
	cfg   llm.ConversationConfig

	mu    sync.Mutex
	turns []llm.Turn
}

// Config returns the configuration the conversation was started with.
func (c *Conversation) Config() llm.ConversationConfig { return c.cfg }

// Send implements llm.Conversation. Failed sends leave the history untouched.
func (c *Conversation) Send(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	reply := "{}"
	if c.model.Reply != nil {
		var err error
		reply, err = c.model.Reply(c.cfg, append([]llm.Turn{}, c.turns...), message)
		if err != nil {
			return "", err
		}
	}
	c.turns = append(c.turns,
		llm.Turn{Role: llm.RoleUser, Text: message},
		llm.Turn{Role: llm.RoleModel, Text: reply},
	)
	return reply, nil
}

// History implements llm.Conversation.
func (c *Conversation) History() []llm.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Turn{}, c.turns...)
}
