// Package llm wraps the hosted language model behind small interfaces so the
// session store and the advice generator can be tested without network access.
package llm

import "context"

// Turn roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// JSONMIMEType constrains conversation replies to JSON.
const JSONMIMEType = "application/json"

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// Turn is one message in a conversation history.
type Turn struct {
	Role string
	Text string
}

// ConversationConfig fixes the behaviour of a conversation at creation time.
type ConversationConfig struct {
	Model             string
	SystemInstruction string
	ResponseMIMEType  string
}

// Conversation is a stateful chat whose history grows with every Send.
type Conversation interface {
	Send(ctx context.Context, message string) (string, error)
	History() []Turn
}

// Model starts conversations and answers one-shot prompts.
type Model interface {
	// StartConversation opens a conversation seeded with history.
	StartConversation(ctx context.Context, cfg ConversationConfig, history []Turn) (Conversation, error)
	// Generate answers a single prompt without keeping state.
	Generate(ctx context.Context, prompt string) (string, error)
}
