package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini implements Model on top of the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ Model = (*Gemini)(nil)

// NewGemini creates a client for the Gemini API. An empty model selects
// DefaultModelName.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("NewGemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &Gemini{client: client, model: model}, nil
}

// StartConversation implements Model.
func (g *Gemini) StartConversation(ctx context.Context, cfg ConversationConfig, history []Turn) (Conversation, error) {
	model := cfg.Model
	if model == "" {
		model = g.model
	}

	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: cfg.ResponseMIMEType,
	}
	if cfg.SystemInstruction != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		contents = append(contents, genai.NewContentFromText(t.Text, genai.Role(t.Role)))
	}

	chat, err := g.client.Chats.Create(ctx, model, genCfg, contents)
	if err != nil {
		return nil, fmt.Errorf("StartConversation: create chat: %w", err)
	}
	return &geminiConversation{chat: chat}, nil
}

// Generate implements Model.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Generate: empty response from model")
	}
	return text, nil
}

type geminiConversation struct {
	chat *genai.Chat
}

func (c *geminiConversation) Send(ctx context.Context, message string) (string, error) {
	resp, err := c.chat.Send(ctx, &genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("Send: %w", err)
	}
	return resp.Text(), nil
}

func (c *geminiConversation) History() []Turn {
	contents := c.chat.History(false)
	turns := make([]Turn, 0, len(contents))
	for _, content := range contents {
		if content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range content.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
		turns = append(turns, Turn{Role: content.Role, Text: b.String()})
	}
	return turns
}
