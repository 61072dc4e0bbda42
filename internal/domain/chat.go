package domain

import "encoding/json"

// EntryType is the display kind of a chat history entry.
type EntryType string

const (
	EntrySystem  EntryType = "system"
	EntryUser    EntryType = "user"
	EntryAI      EntryType = "ai"
	EntrySuccess EntryType = "success"
	EntryError   EntryType = "error"
)

// ChatEntry is one line of the client-side chat history. Never persisted.
type ChatEntry struct {
	ID      int64     `json:"id"`
	Type    EntryType `json:"type"`
	Message string    `json:"message"`
}

// ProcessChatRequest is the body of POST /api/process-chat.
type ProcessChatRequest struct {
	UserID            string `json:"userId"`
	SystemInstruction string `json:"systemInstruction"`
	UserMessage       string `json:"userMessage"`
}

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the response of POST /api/process-chat for 200 and 5xx replies.
type Envelope struct {
	Status     string          `json:"status"`
	ParsedData json.RawMessage `json:"parsedData,omitempty"`
	Message    string          `json:"message,omitempty"`
	Detail     string          `json:"detail,omitempty"`
}

// ClarificationType marks a parsedData payload produced by the proxy itself.
const ClarificationType = "clarification"

// Clarification is the parsedData payload sent when the model reply was not
// structured data.
type Clarification struct {
	Type  string `json:"type"`
	Issue string `json:"issue"`
}
