package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finansmanager/internal/api/middleware"
	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/logger"
	"github.com/dvloznov/finansmanager/internal/nlu"
	"github.com/dvloznov/finansmanager/internal/session"
)

// Messages returned by the chat proxy.
const (
	MissingFieldsMessage = "Missing required fields (userId, systemInstruction, or userMessage)."
	MalformedReplyIssue  = "I couldn't process that. The AI's response was malformed. Please try rephrasing your message."
	UpstreamMessage      = "Failed to process chat via AI. Check backend logs for detail."
	ConfigMismatchMsg    = "The chat session was created with a different configuration. Start a new session."
)

// ChatProcessor runs one message through a user's conversation.
type ChatProcessor interface {
	Process(ctx context.Context, userID, systemInstruction, message string) (string, error)
}

// ChatHandler is the proxy between the chat client and the model.
type ChatHandler struct {
	sessions ChatProcessor
	timeout  time.Duration
	log      zerolog.Logger
}

// NewChatHandler creates a new chat handler. A zero timeout leaves the
// request context untouched.
func NewChatHandler(sessions ChatProcessor, timeout time.Duration, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		sessions: sessions,
		timeout:  timeout,
		log:      log,
	}
}

// ProcessChat handles POST /api/process-chat
func (h *ChatHandler) ProcessChat(w http.ResponseWriter, r *http.Request) {
	var req domain.ProcessChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, MissingFieldsMessage)
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.SystemInstruction) == "" || strings.TrimSpace(req.UserMessage) == "" {
		middleware.WriteError(w, http.StatusBadRequest, MissingFieldsMessage)
		return
	}

	log := logger.WithFields(h.log, map[string]interface{}{
		"user_id":    req.UserID,
		"request_id": middleware.RequestIDFromContext(r.Context()),
	})

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	reply, err := h.sessions.Process(ctx, req.UserID, req.SystemInstruction, req.UserMessage)
	if err != nil {
		if errors.Is(err, session.ErrConfigMismatch) {
			log.Warn().Err(err).Msg("Rejected message for stale session configuration")
			middleware.WriteJSON(w, http.StatusConflict, domain.Envelope{
				Status:  domain.StatusError,
				Message: ConfigMismatchMsg,
				Detail:  err.Error(),
			})
			return
		}
		log.Error().Err(err).Msg("Gemini API call failed")
		middleware.WriteJSON(w, http.StatusInternalServerError, domain.Envelope{
			Status:  domain.StatusError,
			Message: UpstreamMessage,
			Detail:  err.Error(),
		})
		return
	}

	doc, err := nlu.ParseDocument(reply)
	if err != nil {
		log.Error().Err(err).Str("raw_reply", reply).Msg("Failed to parse model JSON")
		clarification, _ := json.Marshal(domain.Clarification{
			Type:  domain.ClarificationType,
			Issue: MalformedReplyIssue,
		})
		middleware.WriteJSON(w, http.StatusOK, domain.Envelope{
			Status:     domain.StatusError,
			ParsedData: clarification,
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, domain.Envelope{
		Status:     domain.StatusSuccess,
		ParsedData: doc,
	})
}
