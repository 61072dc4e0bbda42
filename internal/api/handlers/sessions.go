package handlers

import (
	"net/http"

	"github.com/rs/zerolog"
)

// SessionEvictor drops a user's chat session.
type SessionEvictor interface {
	Evict(userID string)
}

// SessionsHandler exposes explicit session teardown.
type SessionsHandler struct {
	sessions SessionEvictor
	log      zerolog.Logger
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(sessions SessionEvictor, log zerolog.Logger) *SessionsHandler {
	return &SessionsHandler{sessions: sessions, log: log}
}

// EvictSession handles DELETE /api/sessions/{userId}. It is meant for
// operators rather than the browser front end.
func (h *SessionsHandler) EvictSession(w http.ResponseWriter, r *http.Request, userID string) {
	h.sessions.Evict(userID)
	h.log.Info().Str("user_id", userID).Msg("Chat session evicted on request")
	w.WriteHeader(http.StatusNoContent)
}
