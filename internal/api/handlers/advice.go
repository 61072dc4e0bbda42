package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finansmanager/internal/advice"
	"github.com/dvloznov/finansmanager/internal/api/middleware"
	"github.com/dvloznov/finansmanager/internal/domain"
)

// AdviceHandler serves the financial analysis.
type AdviceHandler struct {
	src     advice.Source
	analyst *advice.Analyst
	log     zerolog.Logger
}

// NewAdviceHandler creates a new advice handler.
func NewAdviceHandler(src advice.Source, analyst *advice.Analyst, log zerolog.Logger) *AdviceHandler {
	return &AdviceHandler{
		src:     src,
		analyst: analyst,
		log:     log,
	}
}

// GetAdvice handles GET /api/advice?userId=
func (h *AdviceHandler) GetAdvice(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "userId is required")
		return
	}

	records, err := advice.Collect(r.Context(), h.src, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to collect records for advice")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load financial data")
		return
	}

	text, err := h.analyst.Analyze(r.Context(), records)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Str("mode", string(h.analyst.Mode())).Msg("Failed to generate advice")
		var upstream *domain.UpstreamError
		if errors.As(err, &upstream) {
			middleware.WriteError(w, http.StatusBadGateway, "Failed to generate advice")
			return
		}
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to generate advice")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"advice":  text,
		"mode":    h.analyst.Mode(),
		"summary": advice.Summarize(records),
	})
}
