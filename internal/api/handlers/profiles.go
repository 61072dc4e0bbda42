package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finansmanager/internal/api/middleware"
	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/setup"
	"github.com/dvloznov/finansmanager/internal/store"
)

// ProfilesHandler handles user profile endpoints.
type ProfilesHandler struct {
	repo store.ProfileRepository
	log  zerolog.Logger
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(repo store.ProfileRepository, log zerolog.Logger) *ProfilesHandler {
	return &ProfilesHandler{
		repo: repo,
		log:  log,
	}
}

// GetProfile handles GET /api/profiles/{userId}
func (h *ProfilesHandler) GetProfile(w http.ResponseWriter, r *http.Request, userID string) {
	profile, err := h.repo.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Profile not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get profile")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, profile)
}

// SaveProfile handles POST /api/profiles/{userId}. Fields absent from the
// body are left unchanged.
func (h *ProfilesHandler) SaveProfile(w http.ResponseWriter, r *http.Request, userID string) {
	var update domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := setup.ValidateUpdate(update); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.repo.SaveProfile(r.Context(), userID, update)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to save profile")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save configuration. Please try again.")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, profile)
}
