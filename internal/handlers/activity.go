package handlers

import (
	"net/http"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/apperrors"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
)

type ActivityResponse struct {
	Success    bool              `json:"success"`
	Activities []models.Activity `json:"activities"`
}

// ListActivity returns the user's recent actions, newest first.
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	activities, err := h.activity.List(r.Context(), userID.String(), limit)
	if err != nil {
		h.writeError(w, r, apperrors.Internal("failed to load activity", err))
		return
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	writeJSON(w, http.StatusOK, ActivityResponse{Success: true, Activities: activities})
}
