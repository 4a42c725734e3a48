package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/apperrors"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/logger"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/middleware"
)

const maxJSONBody = 1 << 20

// ErrorResponse is the envelope for every failed request.
type ErrorResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Type    string         `json:"type"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps err onto its HTTP status. The cause is logged, never returned.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.AsStructuredError(err)
	status := appErr.HTTPStatus()

	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("request_id", chimw.GetReqID(r.Context())),
			logger.String("type", string(appErr.Type)),
			logger.String("message", appErr.Message),
			logger.Error(appErr.Cause))
	}

	writeJSON(w, status, ErrorResponse{
		Success: false,
		Message: appErr.Message,
		Type:    string(appErr.Type),
		Details: appErr.Context,
	})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.Validation("Request body too large")
		}
		if errors.Is(err, io.EOF) {
			return apperrors.Validation("Request body is required")
		}
		return apperrors.Validation("Invalid request body")
	}
	return nil
}

// sessionUser returns the user id set by middleware.RequireAuth.
func sessionUser(r *http.Request) (uuid.UUID, error) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		return uuid.Nil, apperrors.Unauthorized("Authentication required")
	}
	return userID, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.Validation(key + " must be an integer")
	}
	return n, nil
}
