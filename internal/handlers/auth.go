package handlers

import (
	"net/http"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/middleware"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
)

type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	User    *models.UserProfile `json:"user,omitempty"`
	Token   string              `json:"token,omitempty"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Signup creates an account and signs it in.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.auth.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	profile := res.User.Profile()
	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created successfully",
		User:    &profile,
		Token:   res.Token,
	})
}

// Signin issues a new session token. Any previous session of the user is revoked.
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.auth.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	profile := res.User.Profile()
	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Signed in successfully",
		User:    &profile,
		Token:   res.Token,
	})
}

func (h *Handler) Signout(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.auth.Signout(r.Context(), userID, middleware.TokenFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Signed out successfully"})
}

// Me returns the signed-in user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.auth.User(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	profile := user.Profile()
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "OK", User: &profile})
}
