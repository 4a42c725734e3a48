package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/logger"
)

type contextKey int

const (
	userIDKey contextKey = iota
	tokenKey
)

// SessionValidator resolves bearer tokens to user ids and slides their expiry.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (uuid.UUID, bool, error)
	Refresh(ctx context.Context, token string, userID uuid.UUID) error
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth rejects requests without a valid session with 401 and stores the
// user id and token in the request context.
func RequireAuth(sessions SessionValidator, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Authentication required", "unauthorized")
				return
			}

			userID, ok, err := sessions.Validate(r.Context(), token)
			if err != nil {
				log.Error("session validation failed", logger.Error(err))
				writeError(w, http.StatusInternalServerError, "internal server error", "internal")
				return
			}
			if !ok {
				writeError(w, http.StatusUnauthorized, "Invalid or expired session", "unauthorized")
				return
			}
			if err := sessions.Refresh(r.Context(), token, userID); err != nil {
				log.Warn("session refresh failed", logger.String("user_id", userID.String()), logger.Error(err))
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), userID, token)))
		})
	}
}

// WithSession returns ctx carrying the authenticated user id and token.
func WithSession(ctx context.Context, userID uuid.UUID, token string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, tokenKey, token)
}

func UserIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
