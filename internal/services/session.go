package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultSessionTTL is 7 days
	DefaultSessionTTL = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for token -> user id
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user id -> token
	UserSessionKeyPrefix = "user_session:"
)

// Sessions is the session contract used by auth and middleware.
type Sessions interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Validate(ctx context.Context, token string) (uuid.UUID, bool, error)
	Invalidate(ctx context.Context, token string) error
}

// SessionStore keeps bearer sessions in Redis. A user has at most one live session.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

// Create invalidates any existing session for the user and issues a new token,
// so the expiry timer restarts on every login.
func (s *SessionStore) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	if err := s.InvalidateUser(ctx, userID); err != nil {
		return "", err
	}

	token, err := newSessionToken()
	if err != nil {
		return "", err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+token, userID.String(), s.ttl)
	pipe.Set(ctx, UserSessionKeyPrefix+userID.String(), token, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Validate returns the user id for a token. Unknown or expired tokens report ok=false.
func (s *SessionStore) Validate(ctx context.Context, token string) (uuid.UUID, bool, error) {
	if token == "" {
		return uuid.Nil, false, nil
	}

	userIDStr, err := s.client.Get(ctx, SessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("get session: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt session value: %w", err)
	}
	return userID, true, nil
}

// Refresh extends both session keys by the TTL from now.
func (s *SessionStore) Refresh(ctx context.Context, token string, userID uuid.UUID) error {
	pipe := s.client.TxPipeline()
	session := pipe.Expire(ctx, SessionKeyPrefix+token, s.ttl)
	pipe.Expire(ctx, UserSessionKeyPrefix+userID.String(), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	if !session.Val() {
		return fmt.Errorf("session not found")
	}
	return nil
}

// Invalidate removes a session and its user mapping.
func (s *SessionStore) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	sessionKey := SessionKeyPrefix + token
	userIDStr, err := s.client.Get(ctx, sessionKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("get session: %w", err)
	}

	keys := []string{sessionKey}
	if userIDStr != "" {
		keys = append(keys, UserSessionKeyPrefix+userIDStr)
	}
	return s.client.Del(ctx, keys...).Err()
}

// InvalidateUser removes the user's current session, if any.
func (s *SessionStore) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	userSessionKey := UserSessionKeyPrefix + userID.String()

	token, err := s.client.Get(ctx, userSessionKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("get user session: %w", err)
	}

	keys := []string{userSessionKey}
	if token != "" {
		keys = append(keys, SessionKeyPrefix+token)
	}
	return s.client.Del(ctx, keys...).Err()
}

func newSessionToken() (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(tokenBytes), nil
}
