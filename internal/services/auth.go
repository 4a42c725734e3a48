package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/apperrors"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/database"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
	"github.com/AnshRaj112/smart-bookmarks-backend/pkg/utils"
)

const invalidCredentials = "Invalid email or password"

var verifyPassword = utils.VerifyPassword

// dummyHash is verified against when the email is unknown, so a failed signin costs
// one argon2 run whether or not the account exists.
var dummyHash = sync.OnceValue(func() string {
	h, _ := utils.HashPassword("smart-bookmarks-unknown-account")
	return h
})

// UserStore is the persistence contract for accounts.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AuthResult is returned by Signup and Signin.
type AuthResult struct {
	User  *models.User
	Token string
}

// AuthService handles account creation and bearer sessions.
type AuthService struct {
	users    UserStore
	sessions Sessions
	activity ActivityLog
	clock    clockwork.Clock
}

func NewAuthService(users UserStore, sessions Sessions, activity ActivityLog, clock clockwork.Clock) *AuthService {
	if activity == nil {
		activity = NopActivityLog{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AuthService{users: users, sessions: sessions, activity: activity, clock: clock}
}

func (s *AuthService) Signup(ctx context.Context, email, password string) (*AuthResult, error) {
	if err := utils.ValidateEmail(email); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        utils.NormalizeEmail(email),
		PasswordHash: hash,
		CreatedAt:    s.clock.Now().UTC().Truncate(time.Microsecond),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			return nil, apperrors.Conflict("User with this email already exists")
		}
		return nil, apperrors.Internal("failed to create user", err)
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, apperrors.Internal("failed to create session", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Signin verifies credentials and rotates the user's session.
func (s *AuthService) Signin(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, apperrors.Validation("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			_, _ = verifyPassword(password, dummyHash())
			return nil, apperrors.Unauthorized(invalidCredentials)
		}
		return nil, apperrors.Internal("failed to load user", err)
	}

	ok, err := verifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, apperrors.Unauthorized(invalidCredentials)
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("Account is disabled")
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, apperrors.Internal("failed to create session", err)
	}

	s.activity.Record(ctx, models.Activity{
		UserID:    user.ID.String(),
		Action:    models.ActionSignedIn,
		CreatedAt: s.clock.Now().UTC(),
	})
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) Signout(ctx context.Context, userID uuid.UUID, token string) error {
	if err := s.sessions.Invalidate(ctx, token); err != nil {
		return apperrors.Internal("failed to sign out", err)
	}
	s.activity.Record(ctx, models.Activity{
		UserID:    userID.String(),
		Action:    models.ActionSignedOut,
		CreatedAt: s.clock.Now().UTC(),
	})
	return nil
}

// Authenticate resolves a bearer token to a user id.
func (s *AuthService) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	userID, ok, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return uuid.Nil, apperrors.Internal("failed to validate session", err)
	}
	if !ok {
		return uuid.Nil, apperrors.Unauthorized("Invalid or expired session")
	}
	return userID, nil
}

func (s *AuthService) User(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, apperrors.Unauthorized("Invalid or expired session")
		}
		return nil, apperrors.Internal("failed to load user", err)
	}
	return user, nil
}
