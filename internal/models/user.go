package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	IsActive     bool      `json:"is_active"`
}

// UserProfile is the public view of a user returned by the API.
type UserProfile struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Initial     string    `json:"initial"`
	CreatedAt   time.Time `json:"created_at"`
}

// DisplayName is the local part of the email, or "User" when there is none.
func (u *User) DisplayName() string {
	name, _, _ := strings.Cut(u.Email, "@")
	if name == "" {
		return "User"
	}
	return name
}

// Initial is the upper-cased first character of the email, or "U".
func (u *User) Initial() string {
	for _, r := range u.Email {
		return strings.ToUpper(string(r))
	}
	return "U"
}

func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName(),
		Initial:     u.Initial(),
		CreatedAt:   u.CreatedAt,
	}
}
