package utils

import (
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	MaxEmailLength    = 254
	MinPasswordLength = 8
	MaxPasswordLength = 72
	MaxTitleLength    = 500
	MaxURLLength      = 2048
)

// ValidationError describes an invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NormalizeEmail lower-cases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	if len(email) > MaxEmailLength {
		return &ValidationError{Field: "email", Message: "Email must be at most 254 characters"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Message: "Email address is invalid"}
	}
	return nil
}

func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at least 8 characters"}
	}
	if len(password) > MaxPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at most 72 bytes"}
	}
	return nil
}

func ValidateTitle(title string) error {
	if title == "" {
		return &ValidationError{Field: "title", Message: "Title is required"}
	}
	if !utf8.ValidString(title) {
		return &ValidationError{Field: "title", Message: "Title must be valid UTF-8"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return &ValidationError{Field: "title", Message: "Title must be at most 500 characters"}
	}
	return nil
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	if raw == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}
	if len(raw) > MaxURLLength {
		return &ValidationError{Field: "url", Message: "URL must be at most 2048 characters"}
	}
	if !utf8.ValidString(raw) {
		return &ValidationError{Field: "url", Message: "URL must be valid UTF-8"}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{Field: "url", Message: "URL must be an absolute http or https address"}
	}
	return nil
}
