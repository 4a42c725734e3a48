// Package apperrors provides typed errors that map onto HTTP status codes.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the category of an error.
type ErrorType string

const (
	TypeValidation   ErrorType = "validation"
	TypeUnauthorized ErrorType = "unauthorized"
	TypeForbidden    ErrorType = "forbidden"
	TypeNotFound     ErrorType = "not_found"
	TypeConflict     ErrorType = "conflict"
	TypeRateLimited  ErrorType = "rate_limited"
	TypeInternal     ErrorType = "internal"
	TypeExternal     ErrorType = "external"
)

// Error is a structured error with a client-safe message and an optional cause.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status code for the error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeForbidden:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeRateLimited:
		return http.StatusTooManyRequests
	case TypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithContext attaches a key/value pair that is returned to clients alongside the message.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func newError(t ErrorType, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

func Validation(message string) *Error   { return newError(TypeValidation, message, nil) }
func Unauthorized(message string) *Error { return newError(TypeUnauthorized, message, nil) }
func Forbidden(message string) *Error    { return newError(TypeForbidden, message, nil) }
func NotFound(message string) *Error     { return newError(TypeNotFound, message, nil) }
func Conflict(message string) *Error     { return newError(TypeConflict, message, nil) }
func RateLimited(message string) *Error  { return newError(TypeRateLimited, message, nil) }

func Internal(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}

func External(message string, cause error) *Error {
	return newError(TypeExternal, message, cause)
}

// IsType reports whether err is an *Error of type t.
func IsType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// AsStructuredError returns err as an *Error, wrapping unknown errors as internal.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal server error", err)
}
