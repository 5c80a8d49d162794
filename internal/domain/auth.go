package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrEmailNotFound      = errors.New("email not found")
	ErrPasswordIncorrect  = errors.New("password is incorrect")
	ErrInvalidEmailDomain = errors.New("invalid email domain")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
	ErrUnauthorized       = errors.New("unauthorized")
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	AuthToken    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate lists the columns a login may change. Nil fields are left as is.
type UserUpdate struct {
	AuthToken    *string
	PasswordHash *string
}

// ValidationError carries per-field messages, keyed by the request field name.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// RateLimitError is returned when a key has used up its attempts for the
// current window. It matches ErrTooManyAttempts with errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrTooManyAttempts, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrTooManyAttempts
}
