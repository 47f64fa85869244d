package auth

import (
	"errors"
	"fmt"

	"github.com/georgemunganga/prepick-backend/internal/apperr"
	"github.com/georgemunganga/prepick-backend/internal/modules/user"
)

var (
	ErrUserNotFound      = fmt.Errorf("user not found: %w", apperr.ErrUnauthorized)
	ErrWrongPassword     = fmt.Errorf("wrong password: %w", apperr.ErrUnauthorized)
	ErrInvalidCredential = fmt.Errorf("invalid credential: %w", apperr.ErrUnauthorized)
	ErrInvalidEmail      = fmt.Errorf("invalid email: %w", apperr.ErrUnprocessable)
	ErrWeakPassword      = fmt.Errorf("weak password: %w", apperr.ErrUnprocessable)
	ErrTooManyAttempts   = fmt.Errorf("too many attempts: %w", apperr.ErrTooManyRequests)
	ErrEmailInUse        = user.ErrEmailTaken
	ErrNoVerifier        = fmt.Errorf("identity provider sign-in is not configured: %w", apperr.ErrUnprocessable)
)

// Error is an auth failure carrying the message shown to the user.
type Error struct {
	msg string
	err error
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.err }

// Message returns the user-facing text for a failed action such as
// "Login" or "Signup".
func Message(action string, err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "No account found with this email"
	case errors.Is(err, ErrWrongPassword):
		return "Incorrect password"
	case errors.Is(err, ErrInvalidEmail):
		return "Invalid email address"
	case errors.Is(err, ErrInvalidCredential):
		return "Invalid email or password"
	case errors.Is(err, ErrTooManyAttempts):
		return "Too many failed attempts. Please try again later."
	case errors.Is(err, ErrEmailInUse):
		return "This email is already registered. Please login instead."
	case errors.Is(err, ErrWeakPassword):
		return "Password is too weak. Use at least 6 characters."
	default:
		return fmt.Sprintf("%s failed: %s", action, err.Error())
	}
}

// fail wraps err with its user-facing message. Validation and store
// failures pass through so handlers keep their field details and generic
// retry text.
func fail(action string, err error) error {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) || errors.Is(err, apperr.ErrUnavailable) {
		return err
	}
	return &Error{msg: Message(action, err), err: err}
}
