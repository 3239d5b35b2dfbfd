package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates a missing user record or an already consumed
	// one-time credential.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates a request without a signed-in user.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden indicates the caller lacks the required capability.
	ErrForbidden = errors.New("forbidden")
	// ErrVersionConflict indicates a concurrent mutation was detected during
	// an atomic update; callers retry with fresh state.
	ErrVersionConflict = errors.New("version conflict")
	// ErrValidation is the base error for rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrInvariantViolation is the base error for operations that would break
	// an administrative invariant.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrCSRFTokenMissing occurs when the CSRF token is absent.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// ValidationError reports rejected input, listing the offending values.
type ValidationError struct {
	Field     string
	Offending []string
}

func (e *ValidationError) Error() string {
	if len(e.Offending) > 0 {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, strings.Join(e.Offending, ", "))
	}
	return "validation failed: " + e.Field
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for a field with the values
// that were rejected.
func NewValidationError(field string, offending ...string) *ValidationError {
	return &ValidationError{Field: field, Offending: offending}
}

// InvariantError reports why an operation would break an administrative
// invariant. The rejected operation leaves stored state unchanged.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return "invariant violation: " + e.Reason
}

// Unwrap lets errors.Is match ErrInvariantViolation.
func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

// NewInvariantError builds an InvariantError with an explicit reason.
func NewInvariantError(reason string) *InvariantError {
	return &InvariantError{Reason: reason}
}

// UserSafeMessage returns a message suitable for API consumers, hiding
// internal detail for unexpected failures.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrVersionConflict),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvariantViolation):
		return err.Error()
	default:
		return "internal error"
	}
}
