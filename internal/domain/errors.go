package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")

	// ErrLockDenied is returned when a region edit lock is already held by
	// another session. Recoverable: the caller may wait or retry.
	ErrLockDenied = errors.New("lock denied")

	// ErrLockNotHeld is returned when a release or lock-dependent write is
	// attempted by a session that does not hold the lock. Client bug; logged.
	ErrLockNotHeld = errors.New("lock not held")

	// ErrConflict is returned when a region write carries a stale revision
	// token. Recoverable via conflict resolution.
	ErrConflict = errors.New("conflict")

	// ErrRetryExhausted is returned when conflict resolution kept losing the
	// revision race past the configured attempt limit. Fatal for that edit.
	ErrRetryExhausted = errors.New("resolution retries exhausted")

	// ErrMalformedSnapshot is returned when a version's region snapshot fails
	// structural validation. Fatal for the operation; stored history is never
	// affected.
	ErrMalformedSnapshot = errors.New("malformed snapshot")

	// ErrChannelUnavailable is reported when the real-time channel cannot
	// deliver; callers degrade to the REST fallback.
	ErrChannelUnavailable = errors.New("channel unavailable")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}
