package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the services and repositories. Handlers map these
// to HTTP statuses with errors.Is; everything else wraps with %w.
var (
	// ErrValidation marks bad or missing input that the caller can correct
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an id or key that does not resolve
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition marks a request whose status does not allow the
	// attempted operation
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrCapacityExhausted marks a claim against a game with no free slots
	ErrCapacityExhausted = errors.New("no slots available")
	// ErrStorageUnavailable marks a failed persistence call; reads may be
	// retried by the caller with backoff
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrMaintenance marks an operation refused while the system is in
	// maintenance mode
	ErrMaintenance = errors.New("maintenance in progress")
	// ErrUnauthorized marks a missing or invalid credential
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict marks a state conflict such as a duplicate registration
	// or a second current request for the same owner
	ErrConflict = errors.New("conflict")
)

// NewValidationError wraps a field-level message in ErrValidation
func NewValidationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
