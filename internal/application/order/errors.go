package order

import (
	"fmt"

	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

// PersistenceFailureError reports that an order could not be written after
// its stock was reserved. All reservations have been released by the time
// the caller sees it, so the request can be retried as is.
type PersistenceFailureError struct {
	Op    string
	Cause error
}

func newPersistenceFailure(op string, cause error) *PersistenceFailureError {
	return &PersistenceFailureError{Op: op, Cause: cause}
}

func (e *PersistenceFailureError) Error() string {
	return fmt.Sprintf("Failed to %s: %v", e.Op, e.Cause)
}

// Unwrap exposes both the sentinel and the underlying cause
func (e *PersistenceFailureError) Unwrap() []error {
	return []error{shared.ErrPersistenceFailure, e.Cause}
}

// Retryable is always true; nothing was left half-written
func (e *PersistenceFailureError) Retryable() bool {
	return true
}
