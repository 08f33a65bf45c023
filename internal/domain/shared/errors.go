package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so callers can compare
// against the sentinels below even when the message was customised.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared across bounded contexts
const (
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeInvalidState           = "INVALID_STATE"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeInvalidCart            = "INVALID_CART"
	CodePersistenceFailure     = "PERSISTENCE_FAILURE"
	CodeReservationExpired     = "RESERVATION_EXPIRED"
)

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists          = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput           = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict    = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUnauthorized           = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrForbidden              = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrInvalidState           = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInvalidStateTransition = NewDomainError(CodeInvalidStateTransition, "Requested status transition is not allowed")
	ErrInsufficientStock      = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrInvalidCart            = NewDomainError(CodeInvalidCart, "Cart is not valid for checkout")
	ErrPersistenceFailure     = NewDomainError(CodePersistenceFailure, "Order could not be persisted, retry the request")
	ErrReservationExpired     = NewDomainError(CodeReservationExpired, "Stock reservation is no longer active")
)

// ErrorCode extracts the DomainError code from err, or "" if err carries none.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
