package dto

import (
	"net/http"

	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

// Error codes that only exist at the HTTP edge. Domain codes come from
// the shared package and are passed through unchanged.
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid       = "TOKEN_INVALID"
	ErrCodeTokenMaxRefresh    = "TOKEN_MAX_REFRESH"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeAccountDeactivated = "ACCOUNT_DEACTIVATED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Input -> 400
	shared.CodeInvalidInput: http.StatusBadRequest,
	shared.CodeInvalidCart:  http.StatusBadRequest,
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,

	// Auth
	shared.CodeUnauthorized:   http.StatusUnauthorized,
	ErrCodeTokenExpired:       http.StatusUnauthorized,
	ErrCodeTokenInvalid:       http.StatusUnauthorized,
	ErrCodeTokenMaxRefresh:    http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	shared.CodeForbidden:      http.StatusForbidden,
	ErrCodeAccountDeactivated: http.StatusForbidden,

	shared.CodeNotFound: http.StatusNotFound,

	// Conflicts -> 409
	shared.CodeAlreadyExists:          http.StatusConflict,
	shared.CodeConcurrencyConflict:    http.StatusConflict,
	shared.CodeInvalidState:           http.StatusConflict,
	shared.CodeInvalidStateTransition: http.StatusConflict,
	shared.CodeInsufficientStock:      http.StatusConflict,
	shared.CodeReservationExpired:     http.StatusConflict,

	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,

	// Retryable server-side failures -> 503
	shared.CodePersistenceFailure: http.StatusServiceUnavailable,
	ErrCodeServiceUnavailable:     http.StatusServiceUnavailable,

	ErrCodeInternal: http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
