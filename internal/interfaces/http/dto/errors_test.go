package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{shared.CodeInvalidCart, http.StatusBadRequest},
		{shared.CodeInvalidInput, http.StatusBadRequest},
		{ErrCodeValidation, http.StatusBadRequest},
		{shared.CodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{shared.CodeForbidden, http.StatusForbidden},
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeInsufficientStock, http.StatusConflict},
		{shared.CodeInvalidStateTransition, http.StatusConflict},
		{shared.CodeConcurrencyConflict, http.StatusConflict},
		{shared.CodeAlreadyExists, http.StatusConflict},
		{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{shared.CodePersistenceFailure, http.StatusServiceUnavailable},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		pageSize   int
		totalPages int
	}{
		{"exact", 40, 20, 2},
		{"remainder", 41, 20, 3},
		{"empty", 0, 20, 0},
		{"zero page size", 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewSuccessResponseWithMeta([]int{}, tt.total, 1, tt.pageSize)
			require.NotNil(t, resp.Meta)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.totalPages, resp.Meta.TotalPages)
		})
	}
}

func TestErrorResponseEnvelope(t *testing.T) {
	resp := NewErrorResponse(shared.CodePersistenceFailure, "try again", "req-1").
		WithRetryable(true).
		WithDetails(map[string]string{"op": "persist order"})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.NotContains(t, decoded, "data")

	errObj := decoded["error"].(map[string]any)
	assert.Equal(t, "PERSISTENCE_FAILURE", errObj["code"])
	assert.Equal(t, "req-1", errObj["request_id"])
	assert.Equal(t, true, errObj["retryable"])
	assert.Equal(t, "persist order", errObj["details"].(map[string]any)["op"])
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("bad", "req-2", []ValidationDetail{{Field: "quantity", Message: "required"}})

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 1)
	assert.False(t, resp.Error.Retryable)
}
