package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns DESC", "", "DESC"},
		{"ASC uppercase returns ASC", "ASC", "ASC"},
		{"asc lowercase returns ASC", "asc", "ASC"},
		{"desc lowercase returns DESC", "desc", "DESC"},
		{"invalid value returns DESC", "INVALID", "DESC"},
		{"sql injection attempt returns DESC", "ASC; DROP TABLE orders;--", "DESC"},
		{"whitespace around ASC returns ASC", "  asc  ", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns default", "", "created_at"},
		{"valid field returns field", "total", "total"},
		{"invalid field returns default", "password_hash", "created_at"},
		{"sql injection attempt returns default", "id; DROP TABLE orders;--", "created_at"},
		{"case sensitive", "TOTAL", "created_at"},
		{"whitespace around valid field returns field", "  status  ", "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, OrderSortFields, "created_at"))
		})
	}
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "total ASC, id ASC", orderClause("total", "asc", OrderSortFields, "created_at"))
	assert.Equal(t, "created_at DESC, id DESC", orderClause("bogus", "sideways", OrderSortFields, "created_at"))
}
