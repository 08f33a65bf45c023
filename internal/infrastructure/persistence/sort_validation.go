package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// OrderSortFields contains allowed sort fields for orders
var OrderSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"order_number": true,
	"status":       true,
	"total":        true,
	"confirmed_at": true,
	"delivered_at": true,
}

// orderClause builds a whitelisted ORDER BY with a stable id tiebreak
func orderClause(orderBy, orderDir string, allowed map[string]bool, defaultField string) string {
	field := ValidateSortField(orderBy, allowed, defaultField)
	dir := ValidateSortOrder(orderDir)
	return field + " " + dir + ", id " + dir
}
