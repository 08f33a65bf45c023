package inventory

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

// Shortage describes one variant that could not be reserved
type Shortage struct {
	VariantID uuid.UUID `json:"variant_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
	Shortfall int       `json:"shortfall"`
}

// InsufficientStockError is the expected outcome when stock runs out.
// It unwraps to shared.ErrInsufficientStock.
type InsufficientStockError struct {
	Shortages []Shortage
}

// NewInsufficientStockError creates an error for a single variant
func NewInsufficientStockError(variantID uuid.UUID, requested, available int) *InsufficientStockError {
	return &InsufficientStockError{Shortages: []Shortage{newShortage(variantID, requested, available)}}
}

func newShortage(variantID uuid.UUID, requested, available int) Shortage {
	if available < 0 {
		available = 0
	}
	return Shortage{
		VariantID: variantID,
		Requested: requested,
		Available: available,
		Shortfall: requested - available,
	}
}

// Add records another short variant
func (e *InsufficientStockError) Add(variantID uuid.UUID, requested, available int) {
	e.Shortages = append(e.Shortages, newShortage(variantID, requested, available))
}

// Merge appends the shortages of other
func (e *InsufficientStockError) Merge(other *InsufficientStockError) {
	if other == nil {
		return
	}
	e.Shortages = append(e.Shortages, other.Shortages...)
}

// VariantIDs lists the offending variants
func (e *InsufficientStockError) VariantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		ids = append(ids, s.VariantID)
	}
	return ids
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("variant %s short by %d (requested %d, available %d)",
			s.VariantID, s.Shortfall, s.Requested, s.Available))
	}
	return "Insufficient stock: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match shared.ErrInsufficientStock
func (e *InsufficientStockError) Unwrap() error {
	return shared.ErrInsufficientStock
}
