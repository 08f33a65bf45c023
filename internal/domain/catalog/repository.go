package catalog

import (
	"context"

	"github.com/google/uuid"
)

// VariantRepository persists product variants
type VariantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProductVariant, error)
	// FindByIDForUpdate loads the variant and holds its row lock until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ProductVariant, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]ProductVariant, error)
	Create(ctx context.Context, variant *ProductVariant) error
	// SaveWithLock writes the variant if its stored version is one behind
	// the in-memory version, returning shared.ErrConcurrencyConflict
	// otherwise
	SaveWithLock(ctx context.Context, variant *ProductVariant) error
}
