package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yazilimxyz/marketplace/internal/domain/catalog"
)

// VariantInfo is the read model the order assembler needs from the catalog
type VariantInfo struct {
	VariantID   uuid.UUID       `json:"variant_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	MerchantID  uuid.UUID       `json:"merchant_id"`
	SKU         string          `json:"sku"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Active      bool            `json:"active"`
}

// Lookup resolves variants for order placement. Unknown IDs are simply
// absent from the result.
type Lookup interface {
	GetVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]VariantInfo, error)
}

// RepositoryLookup reads variants straight from the repository
type RepositoryLookup struct {
	variants catalog.VariantRepository
}

// NewRepositoryLookup creates a new RepositoryLookup
func NewRepositoryLookup(variants catalog.VariantRepository) *RepositoryLookup {
	return &RepositoryLookup{variants: variants}
}

// GetVariants implements Lookup
func (l *RepositoryLookup) GetVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]VariantInfo, error) {
	result := make(map[uuid.UUID]VariantInfo, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	variants, err := l.variants.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}
	for i := range variants {
		info := ToVariantInfo(&variants[i])
		result[info.VariantID] = info
	}
	return result, nil
}

// ToVariantInfo maps a variant to its read model
func ToVariantInfo(v *catalog.ProductVariant) VariantInfo {
	return VariantInfo{
		VariantID:   v.ID,
		ProductID:   v.ProductID,
		MerchantID:  v.MerchantID,
		SKU:         v.SKU,
		ProductName: v.ProductName,
		Size:        v.Size,
		Color:       v.Color,
		UnitPrice:   v.UnitPrice,
		Active:      v.Active,
	}
}

var _ Lookup = (*RepositoryLookup)(nil)
