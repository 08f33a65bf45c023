package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yazilimxyz/marketplace/internal/domain/catalog"
)

// UpdateVariantRequest changes catalog attributes of a variant
type UpdateVariantRequest struct {
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Active    *bool            `json:"active"`
}

// RestockRequest adds stock to a variant
type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// VariantResponse represents a variant in API responses
type VariantResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	MerchantID  uuid.UUID       `json:"merchant_id"`
	SKU         string          `json:"sku"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Active      bool            `json:"active"`
	Stock       int             `json:"stock"`
	Reserved    int             `json:"reserved"`
	Version     int             `json:"version"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ToVariantResponse converts a domain variant to a response DTO
func ToVariantResponse(v *catalog.ProductVariant) VariantResponse {
	return VariantResponse{
		ID:          v.ID,
		ProductID:   v.ProductID,
		MerchantID:  v.MerchantID,
		SKU:         v.SKU,
		ProductName: v.ProductName,
		Size:        v.Size,
		Color:       v.Color,
		UnitPrice:   v.UnitPrice,
		Active:      v.Active,
		Stock:       v.Stock(),
		Reserved:    v.Reserved(),
		Version:     v.GetVersion(),
		UpdatedAt:   v.UpdatedAt,
	}
}
