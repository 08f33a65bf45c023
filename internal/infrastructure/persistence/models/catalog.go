package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yazilimxyz/marketplace/internal/domain/catalog"
)

// ProductVariantModel is the persistence model for the ProductVariant aggregate.
type ProductVariantModel struct {
	AggregateModel
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	MerchantID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKU         string          `gorm:"column:sku;type:varchar(64);not null;uniqueIndex"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Size        string          `gorm:"type:varchar(32)"`
	Color       string          `gorm:"type:varchar(32)"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Active      bool            `gorm:"not null;default:true"`
	Stock       int             `gorm:"not null;default:0;check:stock >= 0"`
	Reserved    int             `gorm:"not null;default:0;check:reserved >= 0"`
}

// TableName returns the table name for GORM
func (ProductVariantModel) TableName() string {
	return "product_variants"
}

// ToDomain converts the persistence model to a domain ProductVariant.
func (m *ProductVariantModel) ToDomain() *catalog.ProductVariant {
	return catalog.RestoreProductVariant(
		m.ToAggregateRoot(),
		m.ProductID,
		m.MerchantID,
		m.SKU,
		m.ProductName,
		m.Size,
		m.Color,
		m.UnitPrice,
		m.Active,
		m.Stock,
		m.Reserved,
	)
}

// FromDomain populates the persistence model from a domain ProductVariant.
func (m *ProductVariantModel) FromDomain(v *catalog.ProductVariant) {
	m.FromDomainAggregateRoot(v.BaseAggregateRoot)
	m.ProductID = v.ProductID
	m.MerchantID = v.MerchantID
	m.SKU = v.SKU
	m.ProductName = v.ProductName
	m.Size = v.Size
	m.Color = v.Color
	m.UnitPrice = v.UnitPrice
	m.Active = v.Active
	m.Stock = v.Stock()
	m.Reserved = v.Reserved()
}

// ProductVariantModelFromDomain creates a persistence model from a domain ProductVariant.
func ProductVariantModelFromDomain(v *catalog.ProductVariant) *ProductVariantModel {
	m := &ProductVariantModel{}
	m.FromDomain(v)
	return m
}
