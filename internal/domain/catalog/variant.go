package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yazilimxyz/marketplace/internal/domain/inventory"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

// ProductVariant is a purchasable SKU: a product in one size and color.
// Stock moves only through the ledger methods below.
type ProductVariant struct {
	shared.BaseAggregateRoot
	ProductID   uuid.UUID
	MerchantID  uuid.UUID
	SKU         string
	ProductName string
	Size        string
	Color       string
	UnitPrice   decimal.Decimal
	Active      bool
	stock       int
	reserved    int
	dirty       bool
}

// NewProductVariant creates an active variant with the given opening stock
func NewProductVariant(productID, merchantID uuid.UUID, sku, productName, size, color string, unitPrice decimal.Decimal, openingStock int) (*ProductVariant, error) {
	if productID == uuid.Nil || merchantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product and merchant are required")
	}
	if strings.TrimSpace(sku) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "SKU cannot be empty")
	}
	if strings.TrimSpace(productName) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product name cannot be empty")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unit price cannot be negative")
	}
	if openingStock < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Opening stock cannot be negative")
	}
	return &ProductVariant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		MerchantID:        merchantID,
		SKU:               strings.ToUpper(sku),
		ProductName:       productName,
		Size:              size,
		Color:             color,
		UnitPrice:         unitPrice,
		Active:            true,
		stock:             openingStock,
	}, nil
}

// RestoreProductVariant rebuilds a variant from persisted state
func RestoreProductVariant(root shared.BaseAggregateRoot, productID, merchantID uuid.UUID, sku, productName, size, color string, unitPrice decimal.Decimal, active bool, stock, reserved int) *ProductVariant {
	return &ProductVariant{
		BaseAggregateRoot: root,
		ProductID:         productID,
		MerchantID:        merchantID,
		SKU:               sku,
		ProductName:       productName,
		Size:              size,
		Color:             color,
		UnitPrice:         unitPrice,
		Active:            active,
		stock:             stock,
		reserved:          reserved,
	}
}

// Stock returns the quantity available for new reservations
func (v *ProductVariant) Stock() int {
	return v.stock
}

// Reserved returns the quantity held by live reservations
func (v *ProductVariant) Reserved() int {
	return v.reserved
}

// Reserve moves quantity from stock to reserved and returns the hold
func (v *ProductVariant) Reserve(quantity int, reference string, expiresAt, now time.Time) (*inventory.StockReservation, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Reservation quantity must be positive")
	}
	if v.stock < quantity {
		return nil, inventory.NewInsufficientStockError(v.ID, quantity, v.stock)
	}

	v.stock -= quantity
	v.reserved += quantity
	v.touch(now)

	r := inventory.NewStockReservation(v.ID, quantity, reference, expiresAt)
	v.AddDomainEvent(inventory.NewStockLedgerEvent(inventory.EventTypeStockReserved, v.ID, &r.ID, quantity, v.stock, v.reserved))
	return r, nil
}

// ReleaseReservation returns an active hold to stock. Releasing an already
// released or expired reservation is a no-op.
func (v *ProductVariant) ReleaseReservation(r *inventory.StockReservation, expired bool, now time.Time) error {
	if err := v.checkOwnership(r); err != nil {
		return err
	}
	if !r.IsActive() && r.Status != inventory.ReservationStatusCommitted {
		return nil
	}
	if err := r.MarkReleased(now, expired); err != nil {
		return err
	}

	v.reserved -= r.Quantity
	v.stock += r.Quantity
	v.touch(now)

	eventType := inventory.EventTypeReservationReleased
	if expired {
		eventType = inventory.EventTypeReservationExpired
	}
	v.AddDomainEvent(inventory.NewStockLedgerEvent(eventType, v.ID, &r.ID, r.Quantity, v.stock, v.reserved))
	return nil
}

// CommitReservation turns a hold into a permanent decrement
func (v *ProductVariant) CommitReservation(r *inventory.StockReservation, now time.Time) error {
	if err := v.checkOwnership(r); err != nil {
		return err
	}
	if err := r.MarkCommitted(now); err != nil {
		return err
	}

	v.reserved -= r.Quantity
	v.touch(now)

	v.AddDomainEvent(inventory.NewStockLedgerEvent(inventory.EventTypeReservationCommitted, v.ID, &r.ID, r.Quantity, v.stock, v.reserved))
	return nil
}

// Restock adds quantity back to available stock
func (v *ProductVariant) Restock(quantity int, now time.Time) error {
	if quantity <= 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Restock quantity must be positive")
	}
	v.stock += quantity
	v.touch(now)

	v.AddDomainEvent(inventory.NewStockLedgerEvent(inventory.EventTypeStockRestocked, v.ID, nil, quantity, v.stock, v.reserved))
	return nil
}

// UpdatePrice changes the catalog price. Existing order items keep the
// price captured at order time.
func (v *ProductVariant) UpdatePrice(price decimal.Decimal, now time.Time) error {
	if price.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Unit price cannot be negative")
	}
	v.UnitPrice = price
	v.touch(now)
	return nil
}

// SetActive toggles whether the variant can be ordered
func (v *ProductVariant) SetActive(active bool, now time.Time) {
	v.Active = active
	v.touch(now)
}

func (v *ProductVariant) checkOwnership(r *inventory.StockReservation) error {
	if r == nil || r.VariantID != v.ID {
		return shared.NewDomainError(shared.CodeInvalidInput, "Reservation does not belong to this variant")
	}
	return nil
}

// touch bumps the version once per load so SaveWithLock can compare
// against the version that was read.
func (v *ProductVariant) touch(now time.Time) {
	v.UpdatedAt = now
	if !v.dirty {
		v.IncrementVersion()
		v.dirty = true
	}
}

// MarkPersisted resets change tracking after a successful save
func (v *ProductVariant) MarkPersisted() {
	v.dirty = false
}
