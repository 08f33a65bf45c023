package inventory

import (
	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

// AggregateTypeVariantStock is the aggregate type for stock ledger events
const AggregateTypeVariantStock = "VariantStock"

// Event type constants
const (
	EventTypeStockReserved        = "StockReserved"
	EventTypeReservationReleased  = "ReservationReleased"
	EventTypeReservationExpired   = "ReservationExpired"
	EventTypeReservationCommitted = "ReservationCommitted"
	EventTypeStockRestocked       = "StockRestocked"
)

// StockLedgerEvent is raised for every movement on a variant's stock
type StockLedgerEvent struct {
	shared.BaseDomainEvent
	VariantID     uuid.UUID  `json:"variant_id"`
	ReservationID *uuid.UUID `json:"reservation_id,omitempty"`
	Quantity      int        `json:"quantity"`
	StockAfter    int        `json:"stock_after"`
	ReservedAfter int        `json:"reserved_after"`
}

// NewStockLedgerEvent creates a ledger event of the given type
func NewStockLedgerEvent(eventType string, variantID uuid.UUID, reservationID *uuid.UUID, quantity, stockAfter, reservedAfter int) *StockLedgerEvent {
	return &StockLedgerEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeVariantStock, variantID),
		VariantID:       variantID,
		ReservationID:   reservationID,
		Quantity:        quantity,
		StockAfter:      stockAfter,
		ReservedAfter:   reservedAfter,
	}
}
