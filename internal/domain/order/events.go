package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

// Event type constants
const (
	EventTypeOrderPlaced            = "OrderPlaced"
	EventTypeOrderConfirmed         = "OrderConfirmed"
	EventTypeMerchantOrderConfirmed = "MerchantOrderConfirmed"
	EventTypeOrderDelivered         = "OrderDelivered"
	EventTypeOrderCancelled         = "OrderCancelled"
	EventTypePaymentStatusChanged   = "OrderPaymentStatusChanged"
)

// OrderEvent is raised on every order lifecycle change. MerchantID is set
// only for merchant-scoped events.
type OrderEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	UserID        uuid.UUID       `json:"user_id"`
	MerchantIDs   []uuid.UUID     `json:"merchant_ids"`
	MerchantID    *uuid.UUID      `json:"merchant_id,omitempty"`
	Status        Status          `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Total         decimal.Decimal `json:"total"`
}

// NewOrderEvent snapshots the order into an event
func NewOrderEvent(eventType string, o *Order, merchantID uuid.UUID) *OrderEvent {
	e := &OrderEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		MerchantIDs:     o.MerchantIDs(),
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		Total:           o.Total,
	}
	if merchantID != uuid.Nil {
		e.MerchantID = &merchantID
	}
	return e
}
