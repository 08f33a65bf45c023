package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/order"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

// OrderEventHandler fans order events out to the customer and to the
// merchants involved. Merchant-scoped events go to that merchant only.
type OrderEventHandler struct {
	registry *Registry
	logger   *zap.Logger
}

// NewOrderEventHandler creates a handler publishing into registry
func NewOrderEventHandler(registry *Registry, logger *zap.Logger) *OrderEventHandler {
	return &OrderEventHandler{registry: registry, logger: logger}
}

// EventTypes returns the order event types
func (h *OrderEventHandler) EventTypes() []string {
	return []string{
		order.EventTypeOrderPlaced,
		order.EventTypeOrderConfirmed,
		order.EventTypeMerchantOrderConfirmed,
		order.EventTypeOrderDelivered,
		order.EventTypeOrderCancelled,
		order.EventTypePaymentStatusChanged,
	}
}

// Handle publishes the event to every recipient's open connections
func (h *OrderEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*order.OrderEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for %s", event, event.EventType())
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.EventType(), err)
	}
	msg := Message{
		Event: e.EventType(),
		Data:  string(data),
		ID:    e.EventID().String(),
	}

	delivered := 0
	for _, userID := range recipients(e) {
		delivered += h.registry.Publish(userID, msg)
	}

	h.logger.Debug("order event fanned out",
		zap.String("event_type", e.EventType()),
		zap.String("order_id", e.OrderID.String()),
		zap.Int("delivered", delivered),
	)
	return nil
}

func recipients(e *order.OrderEvent) []uuid.UUID {
	out := []uuid.UUID{e.UserID}
	if e.MerchantID != nil {
		if *e.MerchantID != e.UserID {
			out = append(out, *e.MerchantID)
		}
		return out
	}
	for _, m := range e.MerchantIDs {
		if m != e.UserID {
			out = append(out, m)
		}
	}
	return out
}

var _ shared.EventHandler = (*OrderEventHandler)(nil)
