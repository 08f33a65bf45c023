package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

// ListScope narrows order listings to what a caller may see
type ListScope struct {
	UserID     *uuid.UUID
	MerchantID *uuid.UUID
	Status     *Status
}

// Repository persists orders with their items and merchant partitions
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	List(ctx context.Context, scope ListScope, filter shared.Filter) ([]Order, int64, error)
	// Create inserts the order, its items and merchant orders
	Create(ctx context.Context, o *Order) error
	// SaveWithLock updates status fields guarded by the version read at load
	// time, returning shared.ErrConcurrencyConflict when it moved
	SaveWithLock(ctx context.Context, o *Order) error
}
