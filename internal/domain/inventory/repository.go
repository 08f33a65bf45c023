package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReservationRepository persists stock reservations
type ReservationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StockReservation, error)
	// FindByIDForUpdate loads the reservation and locks its row for the
	// rest of the transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*StockReservation, error)
	// FindExpired returns active reservations whose deadline is at or
	// before now, oldest first
	FindExpired(ctx context.Context, now time.Time, limit int) ([]StockReservation, error)
	Save(ctx context.Context, reservation *StockReservation) error
}
