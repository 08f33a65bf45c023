package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

// ReservationStatus is the lifecycle state of a stock reservation
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "ACTIVE"
	ReservationStatusCommitted ReservationStatus = "COMMITTED"
	ReservationStatusReleased  ReservationStatus = "RELEASED"
	ReservationStatusExpired   ReservationStatus = "EXPIRED"
)

// IsValid checks if the status is a known value
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusActive, ReservationStatusCommitted, ReservationStatusReleased, ReservationStatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether the reservation can no longer change
func (s ReservationStatus) IsTerminal() bool {
	return s != ReservationStatusActive
}

// StockReservation is a time-bounded hold against a variant's stock.
// Its ID doubles as the reservation token handed to callers.
type StockReservation struct {
	shared.BaseEntity
	VariantID   uuid.UUID
	Quantity    int
	Status      ReservationStatus
	Reference   string
	ExpiresAt   time.Time
	CommittedAt *time.Time
	ReleasedAt  *time.Time
}

// NewStockReservation creates an active reservation
func NewStockReservation(variantID uuid.UUID, quantity int, reference string, expiresAt time.Time) *StockReservation {
	return &StockReservation{
		BaseEntity: shared.NewBaseEntity(),
		VariantID:  variantID,
		Quantity:   quantity,
		Status:     ReservationStatusActive,
		Reference:  reference,
		ExpiresAt:  expiresAt,
	}
}

// Token returns the reservation token
func (r *StockReservation) Token() ReservationToken {
	return ReservationToken{ID: r.ID, VariantID: r.VariantID, Quantity: r.Quantity, ExpiresAt: r.ExpiresAt}
}

// IsActive returns true if the reservation still holds stock
func (r *StockReservation) IsActive() bool {
	return r.Status == ReservationStatusActive
}

// IsExpiredAt reports whether an active reservation has outlived its deadline
func (r *StockReservation) IsExpiredAt(now time.Time) bool {
	return r.IsActive() && !now.Before(r.ExpiresAt)
}

// MarkCommitted converts the hold into a permanent decrement
func (r *StockReservation) MarkCommitted(now time.Time) error {
	if !r.IsActive() {
		return shared.NewDomainError(shared.CodeReservationExpired,
			"Reservation "+r.ID.String()+" is "+string(r.Status)+" and cannot be committed")
	}
	r.Status = ReservationStatusCommitted
	r.CommittedAt = &now
	r.UpdatedAt = now
	return nil
}

// MarkReleased gives the hold back. Expired marks a sweep release.
func (r *StockReservation) MarkReleased(now time.Time, expired bool) error {
	if r.Status == ReservationStatusCommitted {
		return shared.NewDomainError(shared.CodeInvalidState,
			"Reservation "+r.ID.String()+" is already committed")
	}
	if !r.IsActive() {
		return nil
	}
	r.Status = ReservationStatusReleased
	if expired {
		r.Status = ReservationStatusExpired
	}
	r.ReleasedAt = &now
	r.UpdatedAt = now
	return nil
}

// ReservationToken is what callers hold on to between reserve and
// commit/release
type ReservationToken struct {
	ID        uuid.UUID `json:"id"`
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
	ExpiresAt time.Time `json:"expires_at"`
}
