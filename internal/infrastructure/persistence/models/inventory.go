package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/inventory"
)

// StockReservationModel is the persistence model for StockReservation.
type StockReservationModel struct {
	BaseModel
	VariantID   uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Quantity    int                         `gorm:"not null"`
	Status      inventory.ReservationStatus `gorm:"type:varchar(16);not null;index:idx_stock_reservations_status_expires,priority:1"`
	Reference   string                      `gorm:"type:varchar(64);index"`
	ExpiresAt   time.Time                   `gorm:"not null;index:idx_stock_reservations_status_expires,priority:2"`
	CommittedAt *time.Time
	ReleasedAt  *time.Time
}

// TableName returns the table name for GORM
func (StockReservationModel) TableName() string {
	return "stock_reservations"
}

// ToDomain converts the persistence model to a domain StockReservation.
func (m *StockReservationModel) ToDomain() *inventory.StockReservation {
	return &inventory.StockReservation{
		BaseEntity:  m.BaseModel.ToDomain(),
		VariantID:   m.VariantID,
		Quantity:    m.Quantity,
		Status:      m.Status,
		Reference:   m.Reference,
		ExpiresAt:   m.ExpiresAt,
		CommittedAt: m.CommittedAt,
		ReleasedAt:  m.ReleasedAt,
	}
}

// FromDomain populates the persistence model from a domain StockReservation.
func (m *StockReservationModel) FromDomain(r *inventory.StockReservation) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.VariantID = r.VariantID
	m.Quantity = r.Quantity
	m.Status = r.Status
	m.Reference = r.Reference
	m.ExpiresAt = r.ExpiresAt
	m.CommittedAt = r.CommittedAt
	m.ReleasedAt = r.ReleasedAt
}

// StockReservationModelFromDomain creates a persistence model from a domain StockReservation.
func StockReservationModelFromDomain(r *inventory.StockReservation) *StockReservationModel {
	m := &StockReservationModel{}
	m.FromDomain(r)
	return m
}
