package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/inventory"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormReservationRepository implements inventory.ReservationRepository using GORM
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// FindByID finds a reservation by its ID
func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockReservation, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a reservation and locks its row
func (r *GormReservationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.StockReservation, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormReservationRepository) find(db *gorm.DB, id uuid.UUID) (*inventory.StockReservation, error) {
	var model models.StockReservationModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindExpired finds active reservations whose deadline has passed, oldest first
func (r *GormReservationRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]inventory.StockReservation, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", inventory.ReservationStatusActive, now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.StockReservationModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	reservations := make([]inventory.StockReservation, len(rows))
	for i := range rows {
		reservations[i] = *rows[i].ToDomain()
	}
	return reservations, nil
}

// Save creates or updates a reservation
func (r *GormReservationRepository) Save(ctx context.Context, reservation *inventory.StockReservation) error {
	return r.db.WithContext(ctx).Save(models.StockReservationModelFromDomain(reservation)).Error
}

var _ inventory.ReservationRepository = (*GormReservationRepository)(nil)
