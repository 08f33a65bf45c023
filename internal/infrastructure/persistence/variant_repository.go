package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/catalog"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVariantRepository implements catalog.VariantRepository using GORM
type GormVariantRepository struct {
	db *gorm.DB
}

// NewGormVariantRepository creates a new GormVariantRepository
func NewGormVariantRepository(db *gorm.DB) *GormVariantRepository {
	return &GormVariantRepository{db: db}
}

// FindByID finds a variant by its ID
func (r *GormVariantRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.ProductVariant, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a variant and takes a row lock on it (SELECT ... FOR UPDATE)
func (r *GormVariantRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.ProductVariant, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormVariantRepository) find(db *gorm.DB, id uuid.UUID) (*catalog.ProductVariant, error) {
	var model models.ProductVariantModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple variants. Missing IDs are skipped.
func (r *GormVariantRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.ProductVariant, error) {
	if len(ids) == 0 {
		return []catalog.ProductVariant{}, nil
	}

	var rows []models.ProductVariantModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	variants := make([]catalog.ProductVariant, len(rows))
	for i := range rows {
		variants[i] = *rows[i].ToDomain()
	}
	return variants, nil
}

// Create inserts a new variant
func (r *GormVariantRepository) Create(ctx context.Context, variant *catalog.ProductVariant) error {
	model := models.ProductVariantModelFromDomain(variant)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeAlreadyExists, "A variant with this SKU already exists")
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormVariantRepository) SaveWithLock(ctx context.Context, variant *catalog.ProductVariant) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProductVariantModel{}).
		Where("id = ? AND version = ?", variant.ID, variant.Version-1).
		Updates(map[string]interface{}{
			"product_name": variant.ProductName,
			"size":         variant.Size,
			"color":        variant.Color,
			"unit_price":   variant.UnitPrice,
			"active":       variant.Active,
			"stock":        variant.Stock(),
			"reserved":     variant.Reserved(),
			"version":      variant.Version,
			"updated_at":   variant.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ catalog.VariantRepository = (*GormVariantRepository)(nil)
