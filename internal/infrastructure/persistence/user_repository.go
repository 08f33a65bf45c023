package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByEmail finds a user by email, case-insensitively
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *GormUserRepository) findOne(ctx context.Context, query string, arg any) (*identity.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a user
func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	var model models.UserModel
	model.FromDomain(user)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Email is already registered")
		}
		return err
	}
	return nil
}

// SaveMerchantProfile upserts the merchant profile of a user
func (r *GormUserRepository) SaveMerchantProfile(ctx context.Context, profile *identity.MerchantProfile) error {
	var model models.MerchantProfileModel
	model.FromDomain(profile)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"store_name", "updated_at"}),
		}).
		Create(&model).Error
}

// SaveCustomerProfile upserts the customer profile of a user
func (r *GormUserRepository) SaveCustomerProfile(ctx context.Context, profile *identity.CustomerProfile) error {
	var model models.CustomerProfileModel
	model.FromDomain(profile)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"phone", "updated_at"}),
		}).
		Create(&model).Error
}

// GormAddressRepository implements identity.AddressRepository using GORM
type GormAddressRepository struct {
	db *gorm.DB
}

// NewGormAddressRepository creates a new GormAddressRepository
func NewGormAddressRepository(db *gorm.DB) *GormAddressRepository {
	return &GormAddressRepository{db: db}
}

// FindByID finds an address by ID
func (r *GormAddressRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Address, error) {
	var model models.AddressModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates an address
func (r *GormAddressRepository) Save(ctx context.Context, address *identity.Address) error {
	var model models.AddressModel
	model.FromDomain(address)
	return r.db.WithContext(ctx).Save(&model).Error
}

var (
	_ identity.UserRepository    = (*GormUserRepository)(nil)
	_ identity.AddressRepository = (*GormAddressRepository)(nil)
)
