package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
)

// UserModel is the persistence model for the User aggregate.
type UserModel struct {
	AggregateModel
	Email        string        `gorm:"type:varchar(200);not null;uniqueIndex"`
	DisplayName  string        `gorm:"type:varchar(100)"`
	PasswordHash string        `gorm:"type:varchar(255);not null"`
	Role         identity.Role `gorm:"type:varchar(16);not null;index"`
	Active       bool          `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Email:             m.Email,
		DisplayName:       m.DisplayName,
		PasswordHash:      m.PasswordHash,
		Role:              m.Role,
		Active:            m.Active,
		LastLoginAt:       m.LastLoginAt,
	}
}

// FromDomain populates the persistence model from a domain User.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Email = u.Email
	m.DisplayName = u.DisplayName
	m.PasswordHash = u.PasswordHash
	m.Role = u.Role
	m.Active = u.Active
	m.LastLoginAt = u.LastLoginAt
}

// CustomerProfileModel holds customer-only data keyed by user.
type CustomerProfileModel struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Phone     string    `gorm:"type:varchar(32)"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerProfileModel) TableName() string {
	return "customer_profiles"
}

// FromDomain populates the persistence model from a domain CustomerProfile.
func (m *CustomerProfileModel) FromDomain(p *identity.CustomerProfile) {
	m.UserID = p.UserID
	m.Phone = p.Phone
	m.CreatedAt = p.CreatedAt
	m.UpdatedAt = p.UpdatedAt
}

// MerchantProfileModel holds merchant-only data keyed by user.
type MerchantProfileModel struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	StoreName string    `gorm:"type:varchar(200);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MerchantProfileModel) TableName() string {
	return "merchant_profiles"
}

// FromDomain populates the persistence model from a domain MerchantProfile.
func (m *MerchantProfileModel) FromDomain(p *identity.MerchantProfile) {
	m.UserID = p.UserID
	m.StoreName = p.StoreName
	m.CreatedAt = p.CreatedAt
	m.UpdatedAt = p.UpdatedAt
}

// AddressModel is the persistence model for a shipping address.
type AddressModel struct {
	BaseModel
	UserID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Line    string    `gorm:"type:varchar(255);not null"`
	City    string    `gorm:"type:varchar(100);not null"`
	Country string    `gorm:"type:varchar(2)"`
	Zone    string    `gorm:"type:varchar(32)"`
}

// TableName returns the table name for GORM
func (AddressModel) TableName() string {
	return "addresses"
}

// ToDomain converts the persistence model to a domain Address.
func (m *AddressModel) ToDomain() *identity.Address {
	return &identity.Address{
		BaseEntity: m.BaseModel.ToDomain(),
		UserID:     m.UserID,
		Line:       m.Line,
		City:       m.City,
		Country:    m.Country,
		Zone:       m.Zone,
	}
}

// FromDomain populates the persistence model from a domain Address.
func (m *AddressModel) FromDomain(a *identity.Address) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.UserID = a.UserID
	m.Line = a.Line
	m.City = a.City
	m.Country = a.Country
	m.Zone = a.Zone
}

// All returns every model in dependency order, for AutoMigrate in tests.
func All() []any {
	return []any{
		&UserModel{},
		&CustomerProfileModel{},
		&MerchantProfileModel{},
		&AddressModel{},
		&ProductVariantModel{},
		&StockReservationModel{},
		&OrderModel{},
		&OrderItemModel{},
		&MerchantOrderModel{},
	}
}
