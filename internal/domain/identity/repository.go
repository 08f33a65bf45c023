package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository persists users and their profiles
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
	SaveMerchantProfile(ctx context.Context, profile *MerchantProfile) error
	SaveCustomerProfile(ctx context.Context, profile *CustomerProfile) error
}

// AddressRepository persists shipping addresses
type AddressRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Address, error)
	Save(ctx context.Context, address *Address) error
}
