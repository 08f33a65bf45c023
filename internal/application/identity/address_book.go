package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

// AddressBook resolves shipping addresses for their owners
type AddressBook struct {
	addresses identity.AddressRepository
}

// NewAddressBook creates a new AddressBook
func NewAddressBook(addresses identity.AddressRepository) *AddressBook {
	return &AddressBook{addresses: addresses}
}

// GetShippingAddress returns the address if it belongs to userID.
// Another user's address is reported as shared.ErrForbidden.
func (b *AddressBook) GetShippingAddress(ctx context.Context, userID, addressID uuid.UUID) (*identity.Address, error) {
	addr, err := b.addresses.FindByID(ctx, addressID)
	if err != nil {
		return nil, err
	}
	if !addr.OwnedBy(userID) {
		return nil, shared.ErrForbidden
	}
	return addr, nil
}

// AddAddress stores a new address for userID
func (b *AddressBook) AddAddress(ctx context.Context, userID uuid.UUID, line, city, country, zone string) (*identity.Address, error) {
	addr, err := identity.NewAddress(userID, line, city, country, zone)
	if err != nil {
		return nil, err
	}
	if err := b.addresses.Save(ctx, addr); err != nil {
		return nil, err
	}
	return addr, nil
}
