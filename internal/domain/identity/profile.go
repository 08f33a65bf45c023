package identity

import (
	"time"

	"github.com/google/uuid"
)

// CustomerProfile holds customer-only data linked to a User
type CustomerProfile struct {
	UserID    uuid.UUID
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MerchantProfile holds merchant-only data linked to a User. The merchant
// ID used throughout the catalog and orders is the owning user's ID.
type MerchantProfile struct {
	UserID    uuid.UUID
	StoreName string
	CreatedAt time.Time
	UpdatedAt time.Time
}
