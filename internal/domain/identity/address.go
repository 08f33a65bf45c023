package identity

import (
	"strings"

	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

// Address is a shipping address owned by a user. Zone drives shipping fees.
type Address struct {
	shared.BaseEntity
	UserID  uuid.UUID
	Line    string
	City    string
	Country string
	Zone    string
}

// NewAddress creates a shipping address
func NewAddress(userID uuid.UUID, line, city, country, zone string) (*Address, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "User is required")
	}
	if strings.TrimSpace(line) == "" || strings.TrimSpace(city) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Address line and city are required")
	}
	return &Address{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		Line:       line,
		City:       city,
		Country:    strings.ToUpper(country),
		Zone:       strings.ToLower(zone),
	}, nil
}

// OwnedBy reports whether the address belongs to userID
func (a *Address) OwnedBy(userID uuid.UUID) bool {
	return a.UserID == userID
}
