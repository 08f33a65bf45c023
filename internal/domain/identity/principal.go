package identity

import "github.com/google/uuid"

// Principal is the authenticated caller of an operation
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin reports whether the caller has the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsMerchant reports whether the caller has the merchant role
func (p Principal) IsMerchant() bool {
	return p.Role == RoleMerchant
}

// ActsFor reports whether the caller is the given user or an admin
func (p Principal) ActsFor(userID uuid.UUID) bool {
	return p.IsAdmin() || (p.UserID != uuid.Nil && p.UserID == userID)
}
