package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Role tags what kind of account a user is. Role-specific data lives in
// the linked profile records.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleMerchant Role = "MERCHANT"
	RoleAdmin    Role = "ADMIN"
)

// IsValid checks if the role is a known value
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleMerchant, RoleAdmin:
		return true
	}
	return false
}

// Password cost for bcrypt
const bcryptCost = 12

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// User is a single identity for customers, merchants and admins
type User struct {
	shared.BaseAggregateRoot
	Email        string
	DisplayName  string
	PasswordHash string
	Role         Role
	Active       bool
	LastLoginAt  *time.Time
}

// NewUser creates an active user
func NewUser(email, displayName, password string, role Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(email) > 200 || !emailRegex.MatchString(email) {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown role "+string(role))
	}
	if len(password) < 8 {
		return nil, shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		DisplayName:       displayName,
		PasswordHash:      string(hash),
		Role:              role,
		Active:            true,
	}, nil
}

// VerifyPassword checks a plaintext password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// RecordLogin stamps the last successful login
func (u *User) RecordLogin(now time.Time) {
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// IsMerchant reports whether the user sells on the platform
func (u *User) IsMerchant() bool {
	return u.Role == RoleMerchant
}

// IsAdmin reports whether the user administers the platform
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
