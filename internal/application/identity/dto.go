package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
	User                  UserInfo
}

// UserInfo contains basic user information returned after login
type UserInfo struct {
	ID          uuid.UUID     `json:"id"`
	Email       string        `json:"email"`
	DisplayName string        `json:"display_name"`
	Role        identity.Role `json:"role"`
}

// RefreshTokenResult contains the result of a token refresh
type RefreshTokenResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

// RegisterInput creates a user with its role profile
type RegisterInput struct {
	Email       string
	DisplayName string
	Password    string
	Role        identity.Role
	StoreName   string
	Phone       string
}

func toUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
	}
}
