package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/auth"
	"go.uber.org/zap"
)

var errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	logger     *zap.Logger
	clock      func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(userRepo identity.UserRepository, jwtService *auth.JWTService, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		logger:     logger,
		clock:      time.Now,
	}
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("User not found during login", zap.String("email", input.Email))
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if !user.Active {
		s.logger.Warn("Login attempt for deactivated account", zap.String("email", input.Email))
		return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	}

	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("email", input.Email))
		return nil, errInvalidCredentials
	}

	tokenPair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	user.RecordLogin(s.clock())
	if err := s.userRepo.Save(ctx, user); err != nil {
		// the login itself succeeded
		s.logger.Error("Failed to update user after successful login", zap.Error(err))
	}

	s.logger.Info("User logged in successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	return &LoginResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
		User:                  toUserInfo(user),
	}, nil
}

// RefreshToken issues a new token pair from a valid refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*RefreshTokenResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			return nil, shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
		case errors.Is(err, auth.ErrMaxRefreshExceeded):
			return nil, shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
		default:
			return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
		}
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid user ID in token")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("User not found during token refresh", zap.String("user_id", userID.String()))
		return nil, shared.NewDomainError("TOKEN_INVALID", "User no longer exists")
	}
	if !user.Active {
		return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	}

	pair, err := s.jwtService.RefreshTokenPair(claims, auth.GenerateTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		if errors.Is(err, auth.ErrMaxRefreshExceeded) {
			return nil, shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to refresh tokens")
	}

	return &RefreshTokenResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}, nil
}

// Register creates a user together with the profile matching its role.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*UserInfo, error) {
	if _, err := s.userRepo.FindByEmail(ctx, input.Email); err == nil {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Email is already registered")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	user, err := identity.NewUser(input.Email, input.DisplayName, input.Password, input.Role)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	now := s.clock()
	switch user.Role {
	case identity.RoleMerchant:
		storeName := input.StoreName
		if storeName == "" {
			storeName = user.DisplayName
		}
		err = s.userRepo.SaveMerchantProfile(ctx, &identity.MerchantProfile{
			UserID: user.ID, StoreName: storeName, CreatedAt: now, UpdatedAt: now,
		})
	case identity.RoleCustomer:
		err = s.userRepo.SaveCustomerProfile(ctx, &identity.CustomerProfile{
			UserID: user.ID, Phone: input.Phone, CreatedAt: now, UpdatedAt: now,
		})
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	info := toUserInfo(user)
	return &info, nil
}
