package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/auth"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/logger"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Context keys set by Authenticate
const (
	JWTClaimsKey    = "jwt_claims"
	JWTPrincipalKey = "jwt_principal"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
	// AccessTokenQueryParam lets EventSource clients, which cannot set
	// headers, authenticate GET requests.
	AccessTokenQueryParam = "access_token"
)

// TokenValidator validates access tokens
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// JWTConfig holds configuration for the JWT middleware
type JWTConfig struct {
	Validator       TokenValidator
	AllowQueryToken bool
	Logger          *zap.Logger
}

// Authenticate validates the bearer token and stores the caller's
// Principal on the context
func Authenticate(cfg JWTConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		token, ok := extractToken(c, cfg.AllowQueryToken)
		if !ok {
			abortWithError(c, shared.CodeUnauthorized, "Authentication required")
			return
		}

		claims, err := cfg.Validator.ValidateAccessToken(token)
		if err != nil {
			log.Debug("JWT authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
			)
			code, msg := dto.ErrCodeTokenInvalid, "Invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				code, msg = dto.ErrCodeTokenExpired, "Token has expired"
			}
			abortWithError(c, code, msg)
			return
		}

		userID, err := claims.GetUserUUID()
		if err != nil {
			abortWithError(c, dto.ErrCodeTokenInvalid, "Invalid token subject")
			return
		}
		principal := identity.Principal{UserID: userID, Role: identity.Role(claims.Role)}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTPrincipalKey, principal)
		c.Set(logger.GinUserIDKey, claims.UserID)

		ctx, _ := logger.WithUserID(c.Request.Context(), logger.FromContext(c.Request.Context()), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func extractToken(c *gin.Context, allowQuery bool) (string, bool) {
	if header := c.GetHeader(AuthHeaderKey); header != "" {
		token, found := strings.CutPrefix(header, BearerPrefix)
		return token, found && token != ""
	}
	if allowQuery && c.Request.Method == http.MethodGet {
		token := c.Query(AccessTokenQueryParam)
		return token, token != ""
	}
	return "", false
}

// GetPrincipal returns the authenticated caller
func GetPrincipal(c *gin.Context) (identity.Principal, bool) {
	v, ok := c.Get(JWTPrincipalKey)
	if !ok {
		return identity.Principal{}, false
	}
	p, ok := v.(identity.Principal)
	return p, ok
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// RequireRoles lets through only callers holding one of roles.
// It must run after Authenticate.
func RequireRoles(roles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			abortWithError(c, shared.CodeUnauthorized, "Authentication required")
			return
		}
		if !slices.Contains(roles, p.Role) {
			abortWithError(c, shared.CodeForbidden, "Insufficient role for this operation")
			return
		}
		c.Next()
	}
}
