package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
)

func newAuthRouter(cfg JWTConfig, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Authenticate(cfg))
	handlers := append(extra, func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": p.UserID.String(), "role": p.Role})
	})
	r.GET("/me", handlers...)
	return r
}

func TestAuthenticate(t *testing.T) {
	svc := newTestJWTService(time.Minute)
	userID := uuid.New()
	token := issueToken(t, svc, userID, string(identity.RoleCustomer))

	tests := []struct {
		name       string
		header     string
		query      string
		allowQuery bool
		wantStatus int
		wantCode   string
	}{
		{"valid bearer", "Bearer " + token, "", false, http.StatusOK, ""},
		{"missing header", "", "", false, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic " + token, "", false, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"empty bearer", "Bearer ", "", false, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", "Bearer not-a-jwt", "", false, http.StatusUnauthorized, "TOKEN_INVALID"},
		{"query token accepted when allowed", "", token, true, http.StatusOK, ""},
		{"query token ignored by default", "", token, false, http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newAuthRouter(JWTConfig{Validator: svc, AllowQueryToken: tt.allowQuery})

			url := "/me"
			if tt.query != "" {
				url += "?" + AccessTokenQueryParam + "=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				resp := decodeResponse(t, w)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.wantCode, resp.Error.Code)
				return
			}
			assert.Contains(t, w.Body.String(), userID.String())
		})
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	svc := newTestJWTService(-time.Minute)
	token := issueToken(t, svc, uuid.New(), string(identity.RoleCustomer))

	r := newAuthRouter(JWTConfig{Validator: svc})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(AuthHeaderKey, "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_EXPIRED", decodeResponse(t, w).Error.Code)
}

func TestRequireRoles(t *testing.T) {
	svc := newTestJWTService(time.Minute)
	r := newAuthRouter(JWTConfig{Validator: svc}, RequireRoles(identity.RoleMerchant, identity.RoleAdmin))

	tests := []struct {
		role       identity.Role
		wantStatus int
	}{
		{identity.RoleMerchant, http.StatusOK},
		{identity.RoleAdmin, http.StatusOK},
		{identity.RoleCustomer, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set(AuthHeaderKey, "Bearer "+issueToken(t, svc, uuid.New(), string(tt.role)))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRequireRoles_WithoutAuthentication(t *testing.T) {
	r := gin.New()
	r.GET("/", RequireRoles(identity.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
