package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/auth"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/config"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService(ttl time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-that-is-long-enough-for-hs256",
		AccessTokenExpiration:  ttl,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "marketplace-test",
		MaxRefreshCount:        3,
	})
}

func issueToken(t *testing.T, svc *auth.JWTService, userID uuid.UUID, role string) string {
	t.Helper()
	pair, err := svc.GenerateTokenPair(auth.GenerateTokenInput{UserID: userID, Role: role})
	require.NoError(t, err)
	return pair.AccessToken
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
