// Package testutil provides shared fixtures for the marketplace tests:
// deterministic IDs and principals, an in-memory store that satisfies the
// repository and transaction scope interfaces, event recorders and an HTTP
// client for end-to-end tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// NewTestUUID generates a deterministic UUID from seed.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// TestCustomerID returns the standard customer ID for tests.
func TestCustomerID() uuid.UUID {
	return NewTestUUID("test-customer")
}

// TestMerchantID returns the standard merchant ID for tests.
func TestMerchantID() uuid.UUID {
	return NewTestUUID("test-merchant")
}

// TestAdminID returns the standard admin ID for tests.
func TestAdminID() uuid.UUID {
	return NewTestUUID("test-admin")
}

// Customer returns a principal for the standard test customer.
func Customer() identity.Principal {
	return identity.Principal{UserID: TestCustomerID(), Role: identity.RoleCustomer}
}

// Merchant returns a principal for the standard test merchant.
func Merchant() identity.Principal {
	return identity.Principal{UserID: TestMerchantID(), Role: identity.RoleMerchant}
}

// Admin returns a principal for the standard test admin.
func Admin() identity.Principal {
	return identity.Principal{UserID: TestAdminID(), Role: identity.RoleAdmin}
}

// ContextWithTimeout creates a context that is cancelled when the test ends.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// RequireEventually polls condition until it holds or timeout passes.
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...any) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}

	require.Fail(t, "Condition not met within timeout", msgAndArgs...)
}

// AssertNever verifies condition stays false for duration.
func AssertNever(t *testing.T, condition func() bool, duration, interval time.Duration, msgAndArgs ...any) {
	t.Helper()

	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if condition() {
			require.Fail(t, "Condition unexpectedly became true", msgAndArgs...)
		}
		time.Sleep(interval)
	}
}
