package testutil

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
)

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("seed"), NewTestUUID("seed"))
	assert.NotEqual(t, NewTestUUID("seed-1"), NewTestUUID("seed-2"))
}

func TestPrincipals(t *testing.T) {
	tests := []struct {
		name      string
		principal identity.Principal
		id        uuid.UUID
		role      identity.Role
	}{
		{"customer", Customer(), TestCustomerID(), identity.RoleCustomer},
		{"merchant", Merchant(), TestMerchantID(), identity.RoleMerchant},
		{"admin", Admin(), TestAdminID(), identity.RoleAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.id, tt.principal.UserID)
			assert.Equal(t, tt.role, tt.principal.Role)
		})
	}
	assert.True(t, Admin().IsAdmin())
	assert.False(t, Merchant().IsAdmin())
}

func TestContextWithTimeout(t *testing.T) {
	ctx := ContextWithTimeout(t, 50*time.Millisecond)

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled")
	}
}

func TestRequireEventually(t *testing.T) {
	var flag atomic.Bool
	go func() {
		time.Sleep(20 * time.Millisecond)
		flag.Store(true)
	}()

	RequireEventually(t, flag.Load, time.Second, 5*time.Millisecond)
}

func TestAssertNever(t *testing.T) {
	AssertNever(t, func() bool { return false }, 30*time.Millisecond, 5*time.Millisecond)
}
