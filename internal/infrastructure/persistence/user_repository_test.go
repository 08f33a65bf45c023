package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/persistence/models"
)

func TestGormUserRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormUserRepository(db.DB)
	ctx := context.Background()

	user, err := identity.NewUser("Ada@Example.com", "Ada", "correct-horse", identity.RoleMerchant)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, user))

	t.Run("finds by email case-insensitively", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, "  ADA@example.com ")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		assert.Equal(t, identity.RoleMerchant, found.Role)
		assert.True(t, found.VerifyPassword("correct-horse"))
	})

	t.Run("save updates last login", func(t *testing.T) {
		user.RecordLogin(time.Now())
		require.NoError(t, repo.Save(ctx, user))

		found, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.NotNil(t, found.LastLoginAt)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		dup, err := identity.NewUser("ada@example.com", "Other", "password123", identity.RoleCustomer)
		require.NoError(t, err)
		err = repo.Save(ctx, dup)
		assert.Equal(t, shared.CodeAlreadyExists, shared.ErrorCode(err))
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("profiles upsert", func(t *testing.T) {
		now := time.Now()
		profile := &identity.MerchantProfile{UserID: user.ID, StoreName: "Ada's Linen", CreatedAt: now, UpdatedAt: now}
		require.NoError(t, repo.SaveMerchantProfile(ctx, profile))
		profile.StoreName = "Ada & Co"
		require.NoError(t, repo.SaveMerchantProfile(ctx, profile))

		var stored models.MerchantProfileModel
		require.NoError(t, db.DB.First(&stored, "user_id = ?", user.ID).Error)
		assert.Equal(t, "Ada & Co", stored.StoreName)

		customer := &identity.CustomerProfile{UserID: user.ID, Phone: "+90 555 000 0000", CreatedAt: now, UpdatedAt: now}
		require.NoError(t, repo.SaveCustomerProfile(ctx, customer))
		var count int64
		require.NoError(t, db.DB.Model(&models.CustomerProfileModel{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestGormAddressRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormAddressRepository(db.DB)
	ctx := context.Background()

	addr, err := identity.NewAddress(uuid.New(), "Bagdat Cd. 10", "Istanbul", "TR", "domestic")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, addr))

	found, err := repo.FindByID(ctx, addr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Istanbul", found.City)
	assert.Equal(t, "domestic", found.Zone)
	assert.True(t, found.OwnedBy(addr.UserID))

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
