package catalog

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yazilimxyz/marketplace/internal/domain/inventory"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

func newTestVariant(t *testing.T, stock int) *ProductVariant {
	t.Helper()
	v, err := NewProductVariant(uuid.New(), uuid.New(), "tee-red-m", "Basic Tee", "M", "Red", decimal.NewFromInt(50), stock)
	require.NoError(t, err)
	return v
}

func TestNewProductVariant(t *testing.T) {
	t.Run("creates active variant", func(t *testing.T) {
		v := newTestVariant(t, 5)
		assert.Equal(t, "TEE-RED-M", v.SKU)
		assert.True(t, v.Active)
		assert.Equal(t, 5, v.Stock())
		assert.Equal(t, 0, v.Reserved())
		assert.Equal(t, 1, v.GetVersion())
	})

	t.Run("rejects negative stock", func(t *testing.T) {
		_, err := NewProductVariant(uuid.New(), uuid.New(), "sku", "Tee", "", "", decimal.Zero, -1)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := NewProductVariant(uuid.New(), uuid.New(), "sku", "Tee", "", "", decimal.NewFromInt(-1), 1)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("requires merchant", func(t *testing.T) {
		_, err := NewProductVariant(uuid.New(), uuid.Nil, "sku", "Tee", "", "", decimal.Zero, 1)
		assert.Error(t, err)
	})
}

func TestProductVariant_Reserve(t *testing.T) {
	now := time.Now()

	t.Run("moves stock into reserved", func(t *testing.T) {
		v := newTestVariant(t, 5)
		r, err := v.Reserve(2, "checkout", now.Add(time.Minute), now)
		require.NoError(t, err)

		assert.Equal(t, 3, v.Stock())
		assert.Equal(t, 2, v.Reserved())
		assert.Equal(t, v.ID, r.VariantID)
		assert.True(t, r.IsActive())
		assert.Equal(t, 2, v.GetVersion())
		require.Len(t, v.GetDomainEvents(), 1)
		assert.Equal(t, inventory.EventTypeStockReserved, v.GetDomainEvents()[0].EventType())
	})

	t.Run("reports shortfall when stock is insufficient", func(t *testing.T) {
		v := newTestVariant(t, 1)
		_, err := v.Reserve(3, "checkout", now.Add(time.Minute), now)

		var stockErr *inventory.InsufficientStockError
		require.True(t, errors.As(err, &stockErr))
		require.Len(t, stockErr.Shortages, 1)
		assert.Equal(t, v.ID, stockErr.Shortages[0].VariantID)
		assert.Equal(t, 2, stockErr.Shortages[0].Shortfall)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Equal(t, 1, v.Stock())
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		v := newTestVariant(t, 1)
		_, err := v.Reserve(0, "checkout", now, now)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("version increments once per load", func(t *testing.T) {
		v := newTestVariant(t, 10)
		_, err := v.Reserve(1, "a", now.Add(time.Minute), now)
		require.NoError(t, err)
		_, err = v.Reserve(1, "b", now.Add(time.Minute), now)
		require.NoError(t, err)
		assert.Equal(t, 2, v.GetVersion())

		v.MarkPersisted()
		require.NoError(t, v.Restock(1, now))
		assert.Equal(t, 3, v.GetVersion())
	})
}

func TestProductVariant_ReleaseReservation(t *testing.T) {
	now := time.Now()

	t.Run("returns stock", func(t *testing.T) {
		v := newTestVariant(t, 5)
		r, err := v.Reserve(2, "checkout", now.Add(time.Minute), now)
		require.NoError(t, err)

		require.NoError(t, v.ReleaseReservation(r, false, now))
		assert.Equal(t, 5, v.Stock())
		assert.Equal(t, 0, v.Reserved())
		assert.Equal(t, inventory.ReservationStatusReleased, r.Status)
		assert.NotNil(t, r.ReleasedAt)
	})

	t.Run("is idempotent", func(t *testing.T) {
		v := newTestVariant(t, 5)
		r, _ := v.Reserve(2, "checkout", now.Add(time.Minute), now)
		require.NoError(t, v.ReleaseReservation(r, true, now))
		require.NoError(t, v.ReleaseReservation(r, false, now))
		assert.Equal(t, 5, v.Stock())
		assert.Equal(t, inventory.ReservationStatusExpired, r.Status)
	})

	t.Run("refuses committed reservation", func(t *testing.T) {
		v := newTestVariant(t, 5)
		r, _ := v.Reserve(2, "checkout", now.Add(time.Minute), now)
		require.NoError(t, v.CommitReservation(r, now))

		err := v.ReleaseReservation(r, false, now)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Equal(t, 3, v.Stock())
	})

	t.Run("refuses reservation of another variant", func(t *testing.T) {
		v := newTestVariant(t, 5)
		other := newTestVariant(t, 5)
		r, _ := other.Reserve(1, "checkout", now.Add(time.Minute), now)
		assert.ErrorIs(t, v.ReleaseReservation(r, false, now), shared.ErrInvalidInput)
	})
}

func TestProductVariant_CommitReservation(t *testing.T) {
	now := time.Now()

	t.Run("permanently decrements", func(t *testing.T) {
		v := newTestVariant(t, 3)
		r, _ := v.Reserve(1, "checkout", now.Add(time.Minute), now)
		require.NoError(t, v.CommitReservation(r, now))

		assert.Equal(t, 2, v.Stock())
		assert.Equal(t, 0, v.Reserved())
		assert.Equal(t, inventory.ReservationStatusCommitted, r.Status)
	})

	t.Run("fails on released reservation", func(t *testing.T) {
		v := newTestVariant(t, 3)
		r, _ := v.Reserve(1, "checkout", now.Add(time.Minute), now)
		require.NoError(t, v.ReleaseReservation(r, true, now))

		err := v.CommitReservation(r, now)
		assert.ErrorIs(t, err, shared.ErrReservationExpired)
		assert.Equal(t, 3, v.Stock())
	})
}

func TestProductVariant_Restock(t *testing.T) {
	v := newTestVariant(t, 0)
	require.NoError(t, v.Restock(4, time.Now()))
	assert.Equal(t, 4, v.Stock())
	assert.Error(t, v.Restock(0, time.Now()))
}

func TestProductVariant_UpdatePrice(t *testing.T) {
	v := newTestVariant(t, 0)
	require.NoError(t, v.UpdatePrice(decimal.NewFromInt(75), time.Now()))
	assert.True(t, decimal.NewFromInt(75).Equal(v.UnitPrice))
	assert.Error(t, v.UpdatePrice(decimal.NewFromInt(-5), time.Now()))
}
