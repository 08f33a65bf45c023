package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

func TestStockReservation_Lifecycle(t *testing.T) {
	now := time.Now()

	t.Run("new reservation is active", func(t *testing.T) {
		r := NewStockReservation(uuid.New(), 2, "checkout", now.Add(time.Minute))
		assert.True(t, r.IsActive())
		assert.False(t, r.IsExpiredAt(now))
		assert.True(t, r.IsExpiredAt(now.Add(time.Minute)))

		token := r.Token()
		assert.Equal(t, r.ID, token.ID)
		assert.Equal(t, 2, token.Quantity)
	})

	t.Run("commit is final", func(t *testing.T) {
		r := NewStockReservation(uuid.New(), 1, "", now.Add(time.Minute))
		require.NoError(t, r.MarkCommitted(now))
		assert.Equal(t, ReservationStatusCommitted, r.Status)
		assert.True(t, r.Status.IsTerminal())
		assert.False(t, r.IsExpiredAt(now.Add(time.Hour)))

		assert.ErrorIs(t, r.MarkCommitted(now), shared.ErrReservationExpired)
		assert.ErrorIs(t, r.MarkReleased(now, false), shared.ErrInvalidState)
	})

	t.Run("release twice is a no-op", func(t *testing.T) {
		r := NewStockReservation(uuid.New(), 1, "", now.Add(time.Minute))
		require.NoError(t, r.MarkReleased(now, false))
		require.NoError(t, r.MarkReleased(now.Add(time.Second), true))
		assert.Equal(t, ReservationStatusReleased, r.Status)
		assert.Equal(t, now, *r.ReleasedAt)
	})
}

func TestInsufficientStockError(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	err := NewInsufficientStockError(a, 3, 1)
	err.Add(b, 1, -2)

	assert.Equal(t, []uuid.UUID{a, b}, err.VariantIDs())
	assert.Equal(t, 2, err.Shortages[0].Shortfall)
	assert.Equal(t, 0, err.Shortages[1].Available)
	assert.Equal(t, 1, err.Shortages[1].Shortfall)
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	assert.Contains(t, err.Error(), a.String())

	merged := &InsufficientStockError{}
	merged.Merge(err)
	merged.Merge(nil)
	assert.Len(t, merged.Shortages, 2)
}
