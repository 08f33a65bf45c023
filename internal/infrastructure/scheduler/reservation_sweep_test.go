package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	inventoryapp "github.com/yazilimxyz/marketplace/internal/application/inventory"
	"github.com/yazilimxyz/marketplace/internal/domain/catalog"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/scheduler"
	"github.com/yazilimxyz/marketplace/tests/testutil"
	"go.uber.org/zap"
)

type recordedSweep struct {
	released, failed int
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedSweep
}

func (r *fakeRecorder) RecordReservationsExpired(_ context.Context, released, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedSweep{released, failed})
}

func TestReservationSweepTask(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemStore()
	v, err := catalog.NewProductVariant(uuid.New(), uuid.New(), "CAP-OS", "Cap", "OS", "Red", decimal.NewFromInt(15), 5)
	require.NoError(t, err)
	store.SeedVariant(v)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := inventoryapp.NewLedgerService(store.InventoryScope(), time.Minute, zap.NewNop())
	ledger.SetClock(func() time.Time { return now })

	_, err = ledger.Reserve(ctx, v.ID, 2, "abandoned-cart")
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)

	sweeper := inventoryapp.NewReservationSweeper(ledger, store.InventoryScope(), 10, zap.NewNop())
	recorder := &fakeRecorder{}

	s := scheduler.NewScheduler(zap.NewNop())
	require.NoError(t, s.Register(scheduler.NewReservationSweepTask(sweeper, time.Hour, recorder, zap.NewNop())))
	require.NoError(t, s.Start(ctx))
	defer s.Stop(ctx)

	require.NoError(t, s.TriggerNow(ctx, scheduler.ReservationSweepTaskName))

	stored, ok := store.Variant(v.ID)
	require.True(t, ok)
	assert.Equal(t, 5, stored.Stock())
	assert.Equal(t, 0, stored.Reserved())

	require.Len(t, recorder.calls, 1)
	assert.Equal(t, recordedSweep{released: 1}, recorder.calls[0])
}
