package scheduler

import (
	"context"
	"time"

	inventoryapp "github.com/yazilimxyz/marketplace/internal/application/inventory"
	"go.uber.org/zap"
)

// ReservationSweepTaskName is the name the expiry sweep registers under
const ReservationSweepTaskName = "reservation-expiry-sweep"

// SweepRecorder receives per-sweep counts, typically business metrics
type SweepRecorder interface {
	RecordReservationsExpired(ctx context.Context, released, failed int)
}

// NewReservationSweepTask wraps sweeper as a scheduled task. recorder may be nil.
func NewReservationSweepTask(sweeper *inventoryapp.ReservationSweeper, interval time.Duration, recorder SweepRecorder, logger *zap.Logger) Task {
	if recorder != nil {
		sweeper.SetObserver(func(ctx context.Context, stats *inventoryapp.SweepStats) {
			recorder.RecordReservationsExpired(ctx, stats.Released, stats.Failed)
		})
	}
	return Task{
		Name:     ReservationSweepTaskName,
		Interval: interval,
		Timeout:  interval,
		Run: func(ctx context.Context) error {
			stats, err := sweeper.SweepOnce(ctx)
			if err != nil {
				return err
			}
			if stats.Failed > 0 {
				logger.Warn("Some expired reservations could not be released",
					zap.Int("failed", stats.Failed),
				)
			}
			return nil
		},
	}
}
