package inventory

import (
	"context"
	"time"

	"github.com/yazilimxyz/marketplace/internal/domain/inventory"
	"go.uber.org/zap"
)

// SweepStats summarises one expiry sweep
type SweepStats struct {
	TotalExpired int       `json:"total_expired"`
	Released     int       `json:"released"`
	Failed       int       `json:"failed"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// SweepObserver is notified after every sweep
type SweepObserver func(ctx context.Context, stats *SweepStats)

// ReservationSweeper releases reservations that were neither committed nor
// released before their deadline. Scheduling is left to the caller.
type ReservationSweeper struct {
	ledger    *LedgerService
	scope     TransactionScope
	batchSize int
	logger    *zap.Logger
	observer  SweepObserver
}

// NewReservationSweeper creates a new ReservationSweeper
func NewReservationSweeper(ledger *LedgerService, scope TransactionScope, batchSize int, logger *zap.Logger) *ReservationSweeper {
	if batchSize <= 0 {
		batchSize = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationSweeper{
		ledger:    ledger,
		scope:     scope,
		batchSize: batchSize,
		logger:    logger,
	}
}

// SetObserver registers a callback invoked after each sweep
func (s *ReservationSweeper) SetObserver(observer SweepObserver) {
	s.observer = observer
}

// SweepOnce finds expired reservations and releases each in its own
// transaction. Individual failures are counted, not returned.
func (s *ReservationSweeper) SweepOnce(ctx context.Context) (*SweepStats, error) {
	now := s.ledger.clock()
	stats := &SweepStats{ProcessedAt: now}

	var expired []inventory.StockReservation
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		expired, err = repos.Reservations().FindExpired(ctx, now, s.batchSize)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to find expired reservations", zap.Error(err))
		return nil, err
	}

	stats.TotalExpired = len(expired)
	if stats.TotalExpired == 0 {
		s.logger.Debug("No expired reservations found")
		s.notify(ctx, stats)
		return stats, nil
	}

	for _, r := range expired {
		if err := s.ledger.release(ctx, r.ID, true); err != nil {
			s.logger.Error("Failed to release expired reservation",
				zap.String("reservation_id", r.ID.String()),
				zap.String("variant_id", r.VariantID.String()),
				zap.String("reference", r.Reference),
				zap.Error(err),
			)
			stats.Failed++
			continue
		}
		stats.Released++
	}

	s.logger.Info("Completed expired reservation sweep",
		zap.Int("total", stats.TotalExpired),
		zap.Int("released", stats.Released),
		zap.Int("failed", stats.Failed),
	)
	s.notify(ctx, stats)
	return stats, nil
}

func (s *ReservationSweeper) notify(ctx context.Context, stats *SweepStats) {
	if s.observer != nil {
		s.observer(ctx, stats)
	}
}
