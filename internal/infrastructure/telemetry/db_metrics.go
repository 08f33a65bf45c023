package telemetry

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// PoolStatsCollector periodically records database/sql pool statistics.
type PoolStatsCollector struct {
	connections *Gauge
	waitCount   *Gauge
	db          *sql.DB
	interval    time.Duration
	logger      *zap.Logger

	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewPoolStatsCollector registers the pool gauges. Interval defaults to 15s.
func NewPoolStatsCollector(meter metric.Meter, db *sql.DB, interval time.Duration, logger *zap.Logger) (*PoolStatsCollector, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	connections, err := NewGauge(meter, "db_pool_connections", "Connections in the pool by state", "{connection}")
	if err != nil {
		return nil, err
	}
	waitCount, err := NewGauge(meter, "db_pool_wait_count", "Total waits for a free connection", "{waits}")
	if err != nil {
		return nil, err
	}
	return &PoolStatsCollector{
		connections: connections,
		waitCount:   waitCount,
		db:          db,
		interval:    interval,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}, nil
}

// Start launches the collection loop.
func (c *PoolStatsCollector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.Collect(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.Collect(ctx)
			}
		}
	}()
}

// Collect records one snapshot of the pool stats.
func (c *PoolStatsCollector) Collect(ctx context.Context) {
	stats := c.db.Stats()
	c.connections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	c.connections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	c.connections.Record(ctx, int64(stats.MaxOpenConnections), AttrDBState.String("max"))
	c.waitCount.Record(ctx, stats.WaitCount)
}

// Stop ends the loop and waits for it. Safe to call more than once.
func (c *PoolStatsCollector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()
}
