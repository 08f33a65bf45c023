package telemetry_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/telemetry"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, agg metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", agg)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func newTestBusinessMetrics(t *testing.T) (*telemetry.BusinessMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	bm, err := telemetry.NewBusinessMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return bm, reader
}

func TestNewBusinessMetrics_NilMeter(t *testing.T) {
	bm, err := telemetry.NewBusinessMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Nil(t, bm)
}

func TestBusinessMetrics_OrderFlow(t *testing.T) {
	bm, reader := newTestBusinessMetrics(t)
	ctx := context.Background()

	bm.RecordOrderPlaced(ctx, 2, decimal.RequireFromString("120.50"))
	bm.RecordOrderPlaced(ctx, 1, decimal.NewFromInt(30))
	bm.RecordOrderCancelled(ctx)
	bm.RecordStockShortage(ctx, 3)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["marketplace_orders_placed_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["marketplace_orders_cancelled_total"]))
	assert.Equal(t, int64(3), sumOf(t, data["marketplace_stock_shortages_total"]))

	hist, ok := data["marketplace_order_amount"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	var total float64
	for _, dp := range hist.DataPoints {
		count += dp.Count
		total += dp.Sum
	}
	assert.Equal(t, uint64(2), count)
	assert.InDelta(t, 150.5, total, 0.001)
}

func TestBusinessMetrics_ReservationSweep(t *testing.T) {
	bm, reader := newTestBusinessMetrics(t)
	ctx := context.Background()

	bm.RecordReservationsExpired(ctx, 4, 1)
	bm.RecordReservationsExpired(ctx, 0, 0)

	data := collect(t, reader)
	assert.Equal(t, int64(4), sumOf(t, data["marketplace_reservations_expired_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["marketplace_reservation_release_failures_total"]))
}

func TestBusinessMetrics_NotificationConnections(t *testing.T) {
	bm, reader := newTestBusinessMetrics(t)

	bm.RecordNotificationConnections(context.Background(), 7)

	gauge, ok := collect(t, reader)["marketplace_notification_connections"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(7), gauge.DataPoints[0].Value)
}
