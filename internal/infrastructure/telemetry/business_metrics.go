package telemetry

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics constructor gets a nil meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// BusinessMetrics tracks order flow and stock pressure.
type BusinessMetrics struct {
	ordersPlaced         *Counter
	orderAmount          *Histogram
	ordersCancelled      *Counter
	stockShortages       *Counter
	reservationsExpired  *Counter
	reservationSweepFail *Counter
	sseConnections       *Gauge
}

// NewBusinessMetrics registers the business instruments on meter.
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	bm := &BusinessMetrics{}
	var err error

	if bm.ordersPlaced, err = NewCounter(meter, "marketplace_orders_placed_total",
		"Orders successfully placed", "{orders}"); err != nil {
		return nil, err
	}
	if bm.orderAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "marketplace_order_amount",
		Description: "Order totals after shipping and discounts",
		Unit:        "{currency}",
		Boundaries:  OrderAmountBuckets,
	}); err != nil {
		return nil, err
	}
	if bm.ordersCancelled, err = NewCounter(meter, "marketplace_orders_cancelled_total",
		"Orders cancelled and restocked", "{orders}"); err != nil {
		return nil, err
	}
	if bm.stockShortages, err = NewCounter(meter, "marketplace_stock_shortages_total",
		"Cart lines rejected for insufficient stock", "{lines}"); err != nil {
		return nil, err
	}
	if bm.reservationsExpired, err = NewCounter(meter, "marketplace_reservations_expired_total",
		"Reservations released by the expiry sweeper", "{reservations}"); err != nil {
		return nil, err
	}
	if bm.reservationSweepFail, err = NewCounter(meter, "marketplace_reservation_release_failures_total",
		"Expired reservations the sweeper failed to release", "{reservations}"); err != nil {
		return nil, err
	}
	if bm.sseConnections, err = NewGauge(meter, "marketplace_notification_connections",
		"Open notification streams", "{connections}"); err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordOrderPlaced counts a placed order and records its total.
func (bm *BusinessMetrics) RecordOrderPlaced(ctx context.Context, merchantCount int, total decimal.Decimal) {
	attr := AttrMerchantCount.String(strconv.Itoa(merchantCount))
	bm.ordersPlaced.Inc(ctx, attr)
	bm.orderAmount.Record(ctx, total.InexactFloat64(), attr)
}

// RecordOrderCancelled counts a cancellation.
func (bm *BusinessMetrics) RecordOrderCancelled(ctx context.Context) {
	bm.ordersCancelled.Inc(ctx)
}

// RecordStockShortage counts lines rejected for insufficient stock.
func (bm *BusinessMetrics) RecordStockShortage(ctx context.Context, lines int) {
	bm.stockShortages.Add(ctx, int64(lines))
}

// RecordReservationsExpired records one sweeper pass.
func (bm *BusinessMetrics) RecordReservationsExpired(ctx context.Context, released, failed int) {
	if released > 0 {
		bm.reservationsExpired.Add(ctx, int64(released))
	}
	if failed > 0 {
		bm.reservationSweepFail.Add(ctx, int64(failed))
	}
}

// RecordNotificationConnections records the open stream count.
func (bm *BusinessMetrics) RecordNotificationConnections(ctx context.Context, n int) {
	bm.sseConnections.Record(ctx, int64(n))
}
