package order

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yazilimxyz/marketplace/internal/domain/pricing"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

var (
	merchantA = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	merchantB = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newTestOrder(t *testing.T, merchants ...uuid.UUID) *Order {
	t.Helper()
	if len(merchants) == 0 {
		merchants = []uuid.UUID{merchantA}
	}
	spec := PlaceSpec{
		UserID:            uuid.New(),
		ShippingAddressID: uuid.New(),
		ShippingZone:      "local",
		MerchantTotals:    map[uuid.UUID]pricing.Breakdown{},
		Now:               time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
	}
	subtotal := decimal.Zero
	for _, m := range merchants {
		spec.Items = append(spec.Items, ItemSpec{
			MerchantID:  m,
			ProductID:   uuid.New(),
			VariantID:   uuid.New(),
			Quantity:    2,
			UnitPrice:   d(50),
			ProductName: "Tee",
			Size:        "M",
			Color:       "Red",
		})
		spec.MerchantTotals[m] = pricing.Breakdown{Subtotal: d(100), Total: d(100)}
		subtotal = subtotal.Add(d(100))
	}
	spec.Totals = pricing.Breakdown{Subtotal: subtotal, ShippingFee: d(5), DiscountAmount: decimal.Zero, Total: subtotal.Add(d(5))}

	o, err := NewOrder(spec)
	require.NoError(t, err)
	return o
}

func TestNewOrder(t *testing.T) {
	t.Run("creates pending order with partitions", func(t *testing.T) {
		o := newTestOrder(t, merchantB, merchantA)

		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
		assert.Regexp(t, regexp.MustCompile(`^ORD-20261017-[0-9A-Z]{6}$`), o.OrderNumber)
		require.Len(t, o.Items, 2)
		assert.True(t, d(100).Equal(o.Items[0].LineTotal))
		assert.Equal(t, o.ID, o.Items[0].OrderID)

		require.Len(t, o.MerchantOrders, 2)
		assert.Equal(t, merchantA, o.MerchantOrders[0].MerchantID)
		assert.Equal(t, merchantB, o.MerchantOrders[1].MerchantID)
		assert.Equal(t, 2, o.MerchantOrders[0].ItemCount)
		assert.True(t, d(100).Equal(o.MerchantOrders[0].Subtotal))
		assert.Nil(t, o.ConfirmedAt)

		require.Len(t, o.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeOrderPlaced, o.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects unbalanced totals", func(t *testing.T) {
		_, err := NewOrder(PlaceSpec{
			UserID: uuid.New(),
			Items:  []ItemSpec{{MerchantID: merchantA, VariantID: uuid.New(), Quantity: 1, UnitPrice: d(10)}},
			Totals: pricing.Breakdown{Subtotal: d(10), ShippingFee: d(5), Total: d(10)},
		})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("rejects empty order", func(t *testing.T) {
		_, err := NewOrder(PlaceSpec{UserID: uuid.New()})
		assert.ErrorIs(t, err, shared.ErrInvalidCart)
	})
}

func TestOrder_StateMachine(t *testing.T) {
	now := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

	t.Run("confirm stamps order and partitions", func(t *testing.T) {
		o := newTestOrder(t, merchantA, merchantB)
		require.NoError(t, o.Confirm(now))

		assert.Equal(t, StatusConfirmed, o.Status)
		require.NotNil(t, o.ConfirmedAt)
		assert.Equal(t, now, *o.ConfirmedAt)
		for _, mo := range o.MerchantOrders {
			assert.Equal(t, StatusConfirmed, mo.Status)
			require.NotNil(t, mo.ConfirmedAt)
		}
		assert.Equal(t, 2, o.GetVersion())
	})

	t.Run("deliver requires confirmed", func(t *testing.T) {
		o := newTestOrder(t)
		err := o.Deliver(now)
		assert.ErrorIs(t, err, shared.ErrInvalidStateTransition)
		assert.Contains(t, err.Error(), "PENDING")
		assert.Equal(t, StatusPending, o.Status)
		assert.Nil(t, o.DeliveredAt)
		assert.Equal(t, 1, o.GetVersion())
	})

	t.Run("confirm then deliver", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.Confirm(now))
		require.NoError(t, o.Deliver(now.Add(time.Hour)))
		assert.Equal(t, StatusDelivered, o.Status)
		assert.Equal(t, StatusDelivered, o.MerchantOrders[0].Status)
		assert.True(t, o.DeliveredAt.After(*o.ConfirmedAt))
	})

	t.Run("no transition out of terminal states", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.Cancel(now))

		assert.ErrorIs(t, o.Confirm(now), shared.ErrInvalidStateTransition)
		assert.ErrorIs(t, o.Deliver(now), shared.ErrInvalidStateTransition)
		assert.ErrorIs(t, o.Cancel(now), shared.ErrInvalidStateTransition)
		assert.Equal(t, StatusCancelled, o.Status)

		delivered := newTestOrder(t)
		require.NoError(t, delivered.Confirm(now))
		require.NoError(t, delivered.Deliver(now))
		assert.ErrorIs(t, delivered.Confirm(now), shared.ErrInvalidStateTransition)
		assert.ErrorIs(t, delivered.Cancel(now), shared.ErrInvalidStateTransition)
	})

	t.Run("cancel from confirmed", func(t *testing.T) {
		o := newTestOrder(t, merchantA, merchantB)
		require.NoError(t, o.Confirm(now))
		require.NoError(t, o.Cancel(now))
		assert.Equal(t, StatusCancelled, o.Status)
		assert.NotNil(t, o.CancelledAt)
		for _, mo := range o.MerchantOrders {
			assert.Equal(t, StatusCancelled, mo.Status)
		}
	})
}

func TestOrder_ConfirmMerchant(t *testing.T) {
	now := time.Now()

	t.Run("partitions confirm independently", func(t *testing.T) {
		o := newTestOrder(t, merchantA, merchantB)

		require.NoError(t, o.ConfirmMerchant(merchantA, now))
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, StatusConfirmed, o.MerchantOrders[0].Status)
		assert.Equal(t, StatusPending, o.MerchantOrders[1].Status)

		later := now.Add(time.Minute)
		require.NoError(t, o.ConfirmMerchant(merchantB, later))
		assert.Equal(t, StatusConfirmed, o.Status)
		assert.Equal(t, later, *o.ConfirmedAt)
		assert.Equal(t, now, *o.MerchantOrders[0].ConfirmedAt)
		assert.Equal(t, later, *o.MerchantOrders[1].ConfirmedAt)
	})

	t.Run("double confirm fails", func(t *testing.T) {
		o := newTestOrder(t, merchantA, merchantB)
		require.NoError(t, o.ConfirmMerchant(merchantA, now))
		assert.ErrorIs(t, o.ConfirmMerchant(merchantA, now), shared.ErrInvalidStateTransition)
	})

	t.Run("unknown merchant", func(t *testing.T) {
		o := newTestOrder(t)
		assert.ErrorIs(t, o.ConfirmMerchant(uuid.New(), now), shared.ErrNotFound)
	})

	t.Run("whole-order confirm keeps earlier partition timestamps", func(t *testing.T) {
		o := newTestOrder(t, merchantA, merchantB)
		require.NoError(t, o.ConfirmMerchant(merchantA, now))
		later := now.Add(time.Hour)
		require.NoError(t, o.Confirm(later))
		assert.Equal(t, now, *o.MerchantOrders[0].ConfirmedAt)
		assert.Equal(t, later, *o.MerchantOrders[1].ConfirmedAt)
	})
}

func TestOrder_Payment(t *testing.T) {
	now := time.Now()

	t.Run("paid while pending or confirmed", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.MarkPaid(now))
		assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)
		assert.NotNil(t, o.PaidAt)

		c := newTestOrder(t)
		require.NoError(t, c.Confirm(now))
		require.NoError(t, c.MarkPaid(now))
	})

	t.Run("cannot pay a delivered or cancelled order", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.Cancel(now))
		assert.ErrorIs(t, o.MarkPaid(now), shared.ErrInvalidStateTransition)
	})

	t.Run("failed payment can be retried", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.MarkPaymentFailed(now))
		assert.Equal(t, PaymentStatusFailed, o.PaymentStatus)
		assert.ErrorIs(t, o.MarkPaymentFailed(now), shared.ErrInvalidStateTransition)
		require.NoError(t, o.MarkPaid(now))
	})

	t.Run("refund requires cancellation", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.MarkPaid(now))
		assert.ErrorIs(t, o.Refund(now), shared.ErrInvalidStateTransition)
		assert.Equal(t, PaymentStatusPaid, o.PaymentStatus)

		require.NoError(t, o.Cancel(now))
		require.NoError(t, o.Refund(now))
		assert.Equal(t, PaymentStatusRefunded, o.PaymentStatus)
	})

	t.Run("refund requires payment", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.Cancel(now))
		assert.ErrorIs(t, o.Refund(now), shared.ErrInvalidStateTransition)
	})
}

func TestOrder_RestockLines(t *testing.T) {
	o := newTestOrder(t, merchantA, merchantB)
	v := o.Items[0].VariantID
	o.Items = append(o.Items, OrderItem{VariantID: v, Quantity: 3})

	lines := o.RestockLines()
	require.Len(t, lines, 2)
	total := 0
	for _, l := range lines {
		if l.VariantID == v {
			assert.Equal(t, 5, l.Quantity)
		}
		total += l.Quantity
	}
	assert.Equal(t, 7, total)
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusDelivered, false},
		{StatusConfirmed, StatusDelivered, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusDelivered, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}
