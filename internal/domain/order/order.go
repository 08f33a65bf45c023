package order

import (
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yazilimxyz/marketplace/internal/domain/pricing"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

// AggregateTypeOrder is the aggregate type for order events
const AggregateTypeOrder = "Order"

// OrderItem is an immutable order line. Price and product details are
// snapshots taken when the order was placed.
type OrderItem struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	MerchantID    uuid.UUID
	ProductID     uuid.UUID
	VariantID     uuid.UUID
	ReservationID uuid.UUID
	Quantity      int
	UnitPrice     decimal.Decimal
	LineTotal     decimal.Decimal
	ProductName   string
	Size          string
	Color         string
	CreatedAt     time.Time
}

// MerchantOrder is the part of an order fulfilled by one merchant
type MerchantOrder struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	MerchantID  uuid.UUID
	Subtotal    decimal.Decimal
	ItemCount   int
	Status      Status
	ConfirmedAt *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (m *MerchantOrder) confirm(now time.Time) {
	m.Status = StatusConfirmed
	m.ConfirmedAt = &now
	m.UpdatedAt = now
}

// Order is the aggregate root of a placed order
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber       string
	UserID            uuid.UUID
	ShippingAddressID uuid.UUID
	ShippingZone      string
	Subtotal          decimal.Decimal
	ShippingFee       decimal.Decimal
	DiscountAmount    decimal.Decimal
	Total             decimal.Decimal
	Status            Status
	PaymentStatus     PaymentStatus
	ConfirmedAt       *time.Time
	DeliveredAt       *time.Time
	CancelledAt       *time.Time
	PaidAt            *time.Time
	Items             []OrderItem
	MerchantOrders    []MerchantOrder
	dirty             bool
}

// ItemSpec describes one line to be placed
type ItemSpec struct {
	MerchantID    uuid.UUID
	ProductID     uuid.UUID
	VariantID     uuid.UUID
	ReservationID uuid.UUID
	Quantity      int
	UnitPrice     decimal.Decimal
	ProductName   string
	Size          string
	Color         string
}

// PlaceSpec is everything needed to create an order
type PlaceSpec struct {
	UserID            uuid.UUID
	ShippingAddressID uuid.UUID
	ShippingZone      string
	Items             []ItemSpec
	Totals            pricing.Breakdown
	MerchantTotals    map[uuid.UUID]pricing.Breakdown
	Now               time.Time
}

// NewOrder creates a pending order with one MerchantOrder per merchant
func NewOrder(spec PlaceSpec) (*Order, error) {
	if spec.UserID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "User is required")
	}
	if len(spec.Items) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidCart, "Order must contain at least one item")
	}
	t := spec.Totals
	if t.Total.IsNegative() || !t.Total.Equal(t.Subtotal.Add(t.ShippingFee).Sub(t.DiscountAmount)) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order totals do not balance")
	}

	now := spec.Now
	if now.IsZero() {
		now = time.Now()
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       GenerateOrderNumber(now),
		UserID:            spec.UserID,
		ShippingAddressID: spec.ShippingAddressID,
		ShippingZone:      spec.ShippingZone,
		Subtotal:          t.Subtotal,
		ShippingFee:       t.ShippingFee,
		DiscountAmount:    t.DiscountAmount,
		Total:             t.Total,
		Status:            StatusPending,
		PaymentStatus:     PaymentStatusPending,
	}
	o.CreatedAt = now
	o.UpdatedAt = now

	counts := make(map[uuid.UUID]int)
	for _, it := range spec.Items {
		if it.Quantity <= 0 {
			return nil, shared.NewDomainError(shared.CodeInvalidCart,
				fmt.Sprintf("Quantity for variant %s must be positive", it.VariantID))
		}
		o.Items = append(o.Items, OrderItem{
			ID:            uuid.New(),
			OrderID:       o.ID,
			MerchantID:    it.MerchantID,
			ProductID:     it.ProductID,
			VariantID:     it.VariantID,
			ReservationID: it.ReservationID,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			LineTotal:     it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
			ProductName:   it.ProductName,
			Size:          it.Size,
			Color:         it.Color,
			CreatedAt:     now,
		})
		counts[it.MerchantID] += it.Quantity
	}

	merchants := make([]uuid.UUID, 0, len(counts))
	for id := range counts {
		merchants = append(merchants, id)
	}
	sort.Slice(merchants, func(i, j int) bool { return merchants[i].String() < merchants[j].String() })

	for _, merchantID := range merchants {
		subtotal := decimal.Zero
		if mt, ok := spec.MerchantTotals[merchantID]; ok {
			subtotal = mt.Subtotal
		}
		o.MerchantOrders = append(o.MerchantOrders, MerchantOrder{
			ID:         uuid.New(),
			OrderID:    o.ID,
			MerchantID: merchantID,
			Subtotal:   subtotal,
			ItemCount:  counts[merchantID],
			Status:     StatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	o.AddDomainEvent(NewOrderEvent(EventTypeOrderPlaced, o, uuid.Nil))
	return o, nil
}

// GenerateOrderNumber returns a human-readable number such as
// ORD-20261017-7KQ2MX
func GenerateOrderNumber(now time.Time) string {
	const alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		copy(buf, uuid.New().String())
	}
	var sb strings.Builder
	for _, b := range buf {
		sb.WriteByte(alphabet[int(b)%len(alphabet)])
	}
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), sb.String())
}

// MerchantIDs lists the merchants taking part in the order
func (o *Order) MerchantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(o.MerchantOrders))
	for _, m := range o.MerchantOrders {
		ids = append(ids, m.MerchantID)
	}
	return ids
}

// HasMerchant reports whether merchantID fulfils part of the order
func (o *Order) HasMerchant(merchantID uuid.UUID) bool {
	return o.merchantOrder(merchantID) != nil
}

// Confirm moves a pending order to confirmed and confirms every
// still-pending merchant partition
func (o *Order) Confirm(now time.Time) error {
	if !o.Status.CanTransitionTo(StatusConfirmed) {
		return transitionError("confirm", o.Status)
	}
	for i := range o.MerchantOrders {
		if o.MerchantOrders[i].Status == StatusPending {
			o.MerchantOrders[i].confirm(now)
		}
	}
	o.Status = StatusConfirmed
	o.ConfirmedAt = &now
	o.touch(now)

	o.AddDomainEvent(NewOrderEvent(EventTypeOrderConfirmed, o, uuid.Nil))
	return nil
}

// ConfirmMerchant confirms a single merchant partition. Once every partition
// is confirmed, the order itself becomes confirmed.
func (o *Order) ConfirmMerchant(merchantID uuid.UUID, now time.Time) error {
	mo := o.merchantOrder(merchantID)
	if mo == nil {
		return shared.NewDomainError(shared.CodeNotFound,
			fmt.Sprintf("Order %s has no items from merchant %s", o.OrderNumber, merchantID))
	}
	if o.Status != StatusPending || mo.Status != StatusPending {
		return shared.NewDomainError(shared.CodeInvalidStateTransition,
			fmt.Sprintf("Cannot confirm merchant order in %s status (order %s)", mo.Status, o.Status))
	}

	mo.confirm(now)
	o.touch(now)
	o.AddDomainEvent(NewOrderEvent(EventTypeMerchantOrderConfirmed, o, merchantID))

	for _, m := range o.MerchantOrders {
		if m.Status != StatusConfirmed {
			return nil
		}
	}
	o.Status = StatusConfirmed
	o.ConfirmedAt = &now
	o.AddDomainEvent(NewOrderEvent(EventTypeOrderConfirmed, o, uuid.Nil))
	return nil
}

// Deliver marks a confirmed order as delivered
func (o *Order) Deliver(now time.Time) error {
	if !o.Status.CanTransitionTo(StatusDelivered) {
		return transitionError("deliver", o.Status)
	}
	for i := range o.MerchantOrders {
		o.MerchantOrders[i].Status = StatusDelivered
		o.MerchantOrders[i].DeliveredAt = &now
		o.MerchantOrders[i].UpdatedAt = now
	}
	o.Status = StatusDelivered
	o.DeliveredAt = &now
	o.touch(now)

	o.AddDomainEvent(NewOrderEvent(EventTypeOrderDelivered, o, uuid.Nil))
	return nil
}

// Cancel cancels a pending or confirmed order. The caller is responsible
// for restocking the quantities returned by RestockLines.
func (o *Order) Cancel(now time.Time) error {
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return transitionError("cancel", o.Status)
	}
	for i := range o.MerchantOrders {
		o.MerchantOrders[i].Status = StatusCancelled
		o.MerchantOrders[i].CancelledAt = &now
		o.MerchantOrders[i].UpdatedAt = now
	}
	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.touch(now)

	o.AddDomainEvent(NewOrderEvent(EventTypeOrderCancelled, o, uuid.Nil))
	return nil
}

// RestockLine is a quantity to give back to a variant on cancellation
type RestockLine struct {
	VariantID uuid.UUID
	Quantity  int
}

// RestockLines sums item quantities per variant, sorted by variant ID so
// row locks are always taken in the same order
func (o *Order) RestockLines() []RestockLine {
	qty := make(map[uuid.UUID]int)
	for _, it := range o.Items {
		qty[it.VariantID] += it.Quantity
	}
	lines := make([]RestockLine, 0, len(qty))
	for id, q := range qty {
		lines = append(lines, RestockLine{VariantID: id, Quantity: q})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].VariantID.String() < lines[j].VariantID.String() })
	return lines
}

// MarkPaid records a successful payment. Only pending or confirmed orders
// can be paid.
func (o *Order) MarkPaid(now time.Time) error {
	if o.Status != StatusPending && o.Status != StatusConfirmed {
		return shared.NewDomainError(shared.CodeInvalidStateTransition,
			fmt.Sprintf("Cannot mark payment as paid for order in %s status", o.Status))
	}
	if o.PaymentStatus != PaymentStatusPending && o.PaymentStatus != PaymentStatusFailed {
		return paymentTransitionError(PaymentStatusPaid, o.PaymentStatus)
	}
	o.PaymentStatus = PaymentStatusPaid
	o.PaidAt = &now
	o.touch(now)

	o.AddDomainEvent(NewOrderEvent(EventTypePaymentStatusChanged, o, uuid.Nil))
	return nil
}

// MarkPaymentFailed records a failed payment attempt
func (o *Order) MarkPaymentFailed(now time.Time) error {
	if o.PaymentStatus != PaymentStatusPending {
		return paymentTransitionError(PaymentStatusFailed, o.PaymentStatus)
	}
	o.PaymentStatus = PaymentStatusFailed
	o.touch(now)

	o.AddDomainEvent(NewOrderEvent(EventTypePaymentStatusChanged, o, uuid.Nil))
	return nil
}

// Refund marks a paid order as refunded. The order must be cancelled first.
func (o *Order) Refund(now time.Time) error {
	if o.Status != StatusCancelled {
		return shared.NewDomainError(shared.CodeInvalidStateTransition,
			fmt.Sprintf("Cannot refund order in %s status, cancel it first", o.Status))
	}
	if o.PaymentStatus != PaymentStatusPaid {
		return paymentTransitionError(PaymentStatusRefunded, o.PaymentStatus)
	}
	o.PaymentStatus = PaymentStatusRefunded
	o.touch(now)

	o.AddDomainEvent(NewOrderEvent(EventTypePaymentStatusChanged, o, uuid.Nil))
	return nil
}

// MarkPersisted resets change tracking after a successful save
func (o *Order) MarkPersisted() {
	o.dirty = false
}

func (o *Order) merchantOrder(merchantID uuid.UUID) *MerchantOrder {
	for i := range o.MerchantOrders {
		if o.MerchantOrders[i].MerchantID == merchantID {
			return &o.MerchantOrders[i]
		}
	}
	return nil
}

func (o *Order) touch(now time.Time) {
	o.UpdatedAt = now
	if !o.dirty {
		o.IncrementVersion()
		o.dirty = true
	}
}

func transitionError(action string, from Status) error {
	return shared.NewDomainError(shared.CodeInvalidStateTransition,
		fmt.Sprintf("Cannot %s order in %s status", action, from))
}

func paymentTransitionError(target, from PaymentStatus) error {
	return shared.NewDomainError(shared.CodeInvalidStateTransition,
		fmt.Sprintf("Cannot change payment status from %s to %s", from, target))
}
