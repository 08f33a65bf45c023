package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	catalogapp "github.com/yazilimxyz/marketplace/internal/application/catalog"
	inventoryapp "github.com/yazilimxyz/marketplace/internal/application/inventory"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
	"github.com/yazilimxyz/marketplace/internal/domain/inventory"
	"github.com/yazilimxyz/marketplace/internal/domain/order"
	"github.com/yazilimxyz/marketplace/internal/domain/pricing"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// StockLedger is the part of the ledger used during checkout
type StockLedger interface {
	Reserve(ctx context.Context, variantID uuid.UUID, quantity int, reference string) (inventory.ReservationToken, error)
	Release(ctx context.Context, reservationID uuid.UUID) error
}

// AddressBook resolves a user's shipping address
type AddressBook interface {
	GetShippingAddress(ctx context.Context, userID, addressID uuid.UUID) (*identity.Address, error)
}

// OrderService places orders and drives their lifecycle
type OrderService struct {
	scope           TransactionScope
	orders          order.Repository
	catalog         catalogapp.Lookup
	addresses       AddressBook
	ledger          StockLedger
	pricer          *pricing.Calculator
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
	logger          *zap.Logger
	clock           func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(
	scope TransactionScope,
	orders order.Repository,
	catalog catalogapp.Lookup,
	addresses AddressBook,
	ledger StockLedger,
	pricer *pricing.Calculator,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		scope:     scope,
		orders:    orders,
		catalog:   catalog,
		addresses: addresses,
		ledger:    ledger,
		pricer:    pricer,
		logger:    logger,
		clock:     time.Now,
	}
}

// SetEventPublisher sets the event publisher for order events
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics collector
func (s *OrderService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetClock overrides the time source
func (s *OrderService) SetClock(clock func() time.Time) {
	s.clock = clock
}

type checkoutLine struct {
	info     catalogapp.VariantInfo
	quantity int
}

// PlaceOrder turns a cart into a pending order. Stock is reserved line by
// line and committed in the same transaction that inserts the order, so
// either the order exists with its stock taken or nothing changed.
func (s *OrderService) PlaceOrder(ctx context.Context, caller identity.Principal, req PlaceOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "place_order")
	defer span.End()

	userID := caller.UserID
	if req.UserID != nil && caller.IsAdmin() {
		userID = *req.UserID
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrUserID, userID.String(),
		telemetry.SpanAttrItemCount, len(req.Items),
	)

	quantities, err := mergeCartItems(req.Items)
	if err != nil {
		return nil, err
	}

	addr, err := s.addresses.GetShippingAddress(ctx, userID, req.ShippingAddressID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeInvalidCart,
				fmt.Sprintf("Shipping address %s does not exist", req.ShippingAddressID))
		}
		return nil, err
	}

	lines, err := s.resolveLines(ctx, quantities)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		tokens    = make(map[uuid.UUID]inventory.ReservationToken, len(lines))
		committed bool
	)
	// released on every failure path; detached so a cancelled request
	// still gives its stock back
	defer func() {
		if !committed {
			s.releaseAll(context.WithoutCancel(ctx), tokens)
		}
	}()

	reference := "checkout:" + uuid.NewString()
	if err := s.reserveAll(ctx, lines, reference, tokens); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	pricingLines := make([]pricing.Line, len(lines))
	byMerchant := make(map[uuid.UUID][]pricing.Line)
	for i, l := range lines {
		pl := pricing.Line{
			VariantID:  l.info.VariantID,
			MerchantID: l.info.MerchantID,
			UnitPrice:  l.info.UnitPrice,
			Quantity:   l.quantity,
		}
		pricingLines[i] = pl
		byMerchant[pl.MerchantID] = append(byMerchant[pl.MerchantID], pl)
	}

	totals, err := s.pricer.Price(ctx, pricingLines, pricing.Destination{Zone: addr.Zone, Country: addr.Country})
	if err != nil {
		return nil, err
	}
	merchantTotals := make(map[uuid.UUID]pricing.Breakdown, len(byMerchant))
	for merchantID, group := range byMerchant {
		if merchantTotals[merchantID], err = s.pricer.PriceGroup(group); err != nil {
			return nil, err
		}
	}

	now := s.clock()
	spec := order.PlaceSpec{
		UserID:            userID,
		ShippingAddressID: addr.ID,
		ShippingZone:      addr.Zone,
		Totals:            totals,
		MerchantTotals:    merchantTotals,
		Now:               now,
	}
	for _, l := range lines {
		spec.Items = append(spec.Items, order.ItemSpec{
			MerchantID:    l.info.MerchantID,
			ProductID:     l.info.ProductID,
			VariantID:     l.info.VariantID,
			ReservationID: tokens[l.info.VariantID].ID,
			Quantity:      l.quantity,
			UnitPrice:     l.info.UnitPrice,
			ProductName:   l.info.ProductName,
			Size:          l.info.Size,
			Color:         l.info.Color,
		})
	}
	o, err := order.NewOrder(spec)
	if err != nil {
		return nil, err
	}

	var ledgerEvents []shared.DomainEvent
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		if err := repos.Orders().Create(ctx, o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for _, l := range lines {
			events, err := inventoryapp.CommitIn(ctx, repos, tokens[l.info.VariantID].ID, now)
			if err != nil {
				return fmt.Errorf("commit reservation for variant %s: %w", l.info.VariantID, err)
			}
			ledgerEvents = append(ledgerEvents, events...)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to persist order",
			zap.String("order_number", o.OrderNumber),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		pf := newPersistenceFailure("persist order", err)
		telemetry.RecordError(span, pf)
		return nil, pf
	}
	committed = true
	o.MarkPersisted()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, o.ID.String(),
		telemetry.SpanAttrOrderNumber, o.OrderNumber,
		telemetry.SpanAttrAmount, o.Total.String(),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderPlaced(ctx, len(o.MerchantOrders), o.Total)
	}

	s.logger.Info("Order placed",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("user_id", userID.String()),
		zap.Int("merchants", len(o.MerchantOrders)),
		zap.String("total", o.Total.String()),
	)

	s.publish(ctx, append(o.GetDomainEvents(), ledgerEvents...))
	o.ClearDomainEvents()

	resp := ToOrderResponse(o)
	return &resp, nil
}

// mergeCartItems validates quantities and folds duplicate variants together
func mergeCartItems(items []CartItem) (map[uuid.UUID]int, error) {
	if len(items) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidCart, "Cart is empty")
	}
	quantities := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		if it.VariantID == uuid.Nil {
			return nil, shared.NewDomainError(shared.CodeInvalidCart, "Cart item is missing a variant")
		}
		if it.Quantity <= 0 {
			return nil, shared.NewDomainError(shared.CodeInvalidCart,
				fmt.Sprintf("Quantity for variant %s must be positive", it.VariantID))
		}
		quantities[it.VariantID] += it.Quantity
	}
	return quantities, nil
}

// resolveLines looks every variant up and returns the lines sorted by
// variant ID, the order in which rows are locked
func (s *OrderService) resolveLines(ctx context.Context, quantities map[uuid.UUID]int) ([]checkoutLine, error) {
	ids := make([]uuid.UUID, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	infos, err := s.catalog.GetVariants(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}

	lines := make([]checkoutLine, 0, len(ids))
	for _, id := range ids {
		info, ok := infos[id]
		if !ok {
			return nil, shared.NewDomainError(shared.CodeInvalidCart, fmt.Sprintf("Variant %s does not exist", id))
		}
		if !info.Active {
			return nil, shared.NewDomainError(shared.CodeInvalidCart, fmt.Sprintf("Variant %s is not available", id))
		}
		lines = append(lines, checkoutLine{info: info, quantity: quantities[id]})
	}
	return lines, nil
}

// reserveAll reserves every line. A shortage does not stop the loop so the
// returned error names every short variant.
func (s *OrderService) reserveAll(ctx context.Context, lines []checkoutLine, reference string, tokens map[uuid.UUID]inventory.ReservationToken) error {
	var shortage *inventory.InsufficientStockError
	for _, l := range lines {
		token, err := s.ledger.Reserve(ctx, l.info.VariantID, l.quantity, reference)
		if err == nil {
			tokens[l.info.VariantID] = token
			continue
		}

		var stockErr *inventory.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			if shortage == nil {
				shortage = &inventory.InsufficientStockError{}
			}
			shortage.Merge(stockErr)
		case errors.Is(err, shared.ErrNotFound):
			return shared.NewDomainError(shared.CodeInvalidCart,
				fmt.Sprintf("Variant %s does not exist", l.info.VariantID))
		case shared.ErrorCode(err) != "":
			return err
		default:
			return newPersistenceFailure("reserve stock", err)
		}
	}
	if shortage != nil {
		if s.businessMetrics != nil {
			s.businessMetrics.RecordStockShortage(ctx, len(shortage.Shortages))
		}
		s.logger.Info("Order rejected for insufficient stock",
			zap.Int("short_variants", len(shortage.Shortages)),
			zap.String("reference", reference),
		)
		return shortage
	}
	return nil
}

func (s *OrderService) releaseAll(ctx context.Context, tokens map[uuid.UUID]inventory.ReservationToken) {
	for _, token := range tokens {
		if err := s.ledger.Release(ctx, token.ID); err != nil {
			// the sweeper picks it up once it expires
			s.logger.Warn("Failed to release reservation",
				zap.String("reservation_id", token.ID.String()),
				zap.String("variant_id", token.VariantID.String()),
				zap.Error(err),
			)
		}
	}
}

// Confirm confirms a pending order and all of its partitions
func (s *OrderService) Confirm(ctx context.Context, caller identity.Principal, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, caller, orderID, "confirm", canFulfil,
		func(_ Repositories, o *order.Order, now time.Time) ([]shared.DomainEvent, error) {
			return nil, o.Confirm(now)
		})
}

// ConfirmMerchantOrder confirms the partition of one merchant
func (s *OrderService) ConfirmMerchantOrder(ctx context.Context, caller identity.Principal, orderID, merchantID uuid.UUID) (*OrderResponse, error) {
	authorize := func(caller identity.Principal, o *order.Order) error {
		if !caller.ActsFor(merchantID) {
			return shared.ErrForbidden
		}
		return nil
	}
	return s.transition(ctx, caller, orderID, "confirm_merchant_order", authorize,
		func(_ Repositories, o *order.Order, now time.Time) ([]shared.DomainEvent, error) {
			return nil, o.ConfirmMerchant(merchantID, now)
		})
}

// Deliver marks a confirmed order as delivered
func (s *OrderService) Deliver(ctx context.Context, caller identity.Principal, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, caller, orderID, "deliver", canFulfil,
		func(_ Repositories, o *order.Order, now time.Time) ([]shared.DomainEvent, error) {
			return nil, o.Deliver(now)
		})
}

// Cancel cancels the order and puts its quantities back into stock in the
// same transaction
func (s *OrderService) Cancel(ctx context.Context, caller identity.Principal, orderID uuid.UUID) (*OrderResponse, error) {
	authorize := func(caller identity.Principal, o *order.Order) error {
		if caller.ActsFor(o.UserID) || canFulfil(caller, o) == nil {
			return nil
		}
		return shared.ErrForbidden
	}
	resp, err := s.transition(ctx, caller, orderID, "cancel", authorize,
		func(repos Repositories, o *order.Order, now time.Time) ([]shared.DomainEvent, error) {
			if err := o.Cancel(now); err != nil {
				return nil, err
			}
			var events []shared.DomainEvent
			for _, line := range o.RestockLines() {
				evs, err := inventoryapp.RestockIn(ctx, repos, line.VariantID, line.Quantity, now)
				if err != nil {
					return nil, fmt.Errorf("restock variant %s: %w", line.VariantID, err)
				}
				events = append(events, evs...)
			}
			return events, nil
		})
	if err == nil && s.businessMetrics != nil {
		s.businessMetrics.RecordOrderCancelled(ctx)
	}
	return resp, err
}

// MarkPaid records a successful payment
func (s *OrderService) MarkPaid(ctx context.Context, caller identity.Principal, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, caller, orderID, "mark_paid", adminOnly,
		func(_ Repositories, o *order.Order, now time.Time) ([]shared.DomainEvent, error) {
			return nil, o.MarkPaid(now)
		})
}

// MarkPaymentFailed records a failed payment attempt
func (s *OrderService) MarkPaymentFailed(ctx context.Context, caller identity.Principal, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, caller, orderID, "mark_payment_failed", adminOnly,
		func(_ Repositories, o *order.Order, now time.Time) ([]shared.DomainEvent, error) {
			return nil, o.MarkPaymentFailed(now)
		})
}

// Refund marks the payment of a cancelled order as refunded
func (s *OrderService) Refund(ctx context.Context, caller identity.Principal, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, caller, orderID, "refund", adminOnly,
		func(_ Repositories, o *order.Order, now time.Time) ([]shared.DomainEvent, error) {
			return nil, o.Refund(now)
		})
}

type authorizer func(caller identity.Principal, o *order.Order) error

type mutation func(repos Repositories, o *order.Order, now time.Time) ([]shared.DomainEvent, error)

func (s *OrderService) transition(ctx context.Context, caller identity.Principal, orderID uuid.UUID, op string, authorize authorizer, apply mutation) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", op)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, orderID.String())

	var (
		updated *order.Order
		extra   []shared.DomainEvent
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		o, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !canView(caller, o) {
			return shared.ErrNotFound
		}
		if err := authorize(caller, o); err != nil {
			return err
		}

		events, err := apply(repos, o, s.clock())
		if err != nil {
			return err
		}
		if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
			return err
		}
		updated, extra = o, events
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if shared.ErrorCode(err) == "" {
			s.logger.Error("Order transition failed",
				zap.String("op", op),
				zap.String("order_id", orderID.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}
	updated.MarkPersisted()

	telemetry.SetAttributes(span, telemetry.SpanAttrOrderStatus, string(updated.Status))
	s.logger.Info("Order updated",
		zap.String("op", op),
		zap.String("order_id", updated.ID.String()),
		zap.String("status", string(updated.Status)),
		zap.String("payment_status", string(updated.PaymentStatus)),
	)

	s.publish(ctx, append(updated.GetDomainEvents(), extra...))
	updated.ClearDomainEvents()

	resp := ToOrderResponse(updated)
	return &resp, nil
}

// GetOrder returns an order the caller is allowed to see
func (s *OrderService) GetOrder(ctx context.Context, caller identity.Principal, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canView(caller, o) {
		return nil, shared.ErrNotFound
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// ListOrders lists the caller's orders: customers see their own, merchants
// see orders they fulfil a part of, admins see everything
func (s *OrderService) ListOrders(ctx context.Context, caller identity.Principal, req ListOrdersRequest) (*shared.Paginated[OrderResponse], error) {
	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  "created_at",
		OrderDir: req.OrderDir,
	}.Normalize()

	var scope order.ListScope
	switch caller.Role {
	case identity.RoleAdmin:
	case identity.RoleMerchant:
		scope.MerchantID = &caller.UserID
	default:
		scope.UserID = &caller.UserID
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown order status "+string(*req.Status))
		}
		scope.Status = req.Status
	}

	orders, total, err := s.orders.List(ctx, scope, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToOrderResponses(orders), total, filter.Page, filter.PageSize)
	return &page, nil
}

func (s *OrderService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish order events", zap.Error(err))
	}
}

func canView(caller identity.Principal, o *order.Order) bool {
	return caller.ActsFor(o.UserID) || (caller.IsMerchant() && o.HasMerchant(caller.UserID))
}

func canFulfil(caller identity.Principal, o *order.Order) error {
	if caller.IsAdmin() || (caller.IsMerchant() && o.HasMerchant(caller.UserID)) {
		return nil
	}
	return shared.ErrForbidden
}

func adminOnly(caller identity.Principal, _ *order.Order) error {
	if caller.IsAdmin() {
		return nil
	}
	return shared.ErrForbidden
}
