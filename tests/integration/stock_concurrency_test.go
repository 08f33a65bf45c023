package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	catalogapp "github.com/yazilimxyz/marketplace/internal/application/catalog"
	identityapp "github.com/yazilimxyz/marketplace/internal/application/identity"
	inventoryapp "github.com/yazilimxyz/marketplace/internal/application/inventory"
	orderapp "github.com/yazilimxyz/marketplace/internal/application/order"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
	"github.com/yazilimxyz/marketplace/internal/domain/inventory"
	"github.com/yazilimxyz/marketplace/internal/domain/pricing"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

type checkoutStack struct {
	ledger *inventoryapp.LedgerService
	orders *orderapp.OrderService
	scope  *persistence.GormTransactionScope
}

func newCheckoutStack(tdb *TestDB) *checkoutStack {
	scope := persistence.NewGormTransactionScope(tdb.DB)
	ledger := inventoryapp.NewLedgerService(scope.InventoryScope(), 15*time.Minute, zap.NewNop())
	calculator := pricing.NewCalculator(pricing.ZoneShippingPolicy{
		ZoneFees:   map[string]decimal.Decimal{"domestic": decimal.NewFromInt(10)},
		DefaultFee: decimal.NewFromInt(25),
	}, nil)
	orders := orderapp.NewOrderService(
		scope.OrderScope(),
		persistence.NewGormOrderRepository(tdb.DB),
		catalogapp.NewRepositoryLookup(persistence.NewGormVariantRepository(tdb.DB)),
		identityapp.NewAddressBook(persistence.NewGormAddressRepository(tdb.DB)),
		ledger,
		calculator,
		zap.NewNop(),
	)
	return &checkoutStack{ledger: ledger, orders: orders, scope: scope}
}

func TestPlaceOrder_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	tdb := NewTestDB(t)
	stack := newCheckoutStack(tdb)

	merchant := tdb.SeedUser(identity.RoleMerchant, "merchant@example.com")
	customer := tdb.SeedUser(identity.RoleCustomer, "customer@example.com")
	addr := tdb.SeedAddress(customer.ID, "domestic")
	variant := tdb.SeedVariant(merchant.ID, "TEE-LIMITED", "20.00", 5)
	caller := identity.Principal{UserID: customer.ID, Role: identity.RoleCustomer}

	const buyers = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		placed   int
		failures []error
	)
	start := make(chan struct{})
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := stack.orders.PlaceOrder(context.Background(), caller, orderapp.PlaceOrderRequest{
				Items:             []orderapp.CartItem{{VariantID: variant.ID, Quantity: 1}},
				ShippingAddressID: addr.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			placed++
		}()
	}
	close(start)
	wg.Wait()

	stock, reserved := tdb.StockOf(variant.ID)
	assert.Equal(t, 5, placed, "exactly the available units are sold")
	assert.Equal(t, 0, stock)
	assert.Equal(t, 0, reserved)
	assert.Len(t, failures, buyers-placed)
	for _, err := range failures {
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock), "unexpected failure: %v", err)
	}

	assert.EqualValues(t, 5, tdb.CountRows("orders", "user_id = ?", customer.ID))
	assert.EqualValues(t, 5, tdb.CountRows("stock_reservations", "variant_id = ? AND status = ?", variant.ID, string(inventory.ReservationStatusCommitted)))
	assert.EqualValues(t, 0, tdb.CountRows("stock_reservations", "variant_id = ? AND status = ?", variant.ID, string(inventory.ReservationStatusActive)))
}

func TestPlaceOrder_ShortLineLeavesNoStockHeld(t *testing.T) {
	tdb := NewTestDB(t)
	stack := newCheckoutStack(tdb)

	merchantA := tdb.SeedUser(identity.RoleMerchant, "a@example.com")
	merchantB := tdb.SeedUser(identity.RoleMerchant, "b@example.com")
	customer := tdb.SeedUser(identity.RoleCustomer, "customer@example.com")
	addr := tdb.SeedAddress(customer.ID, "domestic")
	plenty := tdb.SeedVariant(merchantA.ID, "MUG", "12.50", 10)
	scarce := tdb.SeedVariant(merchantB.ID, "POSTER", "8.00", 1)

	_, err := stack.orders.PlaceOrder(context.Background(),
		identity.Principal{UserID: customer.ID, Role: identity.RoleCustomer},
		orderapp.PlaceOrderRequest{
			Items: []orderapp.CartItem{
				{VariantID: plenty.ID, Quantity: 3},
				{VariantID: scarce.ID, Quantity: 2},
			},
			ShippingAddressID: addr.ID,
		})

	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortages, 1)
	assert.Equal(t, scarce.ID, stockErr.Shortages[0].VariantID)
	assert.Equal(t, 1, stockErr.Shortages[0].Available)

	stock, reserved := tdb.StockOf(plenty.ID)
	assert.Equal(t, 10, stock, "the reserved line is released")
	assert.Equal(t, 0, reserved)
	assert.EqualValues(t, 0, tdb.CountRows("orders", "1 = 1"))
	assert.EqualValues(t, 0, tdb.CountRows("stock_reservations", "status = ?", string(inventory.ReservationStatusActive)))
}

func TestCancel_RestocksCommittedUnits(t *testing.T) {
	tdb := NewTestDB(t)
	stack := newCheckoutStack(tdb)

	merchant := tdb.SeedUser(identity.RoleMerchant, "merchant@example.com")
	customer := tdb.SeedUser(identity.RoleCustomer, "customer@example.com")
	addr := tdb.SeedAddress(customer.ID, "domestic")
	variant := tdb.SeedVariant(merchant.ID, "HOODIE", "45.00", 4)
	caller := identity.Principal{UserID: customer.ID, Role: identity.RoleCustomer}

	placed, err := stack.orders.PlaceOrder(context.Background(), caller, orderapp.PlaceOrderRequest{
		Items:             []orderapp.CartItem{{VariantID: variant.ID, Quantity: 3}},
		ShippingAddressID: addr.ID,
	})
	require.NoError(t, err)
	assert.True(t, placed.Total.Equal(decimal.RequireFromString("145.00")))

	stock, _ := tdb.StockOf(variant.ID)
	require.Equal(t, 1, stock)

	cancelled, err := stack.orders.Cancel(context.Background(), caller, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", cancelled.Status)

	stock, reserved := tdb.StockOf(variant.ID)
	assert.Equal(t, 4, stock)
	assert.Equal(t, 0, reserved)

	_, err = stack.orders.Cancel(context.Background(), caller, placed.ID)
	assert.True(t, errors.Is(err, shared.ErrInvalidStateTransition), "second cancel: %v", err)
	stock, _ = tdb.StockOf(variant.ID)
	assert.Equal(t, 4, stock, "a rejected cancel does not restock twice")
}

func TestGetOrder_HiddenFromUnrelatedMerchant(t *testing.T) {
	tdb := NewTestDB(t)
	stack := newCheckoutStack(tdb)

	seller := tdb.SeedUser(identity.RoleMerchant, "seller@example.com")
	other := tdb.SeedUser(identity.RoleMerchant, "other@example.com")
	customer := tdb.SeedUser(identity.RoleCustomer, "customer@example.com")
	addr := tdb.SeedAddress(customer.ID, "remote")
	variant := tdb.SeedVariant(seller.ID, "CAP", "15.00", 2)

	placed, err := stack.orders.PlaceOrder(context.Background(),
		identity.Principal{UserID: customer.ID, Role: identity.RoleCustomer},
		orderapp.PlaceOrderRequest{
			Items:             []orderapp.CartItem{{VariantID: variant.ID, Quantity: 1}},
			ShippingAddressID: addr.ID,
		})
	require.NoError(t, err)
	assert.True(t, placed.ShippingFee.Equal(decimal.NewFromInt(25)), "unknown zones use the default fee")

	_, err = stack.orders.GetOrder(context.Background(), identity.Principal{UserID: seller.ID, Role: identity.RoleMerchant}, placed.ID)
	require.NoError(t, err)

	_, err = stack.orders.GetOrder(context.Background(), identity.Principal{UserID: other.ID, Role: identity.RoleMerchant}, placed.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	_, err = stack.orders.GetOrder(context.Background(), identity.Principal{UserID: uuid.New(), Role: identity.RoleCustomer}, placed.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
