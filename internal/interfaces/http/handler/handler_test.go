package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	catalogapp "github.com/yazilimxyz/marketplace/internal/application/catalog"
	identityapp "github.com/yazilimxyz/marketplace/internal/application/identity"
	inventoryapp "github.com/yazilimxyz/marketplace/internal/application/inventory"
	orderapp "github.com/yazilimxyz/marketplace/internal/application/order"
	"github.com/yazilimxyz/marketplace/internal/domain/catalog"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
	"github.com/yazilimxyz/marketplace/internal/domain/pricing"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/cache"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/dto"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/middleware"
	"github.com/yazilimxyz/marketplace/tests/testutil"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

const (
	testUserHeader = "X-Test-User"
	testRoleHeader = "X-Test-Role"
)

// principalFromHeaders stands in for the JWT middleware
func principalFromHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := uuid.Parse(c.GetHeader(testUserHeader)); err == nil {
			c.Set(middleware.JWTPrincipalKey, identity.Principal{
				UserID: id,
				Role:   identity.Role(c.GetHeader(testRoleHeader)),
			})
		}
		c.Next()
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

type marketFixture struct {
	store    *testutil.MemStore
	router   *gin.Engine
	customer identity.Principal
	merchant identity.Principal
	admin    identity.Principal
	address  *identity.Address
	shirt    *catalog.ProductVariant // 50.00, stock 2
}

func newMarketFixture(t *testing.T) *marketFixture {
	t.Helper()
	store := testutil.NewMemStore()
	f := &marketFixture{
		store:    store,
		customer: identity.Principal{UserID: uuid.New(), Role: identity.RoleCustomer},
		merchant: identity.Principal{UserID: uuid.New(), Role: identity.RoleMerchant},
		admin:    identity.Principal{UserID: uuid.New(), Role: identity.RoleAdmin},
	}

	shirt, err := catalog.NewProductVariant(uuid.New(), f.merchant.UserID, "SHIRT-M", "Shirt", "M", "blue", decimal.RequireFromString("50.00"), 2)
	require.NoError(t, err)
	store.SeedVariant(shirt)
	f.shirt = shirt

	addr, err := identity.NewAddress(f.customer.UserID, "Main St 1", "Ankara", "TR", "domestic")
	require.NoError(t, err)
	store.SeedAddress(addr)
	f.address = addr

	ledger := inventoryapp.NewLedgerService(store.InventoryScope(), 15*time.Minute, zap.NewNop())
	calculator := pricing.NewCalculator(pricing.ZoneShippingPolicy{
		ZoneFees:   map[string]decimal.Decimal{"domestic": decimal.NewFromInt(10)},
		DefaultFee: decimal.NewFromInt(25),
	}, nil)
	orders := orderapp.NewOrderService(
		store.OrderScope(),
		store.Orders(),
		catalogapp.NewRepositoryLookup(store.Variants()),
		identityapp.NewAddressBook(store.Addresses()),
		ledger,
		calculator,
		zap.NewNop(),
	)
	variants := catalogapp.NewVariantService(store.InventoryScope(), ledger, cache.NewInMemoryTagCache(), zap.NewNop())

	oh := NewOrderHandler(orders)
	vh := NewVariantHandler(variants)
	ah := NewAddressHandler(identityapp.NewAddressBook(store.Addresses()))

	r := gin.New()
	r.Use(middleware.RequestID(), principalFromHeaders())
	r.POST("/orders", oh.PlaceOrder)
	r.GET("/orders", oh.ListOrders)
	r.GET("/orders/:id", oh.GetOrder)
	r.POST("/orders/:id/confirm", oh.Confirm)
	r.POST("/orders/:id/deliver", oh.Deliver)
	r.POST("/orders/:id/cancel", oh.Cancel)
	r.POST("/orders/:id/merchant-orders/:merchant_id/confirm", oh.ConfirmMerchantOrder)
	r.POST("/orders/:id/payment/paid", oh.MarkPaid)
	r.POST("/orders/:id/payment/failed", oh.MarkPaymentFailed)
	r.POST("/orders/:id/payment/refunded", oh.Refund)
	r.PATCH("/variants/:id", vh.UpdateVariant)
	r.POST("/variants/:id/restock", vh.Restock)
	r.POST("/addresses", ah.AddAddress)
	f.router = r
	return f
}

func (f *marketFixture) do(t *testing.T, as *identity.Principal, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set(testUserHeader, as.UserID.String())
		req.Header.Set(testRoleHeader, string(as.Role))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (f *marketFixture) placeOrder(t *testing.T, qty int) orderapp.OrderResponse {
	t.Helper()
	w, env := f.do(t, &f.customer, http.MethodPost, "/orders", map[string]any{
		"items":               []map[string]any{{"variant_id": f.shirt.ID, "quantity": qty}},
		"shipping_address_id": f.address.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp orderapp.OrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}
