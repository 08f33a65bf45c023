package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yazilimxyz/marketplace/internal/domain/catalog"
	"github.com/yazilimxyz/marketplace/internal/domain/order"
	"github.com/yazilimxyz/marketplace/internal/domain/pricing"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/persistence/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newSQLiteDatabase opens a migrated in-memory database. A single
// connection keeps every statement on the same :memory: instance.
func newSQLiteDatabase(t *testing.T) *Database {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gormDB.AutoMigrate(models.All()...))
	db := &Database{DB: gormDB}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newMockGormDB creates a GORM handle over sqlmock speaking the postgres dialect
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func newTestVariant(t *testing.T, merchantID uuid.UUID, sku string, stock int) *catalog.ProductVariant {
	t.Helper()
	v, err := catalog.NewProductVariant(uuid.New(), merchantID, sku, "Linen Shirt", "M", "Navy", decimal.NewFromFloat(49.90), stock)
	require.NoError(t, err)
	return v
}

func newTestOrder(t *testing.T, userID uuid.UUID, at time.Time, lines ...*catalog.ProductVariant) *order.Order {
	t.Helper()

	items := make([]order.ItemSpec, 0, len(lines))
	merchantTotals := make(map[uuid.UUID]pricing.Breakdown)
	subtotal := decimal.Zero
	for _, v := range lines {
		items = append(items, order.ItemSpec{
			MerchantID:  v.MerchantID,
			ProductID:   v.ProductID,
			VariantID:   v.ID,
			Quantity:    1,
			UnitPrice:   v.UnitPrice,
			ProductName: v.ProductName,
			Size:        v.Size,
			Color:       v.Color,
		})
		mt := merchantTotals[v.MerchantID]
		mt.Subtotal = mt.Subtotal.Add(v.UnitPrice)
		merchantTotals[v.MerchantID] = mt
		subtotal = subtotal.Add(v.UnitPrice)
	}

	o, err := order.NewOrder(order.PlaceSpec{
		UserID:            userID,
		ShippingAddressID: uuid.New(),
		ShippingZone:      "domestic",
		Items:             items,
		Totals: pricing.Breakdown{
			Subtotal:       subtotal,
			ShippingFee:    decimal.Zero,
			DiscountAmount: decimal.Zero,
			Total:          subtotal,
		},
		MerchantTotals: merchantTotals,
		Now:            at,
	})
	require.NoError(t, err)
	return o
}
