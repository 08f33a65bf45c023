// Package integration runs the marketplace against a real PostgreSQL started
// with testcontainers. The schema comes from the repository migrations.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/yazilimxyz/marketplace/internal/domain/catalog"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/config"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/logger"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/migration"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/persistence"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	gormlogger "gorm.io/gorm/logger"
)

// TestDB is a migrated database in its own container
type TestDB struct {
	*persistence.Database
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewTestDB starts PostgreSQL, applies every migration and registers cleanup.
// It skips in -short mode.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("marketplace_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	opts := []persistence.Option{}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		opts = append(opts, persistence.WithLogger(logger.NewGormLogger(zap.NewExample(), gormlogger.Info)))
	}
	db, err := persistence.Open(ctx, gormpostgres.Open(dsn), &config.DatabaseConfig{
		MaxOpenConns: 30,
		MaxIdleConns: 10,
	}, opts...)
	require.NoError(t, err, "Failed to connect to database")
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	m, err := migration.New(sqlDB, migration.Config{MigrationsPath: findMigrationsPath(t)}, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(ctx), "Failed to run migrations")

	return &TestDB{Database: db, Container: container, DSN: dsn, t: t}
}

// SeedUser inserts an active user with the given role. Its password is "password123".
func (tdb *TestDB) SeedUser(role identity.Role, email string) *identity.User {
	tdb.t.Helper()
	u, err := identity.NewUser(email, "Test "+string(role), "password123", role)
	require.NoError(tdb.t, err)
	require.NoError(tdb.t, persistence.NewGormUserRepository(tdb.DB).Save(context.Background(), u))
	return u
}

// SeedAddress inserts a shipping address owned by userID.
func (tdb *TestDB) SeedAddress(userID uuid.UUID, zone string) *identity.Address {
	tdb.t.Helper()
	a, err := identity.NewAddress(userID, "Main St 1", "Istanbul", "TR", zone)
	require.NoError(tdb.t, err)
	require.NoError(tdb.t, persistence.NewGormAddressRepository(tdb.DB).Save(context.Background(), a))
	return a
}

// SeedVariant inserts an active variant sold by merchantID.
func (tdb *TestDB) SeedVariant(merchantID uuid.UUID, sku, price string, stock int) *catalog.ProductVariant {
	tdb.t.Helper()
	v, err := catalog.NewProductVariant(uuid.New(), merchantID, sku, "Product "+sku, "M", "black", decimal.RequireFromString(price), stock)
	require.NoError(tdb.t, err)
	require.NoError(tdb.t, persistence.NewGormVariantRepository(tdb.DB).Create(context.Background(), v))
	return v
}

// StockOf reads the persisted stock and reserved counts of a variant.
func (tdb *TestDB) StockOf(variantID uuid.UUID) (stock, reserved int) {
	tdb.t.Helper()
	v, err := persistence.NewGormVariantRepository(tdb.DB).FindByID(context.Background(), variantID)
	require.NoError(tdb.t, err)
	return v.Stock(), v.Reserved()
}

// CountRows counts rows in table matching where.
func (tdb *TestDB) CountRows(table, where string, args ...any) int64 {
	tdb.t.Helper()
	var n int64
	require.NoError(tdb.t, tdb.DB.Table(table).Where(where, args...).Count(&n).Error)
	return n
}

func findMigrationsPath(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Could not locate test source")

	dir := filepath.Dir(filename)
	for i := 0; i < 4; i++ {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	require.FailNow(t, "Could not find migrations directory")
	return ""
}
