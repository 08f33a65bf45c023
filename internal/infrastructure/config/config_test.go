package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"MKT_APP_NAME",
	"MKT_APP_ENV",
	"MKT_APP_PORT",
	"MKT_DATABASE_HOST",
	"MKT_DATABASE_PORT",
	"MKT_DATABASE_USER",
	"MKT_DATABASE_PASSWORD",
	"MKT_DATABASE_DBNAME",
	"MKT_DATABASE_SSLMODE",
	"MKT_DATABASE_MAX_OPEN_CONNS",
	"MKT_DATABASE_MAX_IDLE_CONNS",
	"MKT_JWT_SECRET",
	"MKT_STOCK_LOCK_DEFAULT_EXPIRATION",
	"MKT_STOCK_LOCK_BATCH_SIZE",
	"MKT_PRICING_DEFAULT_SHIPPING_FEE",
	"MKT_PRICING_FREE_SHIPPING_THRESHOLD",
	"MKT_PRICING_PROMOTION_PERCENT",
	"MKT_TELEMETRY_SAMPLING_RATIO",
	"MKT_TELEMETRY_DB_LOG_FULL_SQL",
	"MKT_HTTP_CORS_ALLOW_ORIGINS",
}

// clearEnv blanks every key for the duration of the test; t.Setenv restores them.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "marketplace", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "marketplace", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 15*time.Minute, cfg.StockLock.DefaultExpiration)
		assert.Equal(t, time.Minute, cfg.StockLock.CheckInterval)
		assert.Equal(t, 500, cfg.StockLock.BatchSize)
		assert.Equal(t, 5*time.Minute, cfg.Cache.CatalogTTL)
		assert.Equal(t, 16, cfg.Notification.BufferSize)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
		assert.False(t, cfg.Telemetry.Enabled)
		assert.False(t, cfg.Redis.Enabled)
	})

	t.Run("loads values from environment variables with MKT prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MKT_APP_NAME", "test-app")
		t.Setenv("MKT_APP_ENV", "testing")
		t.Setenv("MKT_APP_PORT", "9000")
		t.Setenv("MKT_DATABASE_HOST", "testdb.local")
		t.Setenv("MKT_DATABASE_PORT", "5433")
		t.Setenv("MKT_DATABASE_USER", "testuser")
		t.Setenv("MKT_DATABASE_PASSWORD", "testpass")
		t.Setenv("MKT_DATABASE_DBNAME", "testdb")
		t.Setenv("MKT_DATABASE_SSLMODE", "require")
		t.Setenv("MKT_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("MKT_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("MKT_STOCK_LOCK_DEFAULT_EXPIRATION", "30m")
		t.Setenv("MKT_STOCK_LOCK_BATCH_SIZE", "100")
		t.Setenv("MKT_PRICING_DEFAULT_SHIPPING_FEE", "4.99")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, 30*time.Minute, cfg.StockLock.DefaultExpiration)
		assert.Equal(t, 100, cfg.StockLock.BatchSize)
		assert.Equal(t, "4.99", cfg.Pricing.DefaultShippingFee)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MKT_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("MKT_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MKT_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MKT_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("rejects malformed shipping fee", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MKT_PRICING_DEFAULT_SHIPPING_FEE", "five")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pricing.default_shipping_fee")
	})

	t.Run("rejects promotion above 100 percent", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MKT_PRICING_PROMOTION_PERCENT", "120")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "promotion_percent")
	})

	t.Run("rejects sampling ratio out of range", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MKT_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		t.Setenv("MKT_APP_ENV", "production")
		t.Setenv("MKT_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		t.Setenv("MKT_DATABASE_PASSWORD", "secure-password")
		t.Setenv("MKT_DATABASE_SSLMODE", "require")
	}

	t.Run("requires jwt.secret in production", func(t *testing.T) {
		clearEnv(t)
		setValidProductionBase(t)
		os.Unsetenv("MKT_JWT_SECRET")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret is required in production")
	})

	t.Run("requires jwt.secret at least 32 characters in production", func(t *testing.T) {
		clearEnv(t)
		setValidProductionBase(t)
		t.Setenv("MKT_JWT_SECRET", "short-secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret must be at least 32 characters")
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv(t)
		setValidProductionBase(t)
		os.Unsetenv("MKT_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv(t)
		setValidProductionBase(t)
		t.Setenv("MKT_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects full SQL logging in production", func(t *testing.T) {
		clearEnv(t)
		setValidProductionBase(t)
		t.Setenv("MKT_TELEMETRY_DB_LOG_FULL_SQL", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db_log_full_sql")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv(t)
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})
}

func TestPricingConfig_Shipping(t *testing.T) {
	t.Run("parses zone fees and lower-cases zone names", func(t *testing.T) {
		p := PricingConfig{
			ZoneFees:              map[string]string{"EU": "7.50", "domestic": "2"},
			DefaultShippingFee:    "9.99",
			FreeShippingThreshold: "100",
		}

		s, err := p.Shipping()
		require.NoError(t, err)
		assert.True(t, s.ZoneFees["eu"].Equal(decimal.RequireFromString("7.5")))
		assert.True(t, s.ZoneFees["domestic"].Equal(decimal.NewFromInt(2)))
		assert.True(t, s.DefaultFee.Equal(decimal.RequireFromString("9.99")))
		assert.True(t, s.FreeShippingThreshold.Equal(decimal.NewFromInt(100)))
	})

	t.Run("rejects negative zone fee", func(t *testing.T) {
		p := PricingConfig{
			ZoneFees:              map[string]string{"eu": "-1"},
			DefaultShippingFee:    "0",
			FreeShippingThreshold: "0",
		}

		_, err := p.Shipping()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pricing.zone_fees.eu")
	})

	t.Run("rejects fractions of a minor unit", func(t *testing.T) {
		tests := []struct {
			name string
			cfg  PricingConfig
			key  string
		}{
			{"zone fee", PricingConfig{ZoneFees: map[string]string{"eu": "4.995"}, DefaultShippingFee: "0", FreeShippingThreshold: "0"}, "pricing.zone_fees.eu"},
			{"default fee", PricingConfig{DefaultShippingFee: "9.999", FreeShippingThreshold: "0"}, "pricing.default_shipping_fee"},
			{"threshold", PricingConfig{DefaultShippingFee: "5", FreeShippingThreshold: "99.001"}, "pricing.free_shipping_threshold"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := tt.cfg.Shipping()
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.key)
			})
		}
	})
}

func TestPricingConfig_Promotion(t *testing.T) {
	t.Run("empty percent disables the promotion", func(t *testing.T) {
		s, err := PricingConfig{}.Promotion()
		require.NoError(t, err)
		assert.False(t, s.Enabled)
	})

	t.Run("percent may be fractional", func(t *testing.T) {
		s, err := PricingConfig{PromotionPercent: "12.345"}.Promotion()
		require.NoError(t, err)
		assert.True(t, s.Percent.Equal(decimal.RequireFromString("12.345")))
	})

	t.Run("parses percent and minimum subtotal", func(t *testing.T) {
		s, err := PricingConfig{PromotionPercent: "10", PromotionMinSubtotal: "50"}.Promotion()
		require.NoError(t, err)
		assert.True(t, s.Enabled)
		assert.True(t, s.Percent.Equal(decimal.NewFromInt(10)))
		assert.True(t, s.MinSubtotal.Equal(decimal.NewFromInt(50)))
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}
