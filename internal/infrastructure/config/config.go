package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	HTTP         HTTPConfig
	StockLock    StockLockConfig
	Pricing      PricingConfig
	Cache        CacheConfig
	Telemetry    TelemetryConfig
	Notification NotificationConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port for the redis client
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	RefreshSecret          string
	MaxRefreshCount        int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	// Order placement limit per user; zero disables it
	OrderRateLimit  int
	OrderRateWindow time.Duration
}

// StockLockConfig holds reservation expiry settings
type StockLockConfig struct {
	CheckInterval      time.Duration // How often the sweeper runs
	DefaultExpiration  time.Duration // Reservation TTL
	AutoReleaseEnabled bool          // Whether the sweeper runs at all
	BatchSize          int           // Max reservations released per sweep
}

// PricingConfig holds shipping and promotion settings.
// Amounts are strings so they parse into exact decimals.
type PricingConfig struct {
	ZoneFees              map[string]string
	DefaultShippingFee    string
	FreeShippingThreshold string
	PromotionPercent      string
	PromotionMinSubtotal  string
}

// CacheConfig holds catalog cache settings
type CacheConfig struct {
	CatalogTTL     time.Duration
	IdempotencyTTL time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	MetricsEnabled    bool    // Whether to export business metrics
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
}

// NotificationConfig holds SSE fan-out settings
type NotificationConfig struct {
	BufferSize        int           // Per-connection channel buffer
	HeartbeatInterval time.Duration // Keep-alive comment interval on SSE streams
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MKT_ prefix (e.g., MKT_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("MKT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			OrderRateLimit:   v.GetInt("http.order_rate_limit"),
			OrderRateWindow:  v.GetDuration("http.order_rate_window"),
		},
		StockLock: StockLockConfig{
			CheckInterval:      v.GetDuration("stock_lock.check_interval"),
			DefaultExpiration:  v.GetDuration("stock_lock.default_expiration"),
			AutoReleaseEnabled: v.GetBool("stock_lock.auto_release_enabled"),
			BatchSize:          v.GetInt("stock_lock.batch_size"),
		},
		Pricing: PricingConfig{
			ZoneFees:              v.GetStringMapString("pricing.zone_fees"),
			DefaultShippingFee:    v.GetString("pricing.default_shipping_fee"),
			FreeShippingThreshold: v.GetString("pricing.free_shipping_threshold"),
			PromotionPercent:      v.GetString("pricing.promotion_percent"),
			PromotionMinSubtotal:  v.GetString("pricing.promotion_min_subtotal"),
		},
		Cache: CacheConfig{
			CatalogTTL:     v.GetDuration("cache.catalog_ttl"),
			IdempotencyTTL: v.GetDuration("cache.idempotency_ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Notification: NotificationConfig{
			BufferSize:        v.GetInt("notification.buffer_size"),
			HeartbeatInterval: v.GetDuration("notification.heartbeat_interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "marketplace"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "marketplace"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "marketplace"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// SSE streams stay open, so the write timeout stays off unless configured
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.HTTP.OrderRateWindow == 0 {
		cfg.HTTP.OrderRateWindow = time.Minute
	}
	if cfg.StockLock.CheckInterval == 0 {
		cfg.StockLock.CheckInterval = time.Minute
	}
	if cfg.StockLock.DefaultExpiration == 0 {
		cfg.StockLock.DefaultExpiration = 15 * time.Minute
	}
	if cfg.StockLock.BatchSize == 0 {
		cfg.StockLock.BatchSize = 500
	}
	if cfg.Pricing.DefaultShippingFee == "" {
		cfg.Pricing.DefaultShippingFee = "0"
	}
	if cfg.Pricing.FreeShippingThreshold == "" {
		cfg.Pricing.FreeShippingThreshold = "0"
	}
	if cfg.Cache.CatalogTTL == 0 {
		cfg.Cache.CatalogTTL = 5 * time.Minute
	}
	if cfg.Cache.IdempotencyTTL == 0 {
		cfg.Cache.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "marketplace"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Notification.BufferSize == 0 {
		cfg.Notification.BufferSize = 16
	}
	if cfg.Notification.HeartbeatInterval == 0 {
		cfg.Notification.HeartbeatInterval = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.StockLock.DefaultExpiration < 0 {
		return fmt.Errorf("stock_lock.default_expiration cannot be negative")
	}

	if _, err := c.Pricing.Shipping(); err != nil {
		return err
	}
	if _, err := c.Pricing.Promotion(); err != nil {
		return err
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// ShippingSettings is the parsed form of the shipping part of PricingConfig
type ShippingSettings struct {
	ZoneFees              map[string]decimal.Decimal
	DefaultFee            decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// Shipping parses the configured shipping amounts. Zone names are lower-cased.
func (p PricingConfig) Shipping() (ShippingSettings, error) {
	out := ShippingSettings{ZoneFees: make(map[string]decimal.Decimal, len(p.ZoneFees))}
	var err error
	if out.DefaultFee, err = parseAmount("pricing.default_shipping_fee", p.DefaultShippingFee); err != nil {
		return ShippingSettings{}, err
	}
	if out.FreeShippingThreshold, err = parseAmount("pricing.free_shipping_threshold", p.FreeShippingThreshold); err != nil {
		return ShippingSettings{}, err
	}
	for zone, raw := range p.ZoneFees {
		fee, err := parseAmount("pricing.zone_fees."+zone, raw)
		if err != nil {
			return ShippingSettings{}, err
		}
		out.ZoneFees[strings.ToLower(zone)] = fee
	}
	return out, nil
}

// PromotionSettings is the parsed form of the promotion part of PricingConfig
type PromotionSettings struct {
	Enabled     bool
	Percent     decimal.Decimal
	MinSubtotal decimal.Decimal
}

// Promotion parses the storewide percentage promotion. An empty percent disables it.
func (p PricingConfig) Promotion() (PromotionSettings, error) {
	if p.PromotionPercent == "" {
		return PromotionSettings{}, nil
	}
	pct, err := parseDecimal("pricing.promotion_percent", p.PromotionPercent)
	if err != nil {
		return PromotionSettings{}, err
	}
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return PromotionSettings{}, fmt.Errorf("pricing.promotion_percent must not exceed 100")
	}
	minSubtotal := decimal.Zero
	if p.PromotionMinSubtotal != "" {
		if minSubtotal, err = parseAmount("pricing.promotion_min_subtotal", p.PromotionMinSubtotal); err != nil {
			return PromotionSettings{}, err
		}
	}
	return PromotionSettings{Enabled: pct.IsPositive(), Percent: pct, MinSubtotal: minSubtotal}, nil
}

// moneyPlaces matches the DECIMAL(12,2) money columns
const moneyPlaces int32 = 2

// parseAmount parses a money value, which must be whole minor units
func parseAmount(key, raw string) (decimal.Decimal, error) {
	d, err := parseDecimal(key, raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.Equal(d.Round(moneyPlaces)) {
		return decimal.Zero, fmt.Errorf("%s: %q has more than %d decimal places", key, raw, moneyPlaces)
	}
	return d, nil
}

func parseDecimal(key, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid amount %q: %w", key, raw, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s cannot be negative", key)
	}
	return d, nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// IsProduction reports whether the app runs with production settings
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
