package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/yazilimxyz/marketplace/internal/application/catalog"
	identityapp "github.com/yazilimxyz/marketplace/internal/application/identity"
	inventoryapp "github.com/yazilimxyz/marketplace/internal/application/inventory"
	orderapp "github.com/yazilimxyz/marketplace/internal/application/order"
	"github.com/yazilimxyz/marketplace/internal/domain/pricing"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/auth"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/cache"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/config"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/event"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/logger"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/notification"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/persistence"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/scheduler"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/telemetry"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/handler"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/middleware"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.ForEnvironment(cfg.App.Env, cfg.Log.Level)
	if cfg.Log.Format != "" {
		logCfg.Format = cfg.Log.Format
	}
	if cfg.Log.Output != "" {
		logCfg.Output = cfg.Log.Output
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting marketplace",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := mp.Meter(cfg.Telemetry.ServiceName)
	businessMetrics, err := telemetry.NewBusinessMetrics(meter)
	if err != nil {
		log.Fatal("Failed to register business metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)
	dbOpts := []persistence.Option{persistence.WithLogger(gormLog)}
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbOpts = append(dbOpts, persistence.WithPlugin(telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBName:          cfg.Database.DBName,
		}, log)))
	}
	db, err := persistence.NewDatabase(ctx, &cfg.Database, dbOpts...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if mp.IsEnabled() {
		if sqlDB, err := db.DB.DB(); err == nil {
			poolStats, err := telemetry.NewPoolStatsCollector(meter, sqlDB, 0, log)
			if err != nil {
				log.Fatal("Failed to register pool metrics", zap.Error(err))
			}
			poolStats.Start(ctx)
			defer poolStats.Stop()
		}
	}

	// Caches
	backend, err := cache.NewBackend(ctx, cfg.Redis, !cfg.IsProduction(), log)
	if err != nil {
		log.Fatal("Failed to initialize cache backend", zap.Error(err))
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("Error closing cache backend", zap.Error(err))
		}
	}()

	// Notifications and events
	registry := notification.NewRegistry(cfg.Notification.BufferSize, log)
	bus := event.NewInMemoryEventBus(log)
	orderEvents := event.NewIdempotentHandler(
		notification.NewOrderEventHandler(registry, log),
		backend.Idempotency,
		log,
		event.WithIdempotencyConfig(event.IdempotencyConfig{Enabled: true, TTL: cfg.Cache.IdempotencyTTL}),
	)
	bus.Subscribe(orderEvents, orderEvents.EventTypes()...)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	scope := persistence.NewGormTransactionScope(db.DB)
	ledger := inventoryapp.NewLedgerService(scope.InventoryScope(), cfg.StockLock.DefaultExpiration, log)
	ledger.SetEventPublisher(bus)
	lookup := catalogapp.NewCachedLookup(
		catalogapp.NewRepositoryLookup(persistence.NewGormVariantRepository(db.DB)),
		backend.Tags,
		cfg.Cache.CatalogTTL,
		log,
	)
	calculator, err := newCalculator(cfg.Pricing)
	if err != nil {
		log.Fatal("Invalid pricing configuration", zap.Error(err))
	}
	addressBook := identityapp.NewAddressBook(persistence.NewGormAddressRepository(db.DB))

	orderService := orderapp.NewOrderService(scope.OrderScope(), persistence.NewGormOrderRepository(db.DB), lookup, addressBook, ledger, calculator, log)
	orderService.SetEventPublisher(bus)
	orderService.SetBusinessMetrics(businessMetrics)

	variantService := catalogapp.NewVariantService(scope.InventoryScope(), ledger, backend.Tags, log)

	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(persistence.NewGormUserRepository(db.DB), jwtService, log)

	// Background jobs
	jobs := scheduler.NewScheduler(log)
	if cfg.StockLock.AutoReleaseEnabled {
		sweeper := inventoryapp.NewReservationSweeper(ledger, scope.InventoryScope(), cfg.StockLock.BatchSize, log)
		if err := jobs.Register(scheduler.NewReservationSweepTask(sweeper, cfg.StockLock.CheckInterval, businessMetrics, log)); err != nil {
			log.Fatal("Failed to register reservation sweep", zap.Error(err))
		}
	}
	if err := jobs.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// HTTP
	var httpMeter metric.Meter
	if mp.IsEnabled() {
		httpMeter = meter
	}
	engine, err := router.NewEngine(router.EngineConfig{
		HTTP:           cfg.HTTP,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tp.IsEnabled(),
		Meter:          httpMeter,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	health := handler.NewHealthHandler(version, map[string]handler.Pinger{
		"database": db,
		"cache":    backend,
	})
	var orderLimiter *middleware.RateLimiter
	if cfg.HTTP.OrderRateLimit > 0 {
		orderLimiter = middleware.NewRateLimiter(cfg.HTTP.OrderRateLimit, cfg.HTTP.OrderRateWindow)
	}

	r := router.NewRouter(engine)
	r.Register(router.Groups(router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Address: handler.NewAddressHandler(addressBook),
		Order:   handler.NewOrderHandler(orderService),
		Variant: handler.NewVariantHandler(variantService),
		Notifications: handler.NewNotificationStreamHandler(registry,
			handler.WithHeartbeat(cfg.Notification.HeartbeatInterval),
			handler.WithConnectionRecorder(businessMetrics),
		),
		Health: health,
	}, router.Security{
		Validator:    jwtService,
		OrderLimiter: orderLimiter,
	})...)
	r.Setup()

	// Load balancers probe the root path
	engine.GET("/health", health.Health)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close open SSE streams first so Shutdown does not wait on them
	registry.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping scheduler", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func newCalculator(cfg config.PricingConfig) (*pricing.Calculator, error) {
	shipping, err := cfg.Shipping()
	if err != nil {
		return nil, err
	}
	promo, err := cfg.Promotion()
	if err != nil {
		return nil, err
	}
	var promotions pricing.PromotionEvaluator
	if promo.Enabled {
		promotions = pricing.PercentagePromotion{Percent: promo.Percent, MinSubtotal: promo.MinSubtotal}
	}
	return pricing.NewCalculator(pricing.ZoneShippingPolicy{
		ZoneFees:              shipping.ZoneFees,
		DefaultFee:            shipping.DefaultFee,
		FreeShippingThreshold: shipping.FreeShippingThreshold,
	}, promotions), nil
}
