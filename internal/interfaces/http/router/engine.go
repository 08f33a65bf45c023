package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/config"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/logger"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig configures the global middleware stack
type EngineConfig struct {
	HTTP           config.HTTPConfig
	ServiceName    string
	TracingEnabled bool
	// Meter records HTTP metrics; nil disables them
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewEngine creates a gin engine with the global middleware applied in order:
// request ID, panic recovery, request logging, tracing, metrics, security
// headers, CORS and the body size limit.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			return nil, fmt.Errorf("set trusted proxies: %w", err)
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled)...)

	metrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("create http metrics: %w", err)
	}
	engine.Use(metrics)
	engine.Use(middleware.Secure())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORS(cors))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	return engine, nil
}
