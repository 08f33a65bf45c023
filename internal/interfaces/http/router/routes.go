package router

import (
	"github.com/gin-gonic/gin"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/handler"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers the marketplace API exposes
type Handlers struct {
	Auth          *handler.AuthHandler
	Address       *handler.AddressHandler
	Order         *handler.OrderHandler
	Variant       *handler.VariantHandler
	Notifications *handler.NotificationStreamHandler
	Health        *handler.HealthHandler
}

// Security holds the middleware that guards the API
type Security struct {
	Validator middleware.TokenValidator
	// OrderLimiter throttles order placement per user; nil disables it
	OrderLimiter *middleware.RateLimiter
}

// Groups returns the marketplace route groups
func Groups(h Handlers, sec Security) []RouteRegistrar {
	authenticate := middleware.Authenticate(middleware.JWTConfig{Validator: sec.Validator})
	// EventSource cannot send headers, so the stream also accepts ?access_token=
	streamAuthenticate := middleware.Authenticate(middleware.JWTConfig{Validator: sec.Validator, AllowQueryToken: true})

	var placeLimit gin.HandlerFunc
	if sec.OrderLimiter != nil {
		placeLimit = middleware.RateLimit(sec.OrderLimiter)
	}

	system := NewDomainGroup("system", "").
		GET("/health", h.Health.Health)

	auth := NewDomainGroup("auth", "/auth").
		POST("/register", h.Auth.Register).
		POST("/login", h.Auth.Login).
		POST("/refresh", h.Auth.RefreshToken)

	addresses := NewDomainGroup("identity", "/addresses").
		Use(authenticate).
		POST("", h.Address.AddAddress)

	orders := NewDomainGroup("order", "/orders").
		Use(authenticate).
		POST("", placeLimit, h.Order.PlaceOrder).
		GET("", h.Order.ListOrders).
		GET("/:id", h.Order.GetOrder).
		POST("/:id/confirm", h.Order.Confirm).
		POST("/:id/deliver", h.Order.Deliver).
		POST("/:id/cancel", h.Order.Cancel).
		POST("/:id/merchant-orders/:merchant_id/confirm", h.Order.ConfirmMerchantOrder).
		POST("/:id/payment/paid", h.Order.MarkPaid).
		POST("/:id/payment/failed", h.Order.MarkPaymentFailed).
		POST("/:id/payment/refunded", h.Order.Refund)

	variants := NewDomainGroup("catalog", "/variants").
		Use(authenticate, middleware.RequireRoles(identity.RoleMerchant, identity.RoleAdmin)).
		PATCH("/:id", h.Variant.UpdateVariant).
		POST("/:id/restock", h.Variant.Restock)

	notifications := NewDomainGroup("notification", "/notifications").
		Use(streamAuthenticate).
		GET("/stream", h.Notifications.Stream)

	return []RouteRegistrar{system, auth, addresses, orders, variants, notifications}
}
