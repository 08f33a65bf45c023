package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	orderapp "github.com/yazilimxyz/marketplace/internal/application/order"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
)

// OrderHandler handles order placement and lifecycle endpoints
type OrderHandler struct {
	BaseHandler
	orderService *orderapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *orderapp.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// PlaceOrder handles POST /orders
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	var req orderapp.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.orderService.PlaceOrder(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.orderService.GetOrder(c.Request.Context(), caller, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListOrders handles GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}

	var req orderapp.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.orderService.ListOrders(c.Request.Context(), caller, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

type transitionFunc func(ctx context.Context, caller identity.Principal, orderID uuid.UUID) (*orderapp.OrderResponse, error)

// transition adapts a lifecycle operation taking only the order ID
func (h *OrderHandler) transition(fn transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := h.principal(c)
		if !ok {
			return
		}
		id, ok := h.uuidParam(c, "id")
		if !ok {
			return
		}

		resp, err := fn(c.Request.Context(), caller, id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, resp)
	}
}

// Confirm handles POST /orders/:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) { h.transition(h.orderService.Confirm)(c) }

// Deliver handles POST /orders/:id/deliver
func (h *OrderHandler) Deliver(c *gin.Context) { h.transition(h.orderService.Deliver)(c) }

// Cancel handles POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) { h.transition(h.orderService.Cancel)(c) }

// MarkPaid handles POST /orders/:id/payment/paid
func (h *OrderHandler) MarkPaid(c *gin.Context) { h.transition(h.orderService.MarkPaid)(c) }

// MarkPaymentFailed handles POST /orders/:id/payment/failed
func (h *OrderHandler) MarkPaymentFailed(c *gin.Context) {
	h.transition(h.orderService.MarkPaymentFailed)(c)
}

// Refund handles POST /orders/:id/payment/refunded
func (h *OrderHandler) Refund(c *gin.Context) { h.transition(h.orderService.Refund)(c) }

// ConfirmMerchantOrder handles POST /orders/:id/merchant-orders/:merchant_id/confirm
func (h *OrderHandler) ConfirmMerchantOrder(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	merchantID, ok := h.uuidParam(c, "merchant_id")
	if !ok {
		return
	}

	resp, err := h.orderService.ConfirmMerchantOrder(c.Request.Context(), caller, orderID, merchantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
