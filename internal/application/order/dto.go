package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yazilimxyz/marketplace/internal/domain/order"
)

// CartItem is one requested line
type CartItem struct {
	VariantID uuid.UUID `json:"variant_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required"`
}

// PlaceOrderRequest represents a checkout request
type PlaceOrderRequest struct {
	Items             []CartItem `json:"items" binding:"required,min=1,dive"`
	ShippingAddressID uuid.UUID  `json:"shipping_address_id" binding:"required"`
	// UserID lets an admin place an order on behalf of a customer. It is
	// ignored for everyone else.
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

// ListOrdersRequest filters an order listing
type ListOrdersRequest struct {
	Page     int           `form:"page"`
	PageSize int           `form:"page_size"`
	OrderDir string        `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Status   *order.Status `form:"status"`
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	MerchantID  uuid.UUID       `json:"merchant_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	VariantID   uuid.UUID       `json:"variant_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size,omitempty"`
	Color       string          `json:"color,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// MerchantOrderResponse represents a merchant partition in API responses
type MerchantOrderResponse struct {
	ID          uuid.UUID       `json:"id"`
	MerchantID  uuid.UUID       `json:"merchant_id"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ItemCount   int             `json:"item_count"`
	Status      string          `json:"status"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID                uuid.UUID               `json:"id"`
	OrderNumber       string                  `json:"order_number"`
	UserID            uuid.UUID               `json:"user_id"`
	ShippingAddressID uuid.UUID               `json:"shipping_address_id"`
	Status            string                  `json:"status"`
	PaymentStatus     string                  `json:"payment_status"`
	Subtotal          decimal.Decimal         `json:"subtotal"`
	ShippingFee       decimal.Decimal         `json:"shipping_fee"`
	DiscountAmount    decimal.Decimal         `json:"discount_amount"`
	Total             decimal.Decimal         `json:"total"`
	Items             []OrderItemResponse     `json:"items"`
	MerchantOrders    []MerchantOrderResponse `json:"merchant_orders"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
	ConfirmedAt       *time.Time              `json:"confirmed_at,omitempty"`
	DeliveredAt       *time.Time              `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time              `json:"cancelled_at,omitempty"`
	PaidAt            *time.Time              `json:"paid_at,omitempty"`
	Version           int                     `json:"version"`
}

// ToOrderResponse converts a domain order to a response DTO
func ToOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			ID:          it.ID,
			MerchantID:  it.MerchantID,
			ProductID:   it.ProductID,
			VariantID:   it.VariantID,
			ProductName: it.ProductName,
			Size:        it.Size,
			Color:       it.Color,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		}
	}
	partitions := make([]MerchantOrderResponse, len(o.MerchantOrders))
	for i, mo := range o.MerchantOrders {
		partitions[i] = MerchantOrderResponse{
			ID:          mo.ID,
			MerchantID:  mo.MerchantID,
			Subtotal:    mo.Subtotal,
			ItemCount:   mo.ItemCount,
			Status:      string(mo.Status),
			ConfirmedAt: mo.ConfirmedAt,
			DeliveredAt: mo.DeliveredAt,
			CancelledAt: mo.CancelledAt,
		}
	}
	return OrderResponse{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		UserID:            o.UserID,
		ShippingAddressID: o.ShippingAddressID,
		Status:            string(o.Status),
		PaymentStatus:     string(o.PaymentStatus),
		Subtotal:          o.Subtotal,
		ShippingFee:       o.ShippingFee,
		DiscountAmount:    o.DiscountAmount,
		Total:             o.Total,
		Items:             items,
		MerchantOrders:    partitions,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		ConfirmedAt:       o.ConfirmedAt,
		DeliveredAt:       o.DeliveredAt,
		CancelledAt:       o.CancelledAt,
		PaidAt:            o.PaidAt,
		Version:           o.GetVersion(),
	}
}

// ToOrderResponses converts a slice of domain orders
func ToOrderResponses(orders []order.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out
}
