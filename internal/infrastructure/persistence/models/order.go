package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yazilimxyz/marketplace/internal/domain/order"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	OrderNumber       string              `gorm:"type:varchar(32);not null;uniqueIndex"`
	UserID            uuid.UUID           `gorm:"type:uuid;not null;index"`
	ShippingAddressID uuid.UUID           `gorm:"type:uuid;not null"`
	ShippingZone      string              `gorm:"type:varchar(32)"`
	Subtotal          decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	ShippingFee       decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	DiscountAmount    decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	Total             decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	Status            order.Status        `gorm:"type:varchar(16);not null;index"`
	PaymentStatus     order.PaymentStatus `gorm:"type:varchar(16);not null"`
	ConfirmedAt       *time.Time
	DeliveredAt       *time.Time
	CancelledAt       *time.Time
	PaidAt            *time.Time
	Items             []OrderItemModel     `gorm:"foreignKey:OrderID;references:ID"`
	MerchantOrders    []MerchantOrderModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.ToAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		UserID:            m.UserID,
		ShippingAddressID: m.ShippingAddressID,
		ShippingZone:      m.ShippingZone,
		Subtotal:          m.Subtotal,
		ShippingFee:       m.ShippingFee,
		DiscountAmount:    m.DiscountAmount,
		Total:             m.Total,
		Status:            m.Status,
		PaymentStatus:     m.PaymentStatus,
		ConfirmedAt:       m.ConfirmedAt,
		DeliveredAt:       m.DeliveredAt,
		CancelledAt:       m.CancelledAt,
		PaidAt:            m.PaidAt,
		Items:             make([]order.OrderItem, len(m.Items)),
		MerchantOrders:    make([]order.MerchantOrder, len(m.MerchantOrders)),
	}
	for i := range m.Items {
		o.Items[i] = m.Items[i].ToDomain()
	}
	for i := range m.MerchantOrders {
		o.MerchantOrders[i] = m.MerchantOrders[i].ToDomain()
	}
	return o
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.UserID = o.UserID
	m.ShippingAddressID = o.ShippingAddressID
	m.ShippingZone = o.ShippingZone
	m.Subtotal = o.Subtotal
	m.ShippingFee = o.ShippingFee
	m.DiscountAmount = o.DiscountAmount
	m.Total = o.Total
	m.Status = o.Status
	m.PaymentStatus = o.PaymentStatus
	m.ConfirmedAt = o.ConfirmedAt
	m.DeliveredAt = o.DeliveredAt
	m.CancelledAt = o.CancelledAt
	m.PaidAt = o.PaidAt
	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i].FromDomain(&o.Items[i])
	}
	m.MerchantOrders = make([]MerchantOrderModel, len(o.MerchantOrders))
	for i := range o.MerchantOrders {
		m.MerchantOrders[i].FromDomain(&o.MerchantOrders[i])
	}
}

// OrderModelFromDomain creates a persistence model from a domain Order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an immutable order line.
type OrderItemModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	MerchantID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null"`
	VariantID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReservationID uuid.UUID       `gorm:"type:uuid"`
	Quantity      int             `gorm:"not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ProductName   string          `gorm:"type:varchar(200);not null"`
	Size          string          `gorm:"type:varchar(32)"`
	Color         string          `gorm:"type:varchar(32)"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem.
func (m *OrderItemModel) ToDomain() order.OrderItem {
	return order.OrderItem{
		ID:            m.ID,
		OrderID:       m.OrderID,
		MerchantID:    m.MerchantID,
		ProductID:     m.ProductID,
		VariantID:     m.VariantID,
		ReservationID: m.ReservationID,
		Quantity:      m.Quantity,
		UnitPrice:     m.UnitPrice,
		LineTotal:     m.LineTotal,
		ProductName:   m.ProductName,
		Size:          m.Size,
		Color:         m.Color,
		CreatedAt:     m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain OrderItem.
func (m *OrderItemModel) FromDomain(i *order.OrderItem) {
	m.ID = i.ID
	m.OrderID = i.OrderID
	m.MerchantID = i.MerchantID
	m.ProductID = i.ProductID
	m.VariantID = i.VariantID
	m.ReservationID = i.ReservationID
	m.Quantity = i.Quantity
	m.UnitPrice = i.UnitPrice
	m.LineTotal = i.LineTotal
	m.ProductName = i.ProductName
	m.Size = i.Size
	m.Color = i.Color
	m.CreatedAt = i.CreatedAt
}

// MerchantOrderModel is the persistence model for a merchant's partition of an order.
type MerchantOrderModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_merchant_orders_order_merchant,priority:1"`
	MerchantID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_merchant_orders_order_merchant,priority:2;index"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ItemCount   int             `gorm:"not null"`
	Status      order.Status    `gorm:"type:varchar(16);not null"`
	ConfirmedAt *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MerchantOrderModel) TableName() string {
	return "merchant_orders"
}

// ToDomain converts the persistence model to a domain MerchantOrder.
func (m *MerchantOrderModel) ToDomain() order.MerchantOrder {
	return order.MerchantOrder{
		ID:          m.ID,
		OrderID:     m.OrderID,
		MerchantID:  m.MerchantID,
		Subtotal:    m.Subtotal,
		ItemCount:   m.ItemCount,
		Status:      m.Status,
		ConfirmedAt: m.ConfirmedAt,
		DeliveredAt: m.DeliveredAt,
		CancelledAt: m.CancelledAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain MerchantOrder.
func (m *MerchantOrderModel) FromDomain(mo *order.MerchantOrder) {
	m.ID = mo.ID
	m.OrderID = mo.OrderID
	m.MerchantID = mo.MerchantID
	m.Subtotal = mo.Subtotal
	m.ItemCount = mo.ItemCount
	m.Status = mo.Status
	m.ConfirmedAt = mo.ConfirmedAt
	m.DeliveredAt = mo.DeliveredAt
	m.CancelledAt = mo.CancelledAt
	m.CreatedAt = mo.CreatedAt
	m.UpdatedAt = mo.UpdatedAt
}
