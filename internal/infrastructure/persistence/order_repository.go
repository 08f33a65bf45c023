package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/order"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.Repository using GORM.
// Create and SaveWithLock issue several statements and are expected to run
// inside a transaction scope.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func withLines(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("MerchantOrders", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, merchant_id ASC") })
}

// FindByID finds an order with its items and merchant orders
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByOrderNumber finds an order by its human-readable number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return r.findOne(ctx, "order_number = ?", orderNumber)
}

func (r *GormOrderRepository) findOne(ctx context.Context, query string, arg any) (*order.Order, error) {
	var model models.OrderModel
	if err := withLines(r.db.WithContext(ctx)).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns one page of orders visible under scope plus the total match count
func (r *GormOrderRepository) List(ctx context.Context, scope order.ListScope, filter shared.Filter) ([]order.Order, int64, error) {
	filter = filter.Normalize()

	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if scope.UserID != nil {
		query = query.Where("user_id = ?", *scope.UserID)
	}
	if scope.MerchantID != nil {
		query = query.Where(
			"EXISTS (SELECT 1 FROM merchant_orders mo WHERE mo.order_id = orders.id AND mo.merchant_id = ?)",
			*scope.MerchantID,
		)
	}
	if scope.Status != nil {
		query = query.Where("status = ?", *scope.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []order.Order{}, 0, nil
	}

	var rows []models.OrderModel
	if err := withLines(query).
		Order(orderClause(filter.OrderBy, filter.OrderDir, OrderSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]order.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, total, nil
}

// Create inserts the order header, its items and its merchant orders
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	db := r.db.WithContext(ctx)

	if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Order number already exists")
		}
		return err
	}
	if len(model.Items) > 0 {
		if err := db.Create(&model.Items).Error; err != nil {
			return err
		}
	}
	if len(model.MerchantOrders) > 0 {
		if err := db.Create(&model.MerchantOrders).Error; err != nil {
			return err
		}
	}
	return nil
}

// SaveWithLock writes the status fields of the order and its merchant orders.
// Items are immutable after creation.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	db := r.db.WithContext(ctx)

	result := db.Model(&models.OrderModel{}).
		Where("id = ? AND version = ?", o.ID, o.Version-1).
		Updates(map[string]interface{}{
			"status":         o.Status,
			"payment_status": o.PaymentStatus,
			"confirmed_at":   o.ConfirmedAt,
			"delivered_at":   o.DeliveredAt,
			"cancelled_at":   o.CancelledAt,
			"paid_at":        o.PaidAt,
			"version":        o.Version,
			"updated_at":     o.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	for i := range o.MerchantOrders {
		mo := &o.MerchantOrders[i]
		if err := db.Model(&models.MerchantOrderModel{}).
			Where("id = ?", mo.ID).
			Updates(map[string]interface{}{
				"status":       mo.Status,
				"confirmed_at": mo.ConfirmedAt,
				"delivered_at": mo.DeliveredAt,
				"cancelled_at": mo.CancelledAt,
				"updated_at":   mo.UpdatedAt,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

var _ order.Repository = (*GormOrderRepository)(nil)
