package persistence

import (
	"context"

	inventoryapp "github.com/yazilimxyz/marketplace/internal/application/inventory"
	orderapp "github.com/yazilimxyz/marketplace/internal/application/order"
	"github.com/yazilimxyz/marketplace/internal/domain/catalog"
	"github.com/yazilimxyz/marketplace/internal/domain/inventory"
	"github.com/yazilimxyz/marketplace/internal/domain/order"
	"gorm.io/gorm"
)

// GormTransactionScope runs application work inside a GORM transaction.
// The stock ledger and the order service each see it through their own
// scope interface.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

func (s *GormTransactionScope) execute(ctx context.Context, fn func(repos *gormTransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// InventoryScope returns the scope used by the stock ledger
func (s *GormTransactionScope) InventoryScope() inventoryapp.TransactionScope {
	return inventoryScope{s}
}

// OrderScope returns the scope used by order placement and lifecycle changes
func (s *GormTransactionScope) OrderScope() orderapp.TransactionScope {
	return orderScope{s}
}

type inventoryScope struct{ s *GormTransactionScope }

func (i inventoryScope) Execute(ctx context.Context, fn func(repos inventoryapp.Repositories) error) error {
	return i.s.execute(ctx, func(repos *gormTransactionalRepositories) error { return fn(repos) })
}

type orderScope struct{ s *GormTransactionScope }

func (o orderScope) Execute(ctx context.Context, fn func(repos orderapp.Repositories) error) error {
	return o.s.execute(ctx, func(repos *gormTransactionalRepositories) error { return fn(repos) })
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Variants returns the variant repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Variants() catalog.VariantRepository {
	return NewGormVariantRepository(r.tx)
}

// Reservations returns the reservation repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Reservations() inventory.ReservationRepository {
	return NewGormReservationRepository(r.tx)
}

// Orders returns the order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Orders() order.Repository {
	return NewGormOrderRepository(r.tx)
}

var (
	_ inventoryapp.TransactionScope = inventoryScope{}
	_ orderapp.TransactionScope     = orderScope{}
	_ orderapp.Repositories         = (*gormTransactionalRepositories)(nil)
)
