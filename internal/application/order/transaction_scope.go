package order

import (
	"context"

	inventoryapp "github.com/yazilimxyz/marketplace/internal/application/inventory"
	"github.com/yazilimxyz/marketplace/internal/domain/order"
)

// Repositories extends the ledger repositories with orders, all bound to
// the same transaction
type Repositories interface {
	inventoryapp.Repositories
	Orders() order.Repository
}

// TransactionScope runs fn inside one database transaction
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}
