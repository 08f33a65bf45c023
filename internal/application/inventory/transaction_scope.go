package inventory

import (
	"context"

	"github.com/yazilimxyz/marketplace/internal/domain/catalog"
	"github.com/yazilimxyz/marketplace/internal/domain/inventory"
)

// Repositories gives access to the stock ledger's storage. Implementations
// handed out by a TransactionScope share one database transaction.
type Repositories interface {
	Variants() catalog.VariantRepository
	Reservations() inventory.ReservationRepository
}

// TransactionScope runs fn inside a database transaction. An error returned
// from fn rolls the transaction back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}
