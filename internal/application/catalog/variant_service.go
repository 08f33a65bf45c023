package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	inventoryapp "github.com/yazilimxyz/marketplace/internal/application/inventory"
	"github.com/yazilimxyz/marketplace/internal/domain/catalog"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

// VariantService handles merchant-side catalog writes
type VariantService struct {
	scope  inventoryapp.TransactionScope
	ledger *inventoryapp.LedgerService
	cache  TagCache
	logger *zap.Logger
	clock  func() time.Time
}

// NewVariantService creates a new VariantService. cache may be nil.
func NewVariantService(scope inventoryapp.TransactionScope, ledger *inventoryapp.LedgerService, cache TagCache, logger *zap.Logger) *VariantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VariantService{
		scope:  scope,
		ledger: ledger,
		cache:  cache,
		logger: logger,
		clock:  time.Now,
	}
}

// UpdateVariant changes price and/or active flag. Only the owning merchant
// or an admin may do this.
func (s *VariantService) UpdateVariant(ctx context.Context, caller identity.Principal, variantID uuid.UUID, req UpdateVariantRequest) (*VariantResponse, error) {
	if req.UnitPrice == nil && req.Active == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Nothing to update")
	}

	var updated *catalog.ProductVariant
	err := s.scope.Execute(ctx, func(repos inventoryapp.Repositories) error {
		v, err := repos.Variants().FindByIDForUpdate(ctx, variantID)
		if err != nil {
			return err
		}
		if !caller.ActsFor(v.MerchantID) {
			return shared.ErrForbidden
		}

		now := s.clock()
		if req.UnitPrice != nil {
			if err := v.UpdatePrice(*req.UnitPrice, now); err != nil {
				return err
			}
		}
		if req.Active != nil {
			v.SetActive(*req.Active, now)
		}
		if err := repos.Variants().SaveWithLock(ctx, v); err != nil {
			return err
		}
		v.MarkPersisted()
		updated = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, updated)
	s.logger.Info("Variant updated",
		zap.String("variant_id", updated.ID.String()),
		zap.String("unit_price", updated.UnitPrice.String()),
		zap.Bool("active", updated.Active),
	)

	resp := ToVariantResponse(updated)
	return &resp, nil
}

// Restock adds stock to a variant on behalf of its merchant or an admin
func (s *VariantService) Restock(ctx context.Context, caller identity.Principal, variantID uuid.UUID, quantity int) (*VariantResponse, error) {
	var v *catalog.ProductVariant
	err := s.scope.Execute(ctx, func(repos inventoryapp.Repositories) error {
		var err error
		v, err = repos.Variants().FindByID(ctx, variantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !caller.ActsFor(v.MerchantID) {
		return nil, shared.ErrForbidden
	}

	if err := s.ledger.Restock(ctx, variantID, quantity); err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos inventoryapp.Repositories) error {
		var err error
		v, err = repos.Variants().FindByID(ctx, variantID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, v)
	resp := ToVariantResponse(v)
	return &resp, nil
}

func (s *VariantService) invalidate(ctx context.Context, v *catalog.ProductVariant) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTags(ctx, VariantTag(v.ID), ProductTag(v.ProductID)); err != nil {
		s.logger.Warn("Failed to invalidate catalog cache",
			zap.String("variant_id", v.ID.String()),
			zap.Error(err),
		)
	}
}
