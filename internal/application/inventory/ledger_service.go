package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yazilimxyz/marketplace/internal/domain/catalog"
	"github.com/yazilimxyz/marketplace/internal/domain/inventory"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultReservationTTL is used when no TTL is configured
const DefaultReservationTTL = 15 * time.Minute

// LedgerService is the stock ledger. Each call runs in its own transaction
// with the variant row locked, so concurrent reservations for the same
// variant are serialized.
type LedgerService struct {
	scope          TransactionScope
	eventPublisher shared.EventPublisher
	reservationTTL time.Duration
	logger         *zap.Logger
	clock          func() time.Time
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(scope TransactionScope, reservationTTL time.Duration, logger *zap.Logger) *LedgerService {
	if reservationTTL <= 0 {
		reservationTTL = DefaultReservationTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		scope:          scope,
		reservationTTL: reservationTTL,
		logger:         logger,
		clock:          time.Now,
	}
}

// SetEventPublisher sets the event publisher for ledger movements
func (s *LedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock overrides the time source
func (s *LedgerService) SetClock(clock func() time.Time) {
	s.clock = clock
}

// Reserve holds quantity units of a variant. Running out of stock is
// reported as *inventory.InsufficientStockError.
func (s *LedgerService) Reserve(ctx context.Context, variantID uuid.UUID, quantity int, reference string) (inventory.ReservationToken, error) {
	now := s.clock()
	var token inventory.ReservationToken
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos Repositories) error {
		variant, err := repos.Variants().FindByIDForUpdate(ctx, variantID)
		if err != nil {
			return err
		}
		reservation, err := variant.Reserve(quantity, reference, now.Add(s.reservationTTL), now)
		if err != nil {
			return err
		}
		if err := repos.Reservations().Save(ctx, reservation); err != nil {
			return fmt.Errorf("save reservation: %w", err)
		}
		if err := saveVariant(ctx, repos, variant); err != nil {
			return err
		}
		token = reservation.Token()
		events = variant.GetDomainEvents()
		return nil
	})
	if err != nil {
		var stockErr *inventory.InsufficientStockError
		if errors.As(err, &stockErr) {
			s.logger.Debug("Reservation rejected",
				zap.String("variant_id", variantID.String()),
				zap.Int("requested", quantity),
			)
		}
		return inventory.ReservationToken{}, err
	}

	s.publish(ctx, events)
	return token, nil
}

// Release gives a reservation back to stock. Releasing twice is harmless.
func (s *LedgerService) Release(ctx context.Context, reservationID uuid.UUID) error {
	return s.release(ctx, reservationID, false)
}

// Commit turns a reservation into a permanent decrement
func (s *LedgerService) Commit(ctx context.Context, reservationID uuid.UUID) error {
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		events, err = CommitIn(ctx, repos, reservationID, s.clock())
		return err
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events)
	return nil
}

// Restock adds quantity back to a variant's available stock
func (s *LedgerService) Restock(ctx context.Context, variantID uuid.UUID, quantity int) error {
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		events, err = RestockIn(ctx, repos, variantID, quantity, s.clock())
		return err
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events)
	return nil
}

func (s *LedgerService) release(ctx context.Context, reservationID uuid.UUID, expired bool) error {
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		events, err = releaseIn(ctx, repos, reservationID, expired, s.clock())
		return err
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events)
	return nil
}

func (s *LedgerService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish stock ledger events", zap.Error(err))
	}
}

// CommitIn commits a reservation using repositories bound to the caller's
// transaction. It returns the events to publish once that transaction
// commits.
func CommitIn(ctx context.Context, repos Repositories, reservationID uuid.UUID, now time.Time) ([]shared.DomainEvent, error) {
	reservation, err := repos.Reservations().FindByIDForUpdate(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	variant, err := repos.Variants().FindByIDForUpdate(ctx, reservation.VariantID)
	if err != nil {
		return nil, err
	}
	if err := variant.CommitReservation(reservation, now); err != nil {
		return nil, err
	}
	if err := repos.Reservations().Save(ctx, reservation); err != nil {
		return nil, fmt.Errorf("save reservation: %w", err)
	}
	if err := saveVariant(ctx, repos, variant); err != nil {
		return nil, err
	}
	return variant.GetDomainEvents(), nil
}

// RestockIn adds stock using repositories bound to the caller's transaction
func RestockIn(ctx context.Context, repos Repositories, variantID uuid.UUID, quantity int, now time.Time) ([]shared.DomainEvent, error) {
	variant, err := repos.Variants().FindByIDForUpdate(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if err := variant.Restock(quantity, now); err != nil {
		return nil, err
	}
	if err := saveVariant(ctx, repos, variant); err != nil {
		return nil, err
	}
	return variant.GetDomainEvents(), nil
}

func releaseIn(ctx context.Context, repos Repositories, reservationID uuid.UUID, expired bool, now time.Time) ([]shared.DomainEvent, error) {
	reservation, err := repos.Reservations().FindByIDForUpdate(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !reservation.IsActive() {
		if reservation.Status == inventory.ReservationStatusCommitted && !expired {
			return nil, shared.NewDomainError(shared.CodeInvalidState,
				fmt.Sprintf("Reservation %s is already committed", reservationID))
		}
		return nil, nil
	}
	// the sweep listed it as expired, but it may have been extended or
	// re-read with a skewed clock
	if expired && !reservation.IsExpiredAt(now) {
		return nil, nil
	}

	variant, err := repos.Variants().FindByIDForUpdate(ctx, reservation.VariantID)
	if err != nil {
		return nil, err
	}
	if err := variant.ReleaseReservation(reservation, expired, now); err != nil {
		return nil, err
	}
	if err := repos.Reservations().Save(ctx, reservation); err != nil {
		return nil, fmt.Errorf("save reservation: %w", err)
	}
	if err := saveVariant(ctx, repos, variant); err != nil {
		return nil, err
	}
	return variant.GetDomainEvents(), nil
}

func saveVariant(ctx context.Context, repos Repositories, variant *catalog.ProductVariant) error {
	if err := repos.Variants().SaveWithLock(ctx, variant); err != nil {
		return err
	}
	variant.MarkPersisted()
	return nil
}
