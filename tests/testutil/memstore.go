package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	inventoryapp "github.com/yazilimxyz/marketplace/internal/application/inventory"
	orderapp "github.com/yazilimxyz/marketplace/internal/application/order"
	"github.com/yazilimxyz/marketplace/internal/domain/catalog"
	"github.com/yazilimxyz/marketplace/internal/domain/identity"
	"github.com/yazilimxyz/marketplace/internal/domain/inventory"
	"github.com/yazilimxyz/marketplace/internal/domain/order"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
)

// MemStore is an in-memory stand-in for the database. Execute serializes
// transactions and rolls back every write made by a failing callback.
type MemStore struct {
	mu    sync.Mutex
	state memState

	// FailOrderCreate makes the next order insert fail with this error
	FailOrderCreate error
	// FailVariantSave makes variant saves fail with this error
	FailVariantSave error
}

type memState struct {
	variants     map[uuid.UUID]catalog.ProductVariant
	reservations map[uuid.UUID]inventory.StockReservation
	orders       map[uuid.UUID]order.Order
	users        map[uuid.UUID]identity.User
	addresses    map[uuid.UUID]identity.Address
}

// NewMemStore creates an empty store
func NewMemStore() *MemStore {
	return &MemStore{state: memState{
		variants:     map[uuid.UUID]catalog.ProductVariant{},
		reservations: map[uuid.UUID]inventory.StockReservation{},
		orders:       map[uuid.UUID]order.Order{},
		users:        map[uuid.UUID]identity.User{},
		addresses:    map[uuid.UUID]identity.Address{},
	}}
}

func (s memState) clone() memState {
	c := memState{
		variants:     make(map[uuid.UUID]catalog.ProductVariant, len(s.variants)),
		reservations: make(map[uuid.UUID]inventory.StockReservation, len(s.reservations)),
		orders:       make(map[uuid.UUID]order.Order, len(s.orders)),
		users:        make(map[uuid.UUID]identity.User, len(s.users)),
		addresses:    make(map[uuid.UUID]identity.Address, len(s.addresses)),
	}
	for k, v := range s.variants {
		c.variants[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.addresses {
		c.addresses[k] = v
	}
	return c
}

func (m *MemStore) execute(fn func(tx *memTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{store: m, state: m.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

// InventoryScope returns a transaction scope for the stock ledger
func (m *MemStore) InventoryScope() inventoryapp.TransactionScope {
	return inventoryScope{m}
}

// OrderScope returns a transaction scope for the order service
func (m *MemStore) OrderScope() orderapp.TransactionScope {
	return orderScope{m}
}

type inventoryScope struct{ m *MemStore }

func (s inventoryScope) Execute(ctx context.Context, fn func(repos inventoryapp.Repositories) error) error {
	return s.m.execute(func(tx *memTx) error { return fn(tx) })
}

type orderScope struct{ m *MemStore }

func (s orderScope) Execute(ctx context.Context, fn func(repos orderapp.Repositories) error) error {
	return s.m.execute(func(tx *memTx) error { return fn(tx) })
}

// Variants returns a variant repository that commits every call
func (m *MemStore) Variants() catalog.VariantRepository { return autoVariants{m} }

// Orders returns an order repository that commits every call
func (m *MemStore) Orders() order.Repository { return autoOrders{m} }

// Users returns a user repository
func (m *MemStore) Users() identity.UserRepository { return memUsers{m} }

// Addresses returns an address repository
func (m *MemStore) Addresses() identity.AddressRepository { return memAddresses{m} }

// SeedVariant stores a variant directly
func (m *MemStore) SeedVariant(v *catalog.ProductVariant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ClearDomainEvents()
	v.MarkPersisted()
	m.state.variants[v.ID] = *v
}

// SeedAddress stores an address directly
func (m *MemStore) SeedAddress(a *identity.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.addresses[a.ID] = *a
}

// SeedUser stores a user directly
func (m *MemStore) SeedUser(u *identity.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.users[u.ID] = *u
}

// Variant returns the committed state of a variant
func (m *MemStore) Variant(id uuid.UUID) (catalog.ProductVariant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.state.variants[id]
	return v, ok
}

// Reservation returns the committed state of a reservation
func (m *MemStore) Reservation(id uuid.UUID) (inventory.StockReservation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.state.reservations[id]
	return r, ok
}

// ReservationsByStatus returns all reservations in the given status
func (m *MemStore) ReservationsByStatus(status inventory.ReservationStatus) []inventory.StockReservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []inventory.StockReservation
	for _, r := range m.state.reservations {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// OrderCount returns the number of stored orders
func (m *MemStore) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders)
}

// memTx implements every repository against a private copy of the state
type memTx struct {
	store *MemStore
	state memState
}

func (tx *memTx) Variants() catalog.VariantRepository           { return tx }
func (tx *memTx) Reservations() inventory.ReservationRepository { return reservationTx{tx} }
func (tx *memTx) Orders() order.Repository                      { return orderTx{tx} }

func (tx *memTx) FindByID(ctx context.Context, id uuid.UUID) (*catalog.ProductVariant, error) {
	v, ok := tx.state.variants[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &v, nil
}

func (tx *memTx) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.ProductVariant, error) {
	return tx.FindByID(ctx, id)
}

func (tx *memTx) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.ProductVariant, error) {
	out := make([]catalog.ProductVariant, 0, len(ids))
	for _, id := range ids {
		if v, ok := tx.state.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (tx *memTx) Create(ctx context.Context, v *catalog.ProductVariant) error {
	if _, ok := tx.state.variants[v.ID]; ok {
		return shared.ErrAlreadyExists
	}
	stored := *v
	stored.ClearDomainEvents()
	tx.state.variants[v.ID] = stored
	return nil
}

func (tx *memTx) SaveWithLock(ctx context.Context, v *catalog.ProductVariant) error {
	if tx.store.FailVariantSave != nil {
		return tx.store.FailVariantSave
	}
	current, ok := tx.state.variants[v.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if current.Version != v.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	stored := *v
	stored.ClearDomainEvents()
	stored.MarkPersisted()
	tx.state.variants[v.ID] = stored
	return nil
}

type reservationTx struct{ tx *memTx }

func (r reservationTx) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockReservation, error) {
	res, ok := r.tx.state.reservations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &res, nil
}

func (r reservationTx) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.StockReservation, error) {
	return r.FindByID(ctx, id)
}

func (r reservationTx) FindExpired(ctx context.Context, now time.Time, limit int) ([]inventory.StockReservation, error) {
	var out []inventory.StockReservation
	for _, res := range r.tx.state.reservations {
		if res.Status == inventory.ReservationStatusActive && !res.ExpiresAt.After(now) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r reservationTx) Save(ctx context.Context, res *inventory.StockReservation) error {
	r.tx.state.reservations[res.ID] = *res
	return nil
}

type orderTx struct{ tx *memTx }

func copyOrder(o order.Order) order.Order {
	o.Items = append([]order.OrderItem(nil), o.Items...)
	o.MerchantOrders = append([]order.MerchantOrder(nil), o.MerchantOrders...)
	o.ClearDomainEvents()
	o.MarkPersisted()
	return o
}

func (r orderTx) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := r.tx.state.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	c := copyOrder(o)
	return &c, nil
}

func (r orderTx) FindByOrderNumber(ctx context.Context, number string) (*order.Order, error) {
	for _, o := range r.tx.state.orders {
		if o.OrderNumber == number {
			c := copyOrder(o)
			return &c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r orderTx) List(ctx context.Context, scope order.ListScope, filter shared.Filter) ([]order.Order, int64, error) {
	filter = filter.Normalize()
	var matched []order.Order
	for _, o := range r.tx.state.orders {
		if scope.UserID != nil && o.UserID != *scope.UserID {
			continue
		}
		if scope.MerchantID != nil && !o.HasMerchant(*scope.MerchantID) {
			continue
		}
		if scope.Status != nil && o.Status != *scope.Status {
			continue
		}
		matched = append(matched, copyOrder(o))
	}
	sort.Slice(matched, func(i, j int) bool {
		if strings.EqualFold(filter.OrderDir, "asc") {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))
	start := filter.Offset()
	if start >= len(matched) {
		return []order.Order{}, total, nil
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r orderTx) Create(ctx context.Context, o *order.Order) error {
	if err := r.tx.store.FailOrderCreate; err != nil {
		r.tx.store.FailOrderCreate = nil
		return err
	}
	r.tx.state.orders[o.ID] = copyOrder(*o)
	return nil
}

func (r orderTx) SaveWithLock(ctx context.Context, o *order.Order) error {
	current, ok := r.tx.state.orders[o.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if current.Version != o.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.tx.state.orders[o.ID] = copyOrder(*o)
	return nil
}

// autoVariants runs every call in its own transaction
type autoVariants struct{ m *MemStore }

func (a autoVariants) FindByID(ctx context.Context, id uuid.UUID) (*catalog.ProductVariant, error) {
	var v *catalog.ProductVariant
	err := a.m.execute(func(tx *memTx) error {
		var err error
		v, err = tx.FindByID(ctx, id)
		return err
	})
	return v, err
}

func (a autoVariants) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.ProductVariant, error) {
	return a.FindByID(ctx, id)
}

func (a autoVariants) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.ProductVariant, error) {
	var out []catalog.ProductVariant
	err := a.m.execute(func(tx *memTx) error {
		var err error
		out, err = tx.FindByIDs(ctx, ids)
		return err
	})
	return out, err
}

func (a autoVariants) Create(ctx context.Context, v *catalog.ProductVariant) error {
	return a.m.execute(func(tx *memTx) error { return tx.Create(ctx, v) })
}

func (a autoVariants) SaveWithLock(ctx context.Context, v *catalog.ProductVariant) error {
	return a.m.execute(func(tx *memTx) error { return tx.SaveWithLock(ctx, v) })
}

type autoOrders struct{ m *MemStore }

func (a autoOrders) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o *order.Order
	err := a.m.execute(func(tx *memTx) error {
		var err error
		o, err = orderTx{tx}.FindByID(ctx, id)
		return err
	})
	return o, err
}

func (a autoOrders) FindByOrderNumber(ctx context.Context, number string) (*order.Order, error) {
	var o *order.Order
	err := a.m.execute(func(tx *memTx) error {
		var err error
		o, err = orderTx{tx}.FindByOrderNumber(ctx, number)
		return err
	})
	return o, err
}

func (a autoOrders) List(ctx context.Context, scope order.ListScope, filter shared.Filter) ([]order.Order, int64, error) {
	var (
		out   []order.Order
		total int64
	)
	err := a.m.execute(func(tx *memTx) error {
		var err error
		out, total, err = orderTx{tx}.List(ctx, scope, filter)
		return err
	})
	return out, total, err
}

func (a autoOrders) Create(ctx context.Context, o *order.Order) error {
	return a.m.execute(func(tx *memTx) error { return orderTx{tx}.Create(ctx, o) })
}

func (a autoOrders) SaveWithLock(ctx context.Context, o *order.Order) error {
	return a.m.execute(func(tx *memTx) error { return orderTx{tx}.SaveWithLock(ctx, o) })
}

type memUsers struct{ m *MemStore }

func (r memUsers) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.state.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.state.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memUsers) Save(ctx context.Context, u *identity.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.state.users[u.ID] = *u
	return nil
}

func (r memUsers) SaveMerchantProfile(ctx context.Context, p *identity.MerchantProfile) error {
	return nil
}

func (r memUsers) SaveCustomerProfile(ctx context.Context, p *identity.CustomerProfile) error {
	return nil
}

type memAddresses struct{ m *MemStore }

func (r memAddresses) FindByID(ctx context.Context, id uuid.UUID) (*identity.Address, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.state.addresses[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &a, nil
}

func (r memAddresses) Save(ctx context.Context, a *identity.Address) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.state.addresses[a.ID] = *a
	return nil
}
