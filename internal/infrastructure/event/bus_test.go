package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Order", uuid.New())}
}

type testHandler struct {
	eventTypes []string
	err        error
	panicWith  any

	mu      sync.Mutex
	handled []shared.DomainEvent
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func startedBus(t *testing.T) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	return bus
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	t.Run("delivers to typed and wildcard handlers", func(t *testing.T) {
		bus := startedBus(t)
		placed := newTestHandler("OrderPlaced")
		all := newTestHandler()
		bus.Subscribe(placed)
		bus.Subscribe(all)

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderPlaced"), newTestEvent("OrderCancelled")))

		assert.Equal(t, 1, placed.count())
		assert.Equal(t, 2, all.count())
	})

	t.Run("explicit types override handler types", func(t *testing.T) {
		bus := startedBus(t)
		h := newTestHandler("OrderPlaced")
		bus.Subscribe(h, "OrderCancelled")

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderPlaced")))
		assert.Equal(t, 0, h.count())
		require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderCancelled")))
		assert.Equal(t, 1, h.count())
	})

	t.Run("handler error does not stop other handlers", func(t *testing.T) {
		bus := startedBus(t)
		failing := newTestHandler("OrderPlaced")
		failing.err = errors.New("smtp down")
		ok := newTestHandler("OrderPlaced")
		bus.Subscribe(failing)
		bus.Subscribe(ok)

		err := bus.Publish(context.Background(), newTestEvent("OrderPlaced"))

		assert.NoError(t, err)
		assert.Equal(t, 1, ok.count())
		assert.Equal(t, int64(1), bus.Failures())
	})

	t.Run("handler panic is contained", func(t *testing.T) {
		bus := startedBus(t)
		panicking := newTestHandler("OrderPlaced")
		panicking.panicWith = "nil map"
		ok := newTestHandler("OrderPlaced")
		bus.Subscribe(panicking)
		bus.Subscribe(ok)

		assert.NotPanics(t, func() {
			_ = bus.Publish(context.Background(), newTestEvent("OrderPlaced"))
		})
		assert.Equal(t, 1, ok.count())
		assert.Equal(t, int64(1), bus.Failures())
	})

	t.Run("stopped bus drops events", func(t *testing.T) {
		bus := startedBus(t)
		h := newTestHandler()
		bus.Subscribe(h)
		require.NoError(t, bus.Stop(context.Background()))

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderPlaced")))
		assert.Equal(t, 0, h.count())
	})

	t.Run("unsubscribe", func(t *testing.T) {
		bus := startedBus(t)
		h := newTestHandler("OrderPlaced")
		bus.Subscribe(h)
		bus.Unsubscribe(h)

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("OrderPlaced")))
		assert.Equal(t, 0, h.count())
	})
}

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	a := newTestHandler()
	b := newTestHandler()

	r.Register(a, "OrderPlaced", "OrderCancelled")
	r.Register(a, "OrderPlaced")
	r.Register(b)

	assert.Equal(t, 2, r.Len())
	assert.Len(t, r.Handlers("OrderPlaced"), 2)
	assert.Len(t, r.Handlers("Unknown"), 1)

	r.Unregister(a)
	assert.Equal(t, 1, r.Len())
	assert.Len(t, r.Handlers("OrderPlaced"), 1)
}
