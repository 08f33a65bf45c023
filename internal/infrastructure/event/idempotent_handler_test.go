package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yazilimxyz/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

type MockEventHandler struct {
	mock.Mock
}

func (m *MockEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventHandler) EventTypes() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("first delivery is processed", func(t *testing.T) {
		inner := new(MockEventHandler)
		store := new(MockIdempotencyStore)
		evt := newTestEvent("OrderPlaced")

		store.On("MarkProcessed", ctx, evt.EventID().String(), 24*time.Hour).Return(true, nil)
		inner.On("Handle", ctx, evt).Return(nil)

		h := NewIdempotentHandler(inner, store, zap.NewNop())
		require.NoError(t, h.Handle(ctx, evt))

		assert.Equal(t, int64(1), h.Stats().EventsProcessed)
		inner.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("duplicate delivery is skipped", func(t *testing.T) {
		inner := new(MockEventHandler)
		store := new(MockIdempotencyStore)
		evt := newTestEvent("OrderPlaced")

		store.On("MarkProcessed", ctx, evt.EventID().String(), mock.Anything).Return(false, nil)

		h := NewIdempotentHandler(inner, store, zap.NewNop())
		require.NoError(t, h.Handle(ctx, evt))

		assert.Equal(t, int64(1), h.Stats().EventsDuplicate)
		inner.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})

	t.Run("store failure still processes", func(t *testing.T) {
		inner := new(MockEventHandler)
		store := new(MockIdempotencyStore)
		evt := newTestEvent("OrderPlaced")

		store.On("MarkProcessed", ctx, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
		inner.On("Handle", ctx, evt).Return(nil)

		h := NewIdempotentHandler(inner, store, zap.NewNop())
		require.NoError(t, h.Handle(ctx, evt))
		inner.AssertExpectations(t)
	})

	t.Run("handler error is returned and counted", func(t *testing.T) {
		inner := new(MockEventHandler)
		store := new(MockIdempotencyStore)
		evt := newTestEvent("OrderPlaced")
		boom := errors.New("boom")

		store.On("MarkProcessed", ctx, mock.Anything, mock.Anything).Return(true, nil)
		inner.On("Handle", ctx, evt).Return(boom)

		h := NewIdempotentHandler(inner, store, zap.NewNop())
		assert.ErrorIs(t, h.Handle(ctx, evt), boom)
		assert.Equal(t, int64(1), h.Stats().EventsFailed)
	})

	t.Run("disabled config bypasses the store", func(t *testing.T) {
		inner := new(MockEventHandler)
		store := new(MockIdempotencyStore)
		evt := newTestEvent("OrderPlaced")
		inner.On("Handle", ctx, evt).Return(nil)

		h := NewIdempotentHandler(inner, store, zap.NewNop(), WithIdempotencyConfig(IdempotencyConfig{Enabled: false}))
		require.NoError(t, h.Handle(ctx, evt))
		store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("event types come from the wrapped handler", func(t *testing.T) {
		inner := new(MockEventHandler)
		inner.On("EventTypes").Return([]string{"OrderPlaced"})

		h := NewIdempotentHandler(inner, nil, zap.NewNop())
		assert.Equal(t, []string{"OrderPlaced"}, h.EventTypes())
	})
}
