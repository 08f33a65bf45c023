// Package notification pushes order updates to connected users.
package notification

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRegistryClosed is returned by Subscribe after Close
var ErrRegistryClosed = errors.New("notification registry closed")

// Message is one server-sent event
type Message struct {
	Event string
	Data  string
	ID    string
}

// Connection is a single subscriber. C is closed when the connection is
// unsubscribed or the registry shuts down.
type Connection struct {
	ID     string
	UserID uuid.UUID
	C      <-chan Message

	ch      chan Message
	dropped atomic.Int64
}

// Dropped returns how many messages were discarded because the buffer was full
func (c *Connection) Dropped() int64 {
	return c.dropped.Load()
}

// Registry tracks live connections per user. A user may hold several.
type Registry struct {
	mu         sync.RWMutex
	byUser     map[uuid.UUID]map[string]*Connection
	closed     bool
	bufferSize int
	logger     *zap.Logger
}

// NewRegistry creates a registry whose connections buffer bufferSize messages
func NewRegistry(bufferSize int, logger *zap.Logger) *Registry {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		byUser:     make(map[uuid.UUID]map[string]*Connection),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Subscribe opens a connection for userID
func (r *Registry) Subscribe(userID uuid.UUID) (*Connection, error) {
	ch := make(chan Message, r.bufferSize)
	conn := &Connection{
		ID:     uuid.New().String(),
		UserID: userID,
		C:      ch,
		ch:     ch,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	conns, ok := r.byUser[userID]
	if !ok {
		conns = make(map[string]*Connection)
		r.byUser[userID] = conns
	}
	conns[conn.ID] = conn

	r.logger.Debug("notification connection opened",
		zap.String("connection_id", conn.ID),
		zap.String("user_id", userID.String()),
	)
	return conn, nil
}

// Unsubscribe removes conn and closes its channel. Calling it twice is safe.
func (r *Registry) Unsubscribe(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.byUser[conn.UserID]
	if !ok {
		return
	}
	if _, ok := conns[conn.ID]; !ok {
		return
	}
	delete(conns, conn.ID)
	if len(conns) == 0 {
		delete(r.byUser, conn.UserID)
	}
	close(conn.ch)
}

// Publish delivers msg to every connection of userID without blocking.
// It returns the number of connections that accepted the message.
func (r *Registry) Publish(userID uuid.UUID, msg Message) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for _, conn := range r.byUser[userID] {
		select {
		case conn.ch <- msg:
			delivered++
		default:
			conn.dropped.Add(1)
			r.logger.Warn("notification buffer full, dropping message",
				zap.String("connection_id", conn.ID),
				zap.String("event", msg.Event),
			)
		}
	}
	return delivered
}

// Count returns the number of open connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, conns := range r.byUser {
		n += len(conns)
	}
	return n
}

// Close closes every connection and rejects new subscriptions
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	n := 0
	for userID, conns := range r.byUser {
		for _, conn := range conns {
			close(conn.ch)
			n++
		}
		delete(r.byUser, userID)
	}
	r.logger.Info("notification registry closed", zap.Int("connections", n))
}
