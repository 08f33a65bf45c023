package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/logger"
	"github.com/yazilimxyz/marketplace/internal/infrastructure/notification"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// ConnectionRecorder observes the number of open streams
type ConnectionRecorder interface {
	RecordNotificationConnections(ctx context.Context, n int)
}

// NotificationStreamHandler serves order updates over Server-Sent Events
type NotificationStreamHandler struct {
	BaseHandler
	registry  *notification.Registry
	heartbeat time.Duration
	recorder  ConnectionRecorder
}

// NotificationStreamOption configures a NotificationStreamHandler
type NotificationStreamOption func(*NotificationStreamHandler)

// WithHeartbeat sets the keep-alive interval
func WithHeartbeat(interval time.Duration) NotificationStreamOption {
	return func(h *NotificationStreamHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// WithConnectionRecorder reports the open stream count after each change
func WithConnectionRecorder(r ConnectionRecorder) NotificationStreamOption {
	return func(h *NotificationStreamHandler) {
		h.recorder = r
	}
}

// NewNotificationStreamHandler creates a new NotificationStreamHandler
func NewNotificationStreamHandler(registry *notification.Registry, opts ...NotificationStreamOption) *NotificationStreamHandler {
	h := &NotificationStreamHandler{
		registry:  registry,
		heartbeat: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Stream handles GET /notifications/stream
func (h *NotificationStreamHandler) Stream(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	conn, err := h.registry.Subscribe(caller.UserID)
	if err != nil {
		if errors.Is(err, notification.ErrRegistryClosed) {
			h.ErrorWithCode(c, dto.ErrCodeServiceUnavailable, "Server is shutting down")
			return
		}
		h.HandleError(c, err)
		return
	}
	defer func() {
		h.registry.Unsubscribe(conn)
		h.recordConnections(context.WithoutCancel(ctx))
		log.Info("notification stream closed",
			zap.String("connection_id", conn.ID),
			zap.Int64("dropped", conn.Dropped()))
	}()
	h.recordConnections(ctx)

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	log.Info("notification stream opened", zap.String("connection_id", conn.ID))

	writeEvent(c.Writer, notification.Message{
		Event: "connected",
		Data:  fmt.Sprintf(`{"connection_id":%q}`, conn.ID),
	})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": heartbeat %d\n\n", time.Now().Unix())
			c.Writer.Flush()
		case msg, ok := <-conn.C:
			if !ok {
				// registry closed underneath us
				return
			}
			writeEvent(c.Writer, msg)
			c.Writer.Flush()
		}
	}
}

func (h *NotificationStreamHandler) recordConnections(ctx context.Context) {
	if h.recorder != nil {
		h.recorder.RecordNotificationConnections(ctx, h.registry.Count())
	}
}

// writeEvent writes msg in text/event-stream framing
func writeEvent(w io.Writer, msg notification.Message) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}
