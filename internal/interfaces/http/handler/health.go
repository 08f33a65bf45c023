package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/dto"
)

// Pinger is a dependency the health check probes
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports process and dependency health
type HealthHandler struct {
	BaseHandler
	checks    map[string]Pinger
	timeout   time.Duration
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler probing each named dependency
func NewHealthHandler(version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		timeout:   2 * time.Second,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Uptime  string            `json:"uptime"`
	Checks  map[string]string `json:"checks"`
}

// Health handles GET /health. Any failing dependency turns the response into a 503.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:  "healthy",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Checks:  make(map[string]string, len(h.checks)),
	}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			resp.Checks[name] = "unhealthy: " + err.Error()
			resp.Status = "unhealthy"
			continue
		}
		resp.Checks[name] = "healthy"
	}

	if resp.Status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Data:    resp,
			Error: &dto.ErrorInfo{
				Code:    dto.ErrCodeServiceUnavailable,
				Message: "One or more dependencies are unhealthy",
			},
		})
		return
	}
	h.Success(c, resp)
}
