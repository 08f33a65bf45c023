package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/dto"
)

// RateLimiter is a fixed-window counter per key
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type window struct {
	count   int
	started time.Time
}

// NewRateLimiter allows limit requests per key every period
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow consumes one request for key
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.started) >= rl.period {
		w = &window{started: now}
		rl.windows[key] = w
	}
	if w.count >= rl.limit {
		return false, 0
	}
	w.count++
	return true, rl.limit - w.count
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(2 * rl.period)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for k, w := range rl.windows {
				if now.Sub(w.started) >= rl.period {
					delete(rl.windows, k)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// RateLimit limits per authenticated user, falling back to client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if p, ok := GetPrincipal(c); ok {
			key = p.UserID.String()
		}

		allowed, remaining := limiter.Allow(key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			abortWithError(c, dto.ErrCodeRateLimited, "Too many requests, try again later")
			return
		}
		c.Next()
	}
}
