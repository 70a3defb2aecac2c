package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"go-roof-inspector/internal/logger"
)

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per client key. A bucket idle for a
// full window has refilled, so it is dropped on the next sweep.
type ClientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientEntry
	limit     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewClientLimiter admits limit requests per window for each client.
func NewClientLimiter(limit int, window time.Duration) *ClientLimiter {
	return &ClientLimiter{
		clients: make(map[string]*clientEntry),
		limit:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow checks if a request from the given key should be allowed
func (cl *ClientLimiter) Allow(key string) bool {
	now := cl.now()
	cl.mu.Lock()
	if now.Sub(cl.lastSweep) >= cl.window {
		cl.evictIdleLocked(now)
		cl.lastSweep = now
	}
	e, ok := cl.clients[key]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[key] = e
	}
	e.lastSeen = now
	cl.mu.Unlock()
	return e.limiter.AllowN(now, 1)
}

// Clients reports how many client buckets are tracked.
func (cl *ClientLimiter) Clients() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.clients)
}

func (cl *ClientLimiter) evictIdleLocked(now time.Time) {
	for key, e := range cl.clients {
		if now.Sub(e.lastSeen) >= cl.window {
			delete(cl.clients, key)
		}
	}
}

// Middleware creates a gin handler that rejects clients over budget with 429.
func Middleware(limit int, window time.Duration) gin.HandlerFunc {
	limiter := NewClientLimiter(limit, window)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !limiter.Allow(clientIP) {
			logger.WithField("client_ip", clientIP).Warn("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limited",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		c.Next()
	}
}
