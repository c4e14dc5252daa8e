package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/rishabhv97/kiwisqft/internal/config"
)

// clientLimiter stores rate limiters for a specific client.
type clientLimiter struct {
	softLimiter *rate.Limiter
	hardLimiter *rate.Limiter
	lastSeen    time.Time
}

// RateLimiterMiddleware keeps two token buckets per client: a generous soft
// bucket for reads and a tight hard bucket for writes that fan out to
// external systems (uploads, e-mail, text generation).
type RateLimiterMiddleware struct {
	clients map[string]*clientLimiter
	mu      sync.Mutex
	cfg     *config.Config
	now     func() time.Time
}

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterIdleTimeout     = 30 * time.Minute
)

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware. Idle client
// entries are dropped until ctx is done.
func NewRateLimiterMiddleware(ctx context.Context, cfg *config.Config) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		clients: make(map[string]*clientLimiter),
		cfg:     cfg,
		now:     time.Now,
	}
	go rm.cleanupClients(ctx)
	return rm
}

func (rm *RateLimiterMiddleware) getClientLimiter(identifier string) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[identifier]
	if !exists {
		limiter = &clientLimiter{
			softLimiter: rate.NewLimiter(rate.Limit(rm.cfg.RateLimitSoftRefillRate), rm.cfg.RateLimitSoftBucketSize),
			hardLimiter: rate.NewLimiter(rate.Limit(rm.cfg.RateLimitHardRefillRate), rm.cfg.RateLimitHardBucketSize),
		}
		rm.clients[identifier] = limiter
	}
	limiter.lastSeen = rm.now()
	return limiter
}

func (rm *RateLimiterMiddleware) cleanupClients(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rm.sweep(); n > 0 {
				slog.Debug("rate limiter dropped idle clients", "count", n)
			}
		}
	}
}

func (rm *RateLimiterMiddleware) sweep() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	for id, client := range rm.clients {
		if rm.now().Sub(client.lastSeen) > limiterIdleTimeout {
			delete(rm.clients, id)
			count++
		}
	}
	return count
}

// Limit applies the soft bucket.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return rm.limit(func(l *clientLimiter) *rate.Limiter { return l.softLimiter })
}

// LimitWrites applies the hard bucket.
func (rm *RateLimiterMiddleware) LimitWrites() gin.HandlerFunc {
	return rm.limit(func(l *clientLimiter) *rate.Limiter { return l.hardLimiter })
}

func (rm *RateLimiterMiddleware) limit(bucket func(*clientLimiter) *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := c.ClientIP()
		if !bucket(rm.getClientLimiter(clientKey)).Allow() {
			slog.Warn("rate limit exceeded", "client", clientKey, "method", c.Request.Method, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
