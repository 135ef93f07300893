package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"omnichannel/inquiries/internal/config"
)

// clientLimiter stores the rate limiter for a specific client.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware keeps one token bucket per client.
type RateLimiterMiddleware struct {
	clients map[string]*clientLimiter
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	logger  *zap.Logger
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware from the
// configured bucket size and refill rate.
func NewRateLimiterMiddleware(cfg *config.Config, logger *zap.Logger) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(cfg.RateLimitRefillRate),
		burst:   cfg.RateLimitBucketSize,
		idleTTL: 30 * time.Minute,
		logger:  logger,
	}
}

// getClientIdentifier keys authenticated agents by ID and everyone else by IP.
func getClientIdentifier(c *gin.Context) string {
	if agentID := c.GetString(ContextKeyAgentID); agentID != "" {
		return "agent:" + agentID
	}
	return "ip:" + c.ClientIP()
}

// getClientLimiter retrieves or creates the rate limiter for a given client identifier.
func (rm *RateLimiterMiddleware) getClientLimiter(identifier string, now time.Time) *rate.Limiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	client, exists := rm.clients[identifier]
	if !exists {
		client = &clientLimiter{limiter: rate.NewLimiter(rm.limit, rm.burst)}
		rm.clients[identifier] = client
	}
	client.lastSeen = now
	return client.limiter
}

// Cleanup removes clients idle for longer than the idle TTL and reports how many.
func (rm *RateLimiterMiddleware) Cleanup(now time.Time) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	for id, client := range rm.clients {
		if now.Sub(client.lastSeen) > rm.idleTTL {
			delete(rm.clients, id)
			count++
		}
	}
	return count
}

// RunCleanup calls Cleanup every interval until stop is closed.
func (rm *RateLimiterMiddleware) RunCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if removed := rm.Cleanup(now); removed > 0 {
				rm.logger.Debug("rate limiter cleanup", zap.Int("removed", removed))
			}
		}
	}
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := getClientIdentifier(c)
		limiter := rm.getClientLimiter(clientKey, time.Now())

		if !limiter.Allow() {
			rm.logger.Warn("rate limit exceeded", zap.String("client", clientKey), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		c.Next()
	}
}
