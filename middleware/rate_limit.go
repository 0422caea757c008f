package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client. Each bucket holds rate tokens and
// refills at rate per window.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	lastSweep time.Time
	rate      int           // requests per window
	window    time.Duration // time window
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*clientBucket),
		lastSweep: time.Now(),
		rate:      requests,
		window:    window,
	}
}

// Allow reports whether client may make a request now
func (l *RateLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > l.window {
		// a bucket idle for a whole window is full again and can be dropped
		for key, b := range l.clients {
			if now.Sub(b.lastSeen) > l.window {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.clients[client]
	if !ok {
		every := rate.Every(l.window / time.Duration(max(l.rate, 1)))
		b = &clientBucket{limiter: rate.NewLimiter(every, l.rate)}
		l.clients[client] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// RateLimit middleware limits requests per IP
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(requests, window)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !limiter.Allow(clientIP) {
			rateLimited.Inc()
			slog.Warn("rate limit exceeded",
				"client_ip", clientIP,
				"request_id", GetRequestID(c),
			)

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
