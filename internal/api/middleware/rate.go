package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	// IdleTTL evicts per-IP limiters unused for this long. Zero keeps them.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns the default rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
		IdleTTL:           10 * time.Minute,
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors tracks one limiter per client IP
type visitors struct {
	mu        sync.Mutex
	clients   map[string]*visitor
	cfg       RateLimitConfig
	lastSweep time.Time
	now       func() time.Time
}

func newVisitors(cfg RateLimitConfig) *visitors {
	return &visitors{
		clients: make(map[string]*visitor),
		cfg:     cfg,
		now:     time.Now,
	}
}

func (v *visitors) get(ip string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	v.sweep(now)

	c, ok := v.clients[ip]
	if !ok {
		c = &visitor{limiter: rate.NewLimiter(rate.Limit(v.cfg.RequestsPerSecond), v.cfg.Burst)}
		v.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

// sweep drops idle visitors at most once per IdleTTL. Caller holds mu.
func (v *visitors) sweep(now time.Time) {
	if v.cfg.IdleTTL <= 0 || now.Sub(v.lastSweep) < v.cfg.IdleTTL {
		return
	}
	v.lastSweep = now
	for ip, c := range v.clients {
		if now.Sub(c.lastSeen) > v.cfg.IdleTTL {
			delete(v.clients, ip)
		}
	}
}

func (v *visitors) size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.clients)
}

// RateLimit creates a per-IP rate limiting middleware.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	return rateLimit(newVisitors(cfg))
}

func rateLimit(v *visitors) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.get(c.ClientIP()).Allow() {
			tooMany(c)
			return
		}
		c.Next()
	}
}

// GlobalRateLimit creates a global rate limiting middleware.
func GlobalRateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			tooMany(c)
			return
		}
		c.Next()
	}
}

func tooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": "rate limit exceeded",
	})
}
