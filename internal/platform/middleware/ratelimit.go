package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// limiter is a token bucket for one client. Tokens refill continuously at the
// configured rate up to the burst size.
type limiter struct {
	mu       sync.Mutex
	tokens   float64
	burst    float64
	rate     float64
	lastSeen time.Time
}

// take consumes one token if available. It reports whether the request may
// proceed and, when it may not, how many seconds to wait before retrying.
func (l *limiter) take(now time.Time) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tokens += now.Sub(l.lastSeen).Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.lastSeen = now

	if l.tokens >= 1 {
		l.tokens--
		return true, 0
	}
	if l.rate <= 0 {
		return false, 1
	}
	return false, int((1-l.tokens)/l.rate) + 1
}

// RateLimit returns middleware that throttles requests per client IP using a
// token bucket. State is in-process; a multi-instance deployment limits per
// instance.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	var mu sync.Mutex
	clients := make(map[string]*limiter)

	get := func(key string) *limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := clients[key]
		if !ok {
			l = &limiter{
				tokens:   float64(cfg.BurstSize),
				burst:    float64(cfg.BurstSize),
				rate:     cfg.RequestsPerSecond,
				lastSeen: time.Now(),
			}
			clients[key] = l
		}
		return l
	}

	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, retryAfter := get(c.RealIP()).take(time.Now())
			c.Response().Header().Set("X-RateLimit-Limit", limitHeader)
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
