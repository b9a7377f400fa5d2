package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig sets the sustained rate and burst allowance per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns the settings used when none are configured.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// bucket is a token bucket refilled lazily on each access.
type bucket struct {
	mu    sync.Mutex
	level float64
	last  time.Time
}

// take refills the bucket for the time elapsed since the last call and
// consumes one token if available.
func (b *bucket) take(cfg RateLimitConfig) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.level += now.Sub(b.last).Seconds() * cfg.RequestsPerSecond
	if full := float64(cfg.BurstSize); b.level > full {
		b.level = full
	}
	b.last = now

	if b.level < 1 {
		return false
	}
	b.level--
	return true
}

// secondsUntilToken reports how long a rejected client should wait.
func (b *bucket) secondsUntilToken(cfg RateLimitConfig) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cfg.RequestsPerSecond <= 0 {
		return 1
	}
	return int((1-b.level)/cfg.RequestsPerSecond) + 1
}

type bucketStore struct {
	mu   sync.Mutex
	byIP map[string]*bucket
}

func (s *bucketStore) get(ip string, cfg RateLimitConfig) *bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byIP[ip]
	if !ok {
		b = &bucket{level: float64(cfg.BurstSize), last: time.Now()}
		s.byIP[ip] = b
	}
	return b
}

// RateLimit throttles requests per client IP with a token bucket.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := &bucketStore{byIP: make(map[string]*bucket)}
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			b := store.get(c.RealIP(), cfg)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			if !b.take(cfg) {
				h.Set("Retry-After", strconv.Itoa(b.secondsUntilToken(cfg)))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
