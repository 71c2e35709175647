// Package ratelimit enforces per-client token bucket limits on HTTP requests.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ponzu-dev/ponzu-back/pkg/auth"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware/requestid"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// RateLimiter decides whether a request for a key may proceed.
// Implementations must be safe for concurrent use.
type RateLimiter interface {
	Allow(key string) bool
}

// TokenBucketLimiter keeps one token bucket per key.
//
// With requestsPerSecond=10 and burst=20 a client can send 20 requests at once and then
// 10 per second.
type TokenBucketLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewTokenBucketLimiter creates a new token bucket rate limiter.
func NewTokenBucketLimiter(requestsPerSecond float64, burst int) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

// Allow consumes one token from the bucket of key.
func (l *TokenBucketLimiter) Allow(key string) bool {
	return l.getLimiter(key).Allow()
}

// RetryAfter reports how long key has to wait for its next token.
func (l *TokenBucketLimiter) RetryAfter(key string) time.Duration {
	if l.rate <= 0 {
		return time.Second
	}
	reservation := l.getLimiter(key).Reserve()
	defer reservation.Cancel()
	return reservation.Delay()
}

func (l *TokenBucketLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	return limiter.(*rate.Limiter)
}

// Config defines the configuration for rate limiting middleware.
type Config struct {
	// KeyFunc extracts the rate limiting key. Defaults to the client IP.
	KeyFunc func(router.Context) string
	// ExemptPathPrefixes bypass the limiter, e.g. /health for health checks.
	ExemptPathPrefixes []string
}

// RateLimit creates middleware that answers 429 with a Retry-After header once the
// key's bucket is empty.
func RateLimit(limiter RateLimiter, cfg Config) router.MiddlewareFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c router.Context) string {
			return ExtractIPFromRequest(c.Request())
		}
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			path := c.Request().URL.Path
			for _, prefix := range cfg.ExemptPathPrefixes {
				if prefix != "" && strings.HasPrefix(path, prefix) {
					return next(c)
				}
			}

			key := cfg.KeyFunc(c)
			if limiter.Allow(key) {
				return next(c)
			}

			c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(limiter, key)))
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"error":      "rate_limited",
				"code":       "rate_limit.exceeded",
				"message":    "too many requests",
				"request_id": requestid.GetRequestID(c.Request().Context()),
			})
		}
	}
}

func retryAfterSeconds(limiter RateLimiter, key string) int {
	bucket, ok := limiter.(interface{ RetryAfter(string) time.Duration })
	if !ok {
		return 1
	}
	seconds := int((bucket.RetryAfter(key) + time.Second - 1) / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}

// ExtractIPFromRequest returns the client IP, preferring X-Forwarded-For, then X-Real-IP,
// then the socket address.
func ExtractIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ExtractUserKey keys authenticated requests by token subject and falls back to the client IP.
func ExtractUserKey(c router.Context) string {
	if claims := auth.GetClaims(c.Request().Context()); claims != nil && claims.Subject != "" {
		return "user:" + claims.Subject
	}
	return "ip:" + ExtractIPFromRequest(c.Request())
}
