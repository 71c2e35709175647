// Package logging writes one structured log entry per HTTP request.
package logging

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ponzu-dev/ponzu-back/pkg/middleware/requestid"
	"github.com/ponzu-dev/ponzu-back/pkg/observability/logger"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// Log field names.
const (
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldRemoteAddr = "remote_addr"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
)

// Config configures request logging middleware behavior.
type Config struct {
	// LogStart emits an extra debug entry before the handler runs.
	LogStart bool
	// ExcludedPathPrefixes disables logging for matching paths, e.g. /health or /metrics.
	ExcludedPathPrefixes []string
	// SlowThreshold raises a successful request to warn level when it takes longer. Zero disables it.
	SlowThreshold time.Duration
}

// DefaultConfig returns default request logging behavior.
func DefaultConfig() Config {
	return Config{
		ExcludedPathPrefixes: []string{"/metrics"},
		SlowThreshold:        2 * time.Second,
	}
}

// Logging creates middleware with default configuration.
func Logging(log logger.Logger) router.MiddlewareFunc {
	return WithConfig(log, DefaultConfig())
}

// WithConfig creates request logging middleware with custom configuration.
// Server errors and handler errors log at error level, client errors at warn, the rest at info.
func WithConfig(log logger.Logger, cfg Config) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			if cfg.excluded(req.URL.Path) {
				return next(c)
			}

			start := time.Now()
			requestID := requestid.GetRequestID(req.Context())
			if cfg.LogStart {
				log.Debug("request started",
					FieldRequestID, requestID,
					FieldMethod, req.Method,
					FieldPath, req.URL.Path,
				)
			}

			err := next(c)
			duration := time.Since(start)
			status := c.Response().Status()

			fields := []any{
				FieldRequestID, requestID,
				FieldMethod, req.Method,
				FieldPath, req.URL.Path,
				FieldStatus, status,
				FieldDurationMS, float64(duration.Microseconds()) / 1000,
				FieldRemoteAddr, remoteHost(req),
				FieldUserAgent, req.UserAgent(),
			}
			if req.URL.RawQuery != "" {
				fields = append(fields, FieldQuery, req.URL.RawQuery)
			}

			switch {
			case err != nil:
				log.Error("request failed", append(fields, FieldError, err.Error())...)
			case status >= http.StatusInternalServerError:
				log.Error("request completed", fields...)
			case status >= http.StatusBadRequest:
				log.Warn("request completed", fields...)
			case cfg.SlowThreshold > 0 && duration > cfg.SlowThreshold:
				log.Warn("slow request", fields...)
			default:
				log.Info("request completed", fields...)
			}
			return err
		}
	}
}

func (c Config) excluded(path string) bool {
	for _, prefix := range c.ExcludedPathPrefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// remoteHost prefers the first X-Forwarded-For hop over the socket address.
func remoteHost(req *http.Request) string {
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
