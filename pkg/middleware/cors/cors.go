// Package cors answers preflight requests and decorates cross-origin responses.
package cors

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// Config configures CORS middleware behavior.
type Config struct {
	Enabled bool

	// AllowOrigins lists exact origins; "*" allows any origin.
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultConfig returns CORS middleware defaults. CORS is off until origins are configured.
func DefaultConfig() Config {
	return Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
}

type policy struct {
	anyOrigin     bool
	origins       map[string]struct{}
	methods       string
	headers       string
	exposeHeaders string
	credentials   bool
	maxAge        string
}

func newPolicy(cfg Config) policy {
	p := policy{
		origins:       make(map[string]struct{}, len(cfg.AllowOrigins)),
		methods:       strings.Join(cfg.AllowMethods, ", "),
		headers:       strings.Join(cfg.AllowHeaders, ", "),
		exposeHeaders: strings.Join(cfg.ExposeHeaders, ", "),
		credentials:   cfg.AllowCredentials,
	}
	for _, origin := range cfg.AllowOrigins {
		origin = strings.TrimRight(strings.ToLower(strings.TrimSpace(origin)), "/")
		switch origin {
		case "":
		case "*":
			p.anyOrigin = true
		default:
			p.origins[origin] = struct{}{}
		}
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.FormatInt(int64(cfg.MaxAge/time.Second), 10)
	}
	return p
}

func (p policy) allows(origin string) bool {
	if p.anyOrigin {
		return true
	}
	_, ok := p.origins[strings.ToLower(origin)]
	return ok
}

// Middleware returns a router middleware implementing CORS.
// Preflight requests from allowed origins are answered with 204 without reaching the handler;
// requests from other origins pass through without CORS headers.
func Middleware(cfg Config) router.MiddlewareFunc {
	p := newPolicy(cfg)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			origin := c.Request().Header.Get("Origin")
			if !cfg.Enabled || origin == "" || !p.allows(origin) {
				return next(c)
			}

			header := c.Response().Header()
			header.Add("Vary", "Origin")
			if p.anyOrigin && !p.credentials {
				header.Set("Access-Control-Allow-Origin", "*")
			} else {
				header.Set("Access-Control-Allow-Origin", origin)
			}
			if p.credentials {
				header.Set("Access-Control-Allow-Credentials", "true")
			}

			req := c.Request()
			if req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != "" {
				header.Add("Vary", "Access-Control-Request-Method")
				header.Add("Vary", "Access-Control-Request-Headers")
				header.Set("Access-Control-Allow-Methods", p.methods)
				if p.headers != "" {
					header.Set("Access-Control-Allow-Headers", p.headers)
				}
				if p.maxAge != "" {
					header.Set("Access-Control-Max-Age", p.maxAge)
				}
				c.Response().WriteHeader(http.StatusNoContent)
				return nil
			}

			if p.exposeHeaders != "" {
				header.Set("Access-Control-Expose-Headers", p.exposeHeaders)
			}
			return next(c)
		}
	}
}
