// Package securityheaders sets hardening headers on API responses.
package securityheaders

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// Config defines the headers written on every response.
type Config struct {
	FrameOptions          string
	ContentSecurityPolicy string
	ReferrerPolicy        string
	// STSSeconds enables Strict-Transport-Security on HTTPS requests when positive.
	STSSeconds           int64
	STSIncludeSubdomains bool
}

// DefaultConfig returns defaults suited to a JSON API that serves no documents.
func DefaultConfig() Config {
	return Config{
		FrameOptions:          "DENY",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
	}
}

// Middleware applies the headers before the handler runs so they survive early writes.
func Middleware(cfg Config) router.MiddlewareFunc {
	sts := ""
	if cfg.STSSeconds > 0 {
		sts = fmt.Sprintf("max-age=%d", cfg.STSSeconds)
		if cfg.STSIncludeSubdomains {
			sts += "; includeSubDomains"
		}
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			if cfg.FrameOptions != "" {
				h.Set("X-Frame-Options", cfg.FrameOptions)
			}
			if cfg.ContentSecurityPolicy != "" {
				h.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
			}
			if cfg.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", cfg.ReferrerPolicy)
			}
			if sts != "" && isSecure(c.Request()) {
				h.Set("Strict-Transport-Security", sts)
			}
			return next(c)
		}
	}
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
