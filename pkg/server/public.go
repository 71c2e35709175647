package server

import (
	"github.com/ponzu-dev/ponzu-back/pkg/config"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware/compression"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware/cors"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware/logging"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware/metrics"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware/ratelimit"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware/recovery"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware/requestid"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware/requestsize"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware/securityheaders"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware/tracing"
	"github.com/ponzu-dev/ponzu-back/pkg/observability/logger"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// Paths served by the service itself rather than the catalog.
var operationalPaths = []string{"/health", "/metrics", "/version"}

// PublicMiddleware builds the global middleware stack from cfg, outermost first:
//
//  1. Request ID
//  2. Tracing
//  3. Logging (when request logging is enabled)
//  4. Metrics
//  5. Recovery
//  6. CORS (when enabled)
//  7. Security headers (when enabled)
//  8. Rate limiting (when enabled)
//  9. Request size limit
//  10. Compression (when enabled)
//
// Recovery sits inside logging and metrics so a panic is recorded as the 500 it becomes.
func PublicMiddleware(cfg *config.Config, log logger.Logger) []router.MiddlewareFunc {
	if log == nil {
		log = logger.Nop()
	}

	chain := []router.MiddlewareFunc{
		requestid.RequestID(),
		tracing.Tracing(tracing.Config{
			TracerName:           cfg.Service.Name,
			ExcludedPathPrefixes: operationalPaths,
		}),
	}

	if cfg.Observability.RequestLogging {
		logCfg := logging.DefaultConfig()
		logCfg.ExcludedPathPrefixes = operationalPaths
		logCfg.SlowThreshold = cfg.Observability.SlowRequest
		chain = append(chain, logging.WithConfig(log, logCfg))
	}

	chain = append(chain,
		metrics.Metrics(),
		recovery.Recovery(log),
	)

	if cfg.CORS.Enabled {
		chain = append(chain, cors.Middleware(cors.Config{
			Enabled:          true,
			AllowOrigins:     cfg.CORS.AllowOrigins,
			AllowMethods:     cfg.CORS.AllowMethods,
			AllowHeaders:     cfg.CORS.AllowHeaders,
			ExposeHeaders:    cfg.CORS.ExposeHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		}))
	}

	if cfg.SecurityHeaders.Enabled {
		chain = append(chain, securityheaders.Middleware(securityheaders.Config{
			FrameOptions:          cfg.SecurityHeaders.FrameOptions,
			ContentSecurityPolicy: cfg.SecurityHeaders.ContentSecurityPolicy,
			ReferrerPolicy:        cfg.SecurityHeaders.ReferrerPolicy,
			STSSeconds:            cfg.SecurityHeaders.STSSeconds,
			STSIncludeSubdomains:  cfg.SecurityHeaders.STSIncludeSubdomains,
		}))
	}

	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewTokenBucketLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		chain = append(chain, ratelimit.RateLimit(limiter, ratelimit.Config{
			ExemptPathPrefixes: operationalPaths,
		}))
	}

	chain = append(chain, requestsize.Middleware(cfg.HTTP.MaxRequestSize))

	if cfg.Compression.Enabled {
		compressionCfg := compression.DefaultConfig()
		compressionCfg.GzipLevel = cfg.Compression.GzipLevel
		compressionCfg.BrotliLevel = cfg.Compression.BrotliLevel
		compressionCfg.MinSize = cfg.Compression.MinSize
		chain = append(chain, compression.Middleware(compressionCfg))
	}

	return chain
}
