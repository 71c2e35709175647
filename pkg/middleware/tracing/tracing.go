// Package tracing opens an OpenTelemetry server span per HTTP request.
package tracing

import (
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/ponzu-dev/ponzu-back/pkg/middleware/requestid"
	"github.com/ponzu-dev/ponzu-back/pkg/observability/metrics"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// Config holds configuration for the tracing middleware.
type Config struct {
	// TracerName identifies the tracer. Defaults to "http-server".
	TracerName string

	// TracerProvider overrides the global provider.
	TracerProvider trace.TracerProvider

	// Propagator overrides the global text map propagator.
	Propagator propagation.TextMapPropagator

	// SpanNameFormatter formats the span name from the request.
	// If nil, defaults to "HTTP {method} {normalized path}".
	SpanNameFormatter func(router.Context) string

	// ExcludedPathPrefixes disables tracing for matching path prefixes.
	ExcludedPathPrefixes []string
}

// Tracing creates middleware that extracts the inbound trace context, starts a server span
// and stores the span context on the request for the handlers and repositories below it.
func Tracing(cfg Config) router.MiddlewareFunc {
	if cfg.TracerName == "" {
		cfg.TracerName = "http-server"
	}
	if cfg.SpanNameFormatter == nil {
		cfg.SpanNameFormatter = defaultSpanNameFormatter
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}

	tracer := cfg.TracerProvider.Tracer(cfg.TracerName)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			if cfg.excluded(req.URL.Path) {
				return next(c)
			}

			ctx := cfg.Propagator.Extract(req.Context(), propagation.HeaderCarrier(req.Header))
			ctx, span := tracer.Start(ctx, cfg.SpanNameFormatter(c), trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", req.Method),
				attribute.String("http.target", req.URL.Path),
				attribute.String("http.route", metrics.NormalizePath(req.URL.Path)),
				attribute.String("http.user_agent", req.UserAgent()),
			)
			if requestID := requestid.GetRequestID(req.Context()); requestID != "" {
				span.SetAttributes(attribute.String("request.id", requestID))
			}

			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}

			status := c.Response().Status()
			span.SetAttributes(attribute.Int("http.status_code", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return nil
		}
	}
}

func (cfg Config) excluded(path string) bool {
	for _, prefix := range cfg.ExcludedPathPrefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func defaultSpanNameFormatter(c router.Context) string {
	return fmt.Sprintf("HTTP %s %s", c.Request().Method, metrics.NormalizePath(c.Request().URL.Path))
}
