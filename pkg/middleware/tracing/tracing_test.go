package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/ponzu-dev/ponzu-back/pkg/middleware/requestid"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router/nethttp"
)

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func setup(cfg Config) (*nethttp.NetHTTPRouter, *tracetest.SpanRecorder, *trace.SpanContext) {
	recorder := tracetest.NewSpanRecorder()
	cfg.TracerProvider = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	cfg.Propagator = propagation.TraceContext{}

	var seen trace.SpanContext
	r := nethttp.NewRouter()
	r.Use(requestid.RequestID(), Tracing(cfg))
	r.GET("/api/anime/:id", func(c router.Context) error {
		seen = trace.SpanContextFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	})
	r.GET("/api/manga/:id", func(c router.Context) error {
		return c.String(http.StatusBadGateway, "upstream")
	})
	r.GET("/api/clubs", func(c router.Context) error {
		return errors.New("boom")
	})
	r.GET("/health", func(c router.Context) error {
		return c.String(http.StatusOK, "healthy")
	})
	return r, recorder, &seen
}

func TestTracing_CreatesServerSpan(t *testing.T) {
	r, recorder, seen := setup(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/anime/65f1c0a2b3d4e5f6a7b8c9d0", nil)
	req.Header.Set(requestid.RequestIDHeader, "req-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "HTTP GET /api/anime/:id" {
		t.Errorf("unexpected span name %q", span.Name())
	}
	if span.SpanKind() != trace.SpanKindServer {
		t.Errorf("expected server span, got %v", span.SpanKind())
	}
	if v, ok := attr(span.Attributes(), "request.id"); !ok || v.AsString() != "req-42" {
		t.Errorf("expected request.id attribute, got %v", v)
	}
	if v, ok := attr(span.Attributes(), "http.status_code"); !ok || v.AsInt64() != 200 {
		t.Errorf("expected status attribute 200, got %v", v)
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("expected ok status, got %v", span.Status())
	}
	if !seen.IsValid() || seen.SpanID() != span.SpanContext().SpanID() {
		t.Error("expected handler context to carry the server span")
	}
}

func TestTracing_ContinuesInboundTrace(t *testing.T) {
	r, recorder, _ := setup(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/anime/65f1c0a2b3d4e5f6a7b8c9d0", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	r.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	if got := spans[0].SpanContext().TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("expected inbound trace id, got %s", got)
	}
	if got := spans[0].Parent().SpanID().String(); got != "00f067aa0ba902b7" {
		t.Errorf("expected inbound parent span, got %s", got)
	}
}

func TestTracing_Status(t *testing.T) {
	tests := []struct {
		name   string
		target string
		code   codes.Code
	}{
		{name: "server error status", target: "/api/manga/65f1c0a2b3d4e5f6a7b8c9d0", code: codes.Error},
		{name: "handler error", target: "/api/clubs", code: codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, recorder, _ := setup(Config{})
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.target, nil))

			spans := recorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected one span, got %d", len(spans))
			}
			if spans[0].Status().Code != tt.code {
				t.Errorf("expected status %v, got %v", tt.code, spans[0].Status().Code)
			}
		})
	}
}

func TestTracing_ExcludedPathPrefixes(t *testing.T) {
	r, recorder, _ := setup(Config{ExcludedPathPrefixes: []string{"/health"}})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := len(recorder.Ended()); got != 0 {
		t.Errorf("expected no spans for excluded path, got %d", got)
	}
}

func TestTracing_CustomSpanNameFormatter(t *testing.T) {
	r, recorder, _ := setup(Config{SpanNameFormatter: func(c router.Context) string {
		return "catalog " + c.Request().Method
	}})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/anime/65f1c0a2b3d4e5f6a7b8c9d0", nil))

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "catalog GET" {
		t.Fatalf("expected custom span name, got %+v", spans)
	}
}
