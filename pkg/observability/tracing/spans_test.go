package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func attrValue(attrs []attribute.KeyValue, key string) (string, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.AsString(), true
		}
	}
	return "", false
}

func TestStartDatabaseSpan(t *testing.T) {
	tests := []struct {
		name         string
		operation    SpanOperation
		opts         []DatabaseSpanOption
		expectedName string
		expectedAttr map[string]string
	}{
		{
			name:         "query without options",
			operation:    SpanOperationDBQuery,
			expectedName: "DB db.query",
			expectedAttr: map[string]string{"db.operation": "db.query"},
		},
		{
			name:         "insert with collection and system",
			operation:    SpanOperationDBInsert,
			opts:         []DatabaseSpanOption{WithDBCollection("anime"), WithDBSystem("mongodb"), WithDBName("ponzu")},
			expectedName: "DB db.insert anime",
			expectedAttr: map[string]string{
				"db.mongodb.collection": "anime",
				"db.system":             "mongodb",
				"db.name":               "ponzu",
			},
		},
		{
			name:         "aggregate with repository operation",
			operation:    SpanOperationDBAggregate,
			opts:         []DatabaseSpanOption{WithDBOperationName("aggregate")},
			expectedName: "DB db.aggregate",
			expectedAttr: map[string]string{"db.repository.operation": "aggregate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := setupTestTracer(t)

			_, span := StartDatabaseSpan(context.Background(), tt.operation, tt.opts...)
			span.End()

			spans := recorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}
			if spans[0].Name() != tt.expectedName {
				t.Errorf("span name = %q, want %q", spans[0].Name(), tt.expectedName)
			}
			for key, want := range tt.expectedAttr {
				got, ok := attrValue(spans[0].Attributes(), key)
				if !ok || got != want {
					t.Errorf("attribute %s = %q (present=%v), want %q", key, got, ok, want)
				}
			}
		})
	}
}

func TestRecordErrorAndSuccess(t *testing.T) {
	recorder := setupTestTracer(t)

	_, failed := StartDatabaseSpan(context.Background(), SpanOperationDBDelete)
	RecordError(failed, errors.New("boom"))
	failed.End()

	_, ok := StartDatabaseSpan(context.Background(), SpanOperationDBCount)
	RecordError(ok, nil)
	RecordSuccess(ok)
	ok.End()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status().Code)
	}
	if spans[1].Status().Code != codes.Ok {
		t.Errorf("expected ok status, got %v", spans[1].Status().Code)
	}
}
