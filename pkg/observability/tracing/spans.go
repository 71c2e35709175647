package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanOperation represents a traced database operation type.
type SpanOperation string

const (
	SpanOperationDBQuery     SpanOperation = "db.query"
	SpanOperationDBInsert    SpanOperation = "db.insert"
	SpanOperationDBUpdate    SpanOperation = "db.update"
	SpanOperationDBDelete    SpanOperation = "db.delete"
	SpanOperationDBCount     SpanOperation = "db.count"
	SpanOperationDBAggregate SpanOperation = "db.aggregate"
)

// StartDatabaseSpan starts a client span named "DB <operation> [<collection>]".
func StartDatabaseSpan(ctx context.Context, operation SpanOperation, opts ...DatabaseSpanOption) (context.Context, trace.Span) {
	tracer := otel.Tracer("database")

	spanOpts := &databaseSpanOptions{
		attributes: []attribute.KeyValue{
			attribute.String("db.operation", string(operation)),
		},
	}
	for _, opt := range opts {
		opt(spanOpts)
	}

	spanName := fmt.Sprintf("DB %s", operation)
	if spanOpts.collection != "" {
		spanName = fmt.Sprintf("DB %s %s", operation, spanOpts.collection)
	}

	ctx, span := tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(spanOpts.attributes...)
	return ctx, span
}

// DatabaseSpanOption configures a database span.
type DatabaseSpanOption func(*databaseSpanOptions)

type databaseSpanOptions struct {
	collection string
	attributes []attribute.KeyValue
}

// WithDBCollection sets the collection name.
func WithDBCollection(collection string) DatabaseSpanOption {
	return func(opts *databaseSpanOptions) {
		opts.collection = collection
		opts.attributes = append(opts.attributes, attribute.String("db.mongodb.collection", collection))
	}
}

// WithDBSystem sets the database system, e.g. "mongodb".
func WithDBSystem(system string) DatabaseSpanOption {
	return func(opts *databaseSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("db.system", system))
	}
}

// WithDBName sets the database name.
func WithDBName(name string) DatabaseSpanOption {
	return func(opts *databaseSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("db.name", name))
	}
}

// WithDBOperationName records the repository operation, e.g. "find_by_id".
func WithDBOperationName(name string) DatabaseSpanOption {
	return func(opts *databaseSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("db.repository.operation", name))
	}
}

// RecordError records err on span and marks it failed. Nil errors are ignored.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
