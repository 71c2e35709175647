package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ponzu-dev/ponzu-back/pkg/observability/logger"
	"github.com/ponzu-dev/ponzu-back/pkg/observability/metrics"
	"github.com/ponzu-dev/ponzu-back/pkg/observability/tracing"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CollectionRepository is the Repository implementation over an Executor.
// Every operation runs inside a database span and is recorded in the repository metrics.
type CollectionRepository[E any] struct {
	executor   Executor
	collection string
	countMode  CountMode
	log        logger.Logger
}

// Option configures a CollectionRepository.
type Option func(*repoOptions)

type repoOptions struct {
	countMode CountMode
	log       logger.Logger
}

// WithCountMode selects how unfiltered counts are computed. Defaults to CountEstimated.
func WithCountMode(mode CountMode) Option {
	return func(o *repoOptions) {
		if mode == CountExact || mode == CountEstimated {
			o.countMode = mode
		}
	}
}

// WithLogger sets the logger used for operation traces.
func WithLogger(log logger.Logger) Option {
	return func(o *repoOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// NewRepository binds a repository for E to collection.
func NewRepository[E any](executor Executor, collection string, opts ...Option) (*CollectionRepository[E], error) {
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	o := repoOptions{countMode: CountEstimated, log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &CollectionRepository[E]{
		executor:   executor,
		collection: collection,
		countMode:  o.countMode,
		log:        o.log.With("collection", collection),
	}, nil
}

// Collection returns the bound collection name.
func (r *CollectionRepository[E]) Collection() string {
	return r.collection
}

// Find returns every record matching filter, possibly empty.
func (r *CollectionRepository[E]) Find(ctx context.Context, filter Filter, opts *FindOptions) ([]E, error) {
	var findOpts FindOptions
	if opts != nil {
		findOpts = *opts
	}

	out := make([]E, 0)
	err := r.observe(ctx, "find", tracing.SpanOperationDBQuery, func(ctx context.Context) (bool, error) {
		raws, err := r.executor.Find(ctx, r.collection, filter, findOpts)
		if err != nil {
			return false, r.storageError("find", err)
		}
		for _, raw := range raws {
			entity, err := r.decode("find", raw)
			if err != nil {
				return false, err
			}
			out = append(out, *entity)
		}
		return len(out) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindOne returns the first match, or nil when nothing matches.
func (r *CollectionRepository[E]) FindOne(ctx context.Context, filter Filter) (*E, error) {
	return r.findOne(ctx, "find_one", filter)
}

// FindByID returns the record with the given identifier, or nil when it does not exist.
func (r *CollectionRepository[E]) FindByID(ctx context.Context, id string) (*E, error) {
	filter, err := r.idFilter("find_by_id", id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, "find_by_id", filter)
}

// InsertOne stores entity and returns it as stored, with its assigned identifier.
func (r *CollectionRepository[E]) InsertOne(ctx context.Context, entity E) (*E, error) {
	var out *E
	err := r.observe(ctx, "insert_one", tracing.SpanOperationDBInsert, func(ctx context.Context) (bool, error) {
		id, err := r.executor.InsertOne(ctx, r.collection, entity)
		if err != nil {
			return false, r.storageError("insert_one", err)
		}
		if id == nil {
			return false, &Error{Kind: KindInternal, Op: "insert_one", Collection: r.collection, Detail: "no _id returned after insert"}
		}
		raw, err := r.executor.FindOne(ctx, r.collection, Filter{"_id": id})
		if err != nil {
			return false, r.storageError("insert_one", err)
		}
		if raw == nil {
			return false, &Error{Kind: KindInternal, Op: "insert_one", Collection: r.collection, Detail: fmt.Sprintf("document not found after insert: %v", id)}
		}
		out, err = r.decode("insert_one", raw)
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateOne applies update to the first match and returns the record after the update.
// An empty update changes nothing and returns the current record.
func (r *CollectionRepository[E]) UpdateOne(ctx context.Context, filter Filter, update Update) (*E, error) {
	return r.updateOne(ctx, "update_one", filter, update, "no document matches the filter")
}

// UpdateByID applies update to the record with the given identifier.
func (r *CollectionRepository[E]) UpdateByID(ctx context.Context, id string, update Update) (*E, error) {
	filter, err := r.idFilter("update_by_id", id)
	if err != nil {
		return nil, err
	}
	return r.updateOne(ctx, "update_by_id", filter, update, "id "+id)
}

// DeleteOne removes the first match and reports how many records were removed (0 or 1).
func (r *CollectionRepository[E]) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	return r.deleteOne(ctx, "delete_one", filter)
}

// DeleteByID removes the record with the given identifier.
func (r *CollectionRepository[E]) DeleteByID(ctx context.Context, id string) (int64, error) {
	filter, err := r.idFilter("delete_by_id", id)
	if err != nil {
		return 0, err
	}
	return r.deleteOne(ctx, "delete_by_id", filter)
}

// DeleteMany removes every match.
func (r *CollectionRepository[E]) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	var deleted int64
	err := r.observe(ctx, "delete_many", tracing.SpanOperationDBDelete, func(ctx context.Context) (bool, error) {
		n, err := r.executor.DeleteMany(ctx, r.collection, filter)
		if err != nil {
			return false, r.storageError("delete_many", err)
		}
		deleted = n
		return n > 0, nil
	})
	return deleted, err
}

// CountDocuments counts matches. An empty filter counts the whole collection using the
// configured CountMode.
func (r *CollectionRepository[E]) CountDocuments(ctx context.Context, filter Filter) (int64, error) {
	var total int64
	err := r.observe(ctx, "count", tracing.SpanOperationDBCount, func(ctx context.Context) (bool, error) {
		var err error
		if len(filter) == 0 && r.countMode == CountEstimated {
			total, err = r.executor.EstimatedDocumentCount(ctx, r.collection)
		} else {
			total, err = r.executor.CountDocuments(ctx, r.collection, filter)
		}
		if err != nil {
			return false, r.storageError("count", err)
		}
		return true, nil
	})
	return total, err
}

// Aggregate runs pipeline and returns its raw output documents.
func (r *CollectionRepository[E]) Aggregate(ctx context.Context, pipeline Pipeline, opts *AggregateOptions) ([]Document, error) {
	var aggOpts AggregateOptions
	if opts != nil {
		aggOpts = *opts
	}

	var out []Document
	err := r.observe(ctx, "aggregate", tracing.SpanOperationDBAggregate, func(ctx context.Context) (bool, error) {
		docs, err := r.executor.Aggregate(ctx, r.collection, pipeline, aggOpts)
		if err != nil {
			return false, r.storageError("aggregate", err)
		}
		out = docs
		return len(docs) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = make([]Document, 0)
	}
	return out, nil
}

// EnsureUniqueIndex makes field unique across the collection. It fails with ErrConflict when
// stored records already repeat a value.
func (r *CollectionRepository[E]) EnsureUniqueIndex(ctx context.Context, field string) error {
	if err := r.executor.EnsureUniqueIndex(ctx, r.collection, field); err != nil {
		return r.storageError("ensure_index", err)
	}
	r.log.Debug("unique index ensured", "field", field)
	return nil
}

func (r *CollectionRepository[E]) findOne(ctx context.Context, op string, filter Filter) (*E, error) {
	var out *E
	err := r.observe(ctx, op, tracing.SpanOperationDBQuery, func(ctx context.Context) (bool, error) {
		raw, err := r.executor.FindOne(ctx, r.collection, filter)
		if err != nil {
			return false, r.storageError(op, err)
		}
		if raw == nil {
			return false, nil
		}
		out, err = r.decode(op, raw)
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CollectionRepository[E]) updateOne(ctx context.Context, op string, filter Filter, update Update, detail string) (*E, error) {
	var out *E
	err := r.observe(ctx, op, tracing.SpanOperationDBUpdate, func(ctx context.Context) (bool, error) {
		var (
			raw bson.Raw
			err error
		)
		if update.IsEmpty() {
			raw, err = r.executor.FindOne(ctx, r.collection, filter)
		} else {
			raw, err = r.executor.FindOneAndUpdate(ctx, r.collection, filter, update.Document())
		}
		if err != nil {
			return false, r.storageError(op, err)
		}
		if raw == nil {
			return false, &Error{Kind: KindNotFound, Op: op, Collection: r.collection, Detail: detail}
		}
		out, err = r.decode(op, raw)
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CollectionRepository[E]) deleteOne(ctx context.Context, op string, filter Filter) (int64, error) {
	var deleted int64
	err := r.observe(ctx, op, tracing.SpanOperationDBDelete, func(ctx context.Context) (bool, error) {
		n, err := r.executor.DeleteOne(ctx, r.collection, filter)
		if err != nil {
			return false, r.storageError(op, err)
		}
		deleted = n
		return n > 0, nil
	})
	return deleted, err
}

func (r *CollectionRepository[E]) idFilter(op, id string) (Filter, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, &Error{Kind: KindInvalidIdentifier, Op: op, Collection: r.collection, Detail: id, Err: err}
	}
	return Filter{"_id": oid}, nil
}

func (r *CollectionRepository[E]) decode(op string, raw bson.Raw) (*E, error) {
	entity := new(E)
	if err := bson.Unmarshal(raw, entity); err != nil {
		return nil, &Error{Kind: KindStorage, Op: op, Collection: r.collection, Detail: "decode document", Err: err}
	}
	return entity, nil
}

func (r *CollectionRepository[E]) storageError(op string, err error) error {
	kind := KindStorage
	switch {
	case errors.Is(err, ErrUnavailable):
		kind = KindUnavailable
	case errors.Is(err, ErrDuplicateKey), mongo.IsDuplicateKeyError(err):
		kind = KindConflict
	case errors.Is(err, ErrUnsupported):
		kind = KindInvalidQuery
	}
	return &Error{Kind: kind, Op: op, Collection: r.collection, Err: err}
}

// observe runs fn inside a database span and records its duration and outcome.
// fn reports whether it touched at least one record.
func (r *CollectionRepository[E]) observe(ctx context.Context, op string, kind tracing.SpanOperation, fn func(context.Context) (bool, error)) error {
	ctx, span := tracing.StartDatabaseSpan(ctx, kind,
		tracing.WithDBSystem("mongodb"),
		tracing.WithDBCollection(r.collection),
		tracing.WithDBOperationName(op),
	)
	defer span.End()

	start := time.Now()
	hit, err := fn(ctx)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
		tracing.RecordError(span, err)
		r.log.WithContext(ctx).Warn("repository operation failed", "operation", op, "error", err, "duration_ms", elapsed.Milliseconds())
	case !hit:
		outcome = metrics.OutcomeMiss
		tracing.RecordSuccess(span)
	default:
		tracing.RecordSuccess(span)
	}
	metrics.RecordRepositoryOperation(r.collection, op, outcome, elapsed)
	r.log.WithContext(ctx).Debug("repository operation", "operation", op, "outcome", outcome, "duration_ms", elapsed.Milliseconds())
	return err
}
