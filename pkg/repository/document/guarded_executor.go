package document

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ponzu-dev/ponzu-back/pkg/resilience"
)

// GuardedExecutor fails fast with ErrUnavailable while the store keeps failing,
// instead of letting every request wait out its own timeout.
type GuardedExecutor struct {
	next    Executor
	breaker *resilience.Breaker
}

// NewGuardedExecutor wraps next with breaker.
func NewGuardedExecutor(next Executor, breaker *resilience.Breaker) (*GuardedExecutor, error) {
	if next == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if breaker == nil {
		return nil, fmt.Errorf("breaker is required")
	}
	return &GuardedExecutor{next: next, breaker: breaker}, nil
}

// IsStoreFailure reports whether err means the store itself is unhealthy. Errors the server
// answered with, such as a malformed pipeline or a duplicate key, do not count.
func IsStoreFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrUnsupported) {
		return false
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	var serverErr mongo.ServerError
	return !errors.As(err, &serverErr)
}

func (g *GuardedExecutor) do(ctx context.Context, fn func(context.Context) error) error {
	err := g.breaker.Do(ctx, fn)
	if errors.Is(err, resilience.ErrCircuitBreakerOpen) {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, g.breaker.Name(), err)
	}
	return err
}

func (g *GuardedExecutor) Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]bson.Raw, error) {
	var out []bson.Raw
	err := g.do(ctx, func(ctx context.Context) (err error) {
		out, err = g.next.Find(ctx, collection, filter, opts)
		return err
	})
	return out, err
}

func (g *GuardedExecutor) FindOne(ctx context.Context, collection string, filter Filter) (bson.Raw, error) {
	var out bson.Raw
	err := g.do(ctx, func(ctx context.Context) (err error) {
		out, err = g.next.FindOne(ctx, collection, filter)
		return err
	})
	return out, err
}

func (g *GuardedExecutor) InsertOne(ctx context.Context, collection string, document interface{}) (interface{}, error) {
	var id interface{}
	err := g.do(ctx, func(ctx context.Context) (err error) {
		id, err = g.next.InsertOne(ctx, collection, document)
		return err
	})
	return id, err
}

func (g *GuardedExecutor) FindOneAndUpdate(ctx context.Context, collection string, filter Filter, update bson.M) (bson.Raw, error) {
	var out bson.Raw
	err := g.do(ctx, func(ctx context.Context) (err error) {
		out, err = g.next.FindOneAndUpdate(ctx, collection, filter, update)
		return err
	})
	return out, err
}

func (g *GuardedExecutor) DeleteOne(ctx context.Context, collection string, filter Filter) (int64, error) {
	var n int64
	err := g.do(ctx, func(ctx context.Context) (err error) {
		n, err = g.next.DeleteOne(ctx, collection, filter)
		return err
	})
	return n, err
}

func (g *GuardedExecutor) DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error) {
	var n int64
	err := g.do(ctx, func(ctx context.Context) (err error) {
		n, err = g.next.DeleteMany(ctx, collection, filter)
		return err
	})
	return n, err
}

func (g *GuardedExecutor) CountDocuments(ctx context.Context, collection string, filter Filter) (int64, error) {
	var n int64
	err := g.do(ctx, func(ctx context.Context) (err error) {
		n, err = g.next.CountDocuments(ctx, collection, filter)
		return err
	})
	return n, err
}

func (g *GuardedExecutor) EstimatedDocumentCount(ctx context.Context, collection string) (int64, error) {
	var n int64
	err := g.do(ctx, func(ctx context.Context) (err error) {
		n, err = g.next.EstimatedDocumentCount(ctx, collection)
		return err
	})
	return n, err
}

func (g *GuardedExecutor) Aggregate(ctx context.Context, collection string, pipeline Pipeline, opts AggregateOptions) ([]Document, error) {
	var out []Document
	err := g.do(ctx, func(ctx context.Context) (err error) {
		out, err = g.next.Aggregate(ctx, collection, pipeline, opts)
		return err
	})
	return out, err
}

func (g *GuardedExecutor) EnsureUniqueIndex(ctx context.Context, collection, field string) error {
	return g.do(ctx, func(ctx context.Context) error {
		return g.next.EnsureUniqueIndex(ctx, collection, field)
	})
}
