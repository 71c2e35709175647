package document

import (
	"context"
	"errors"
	"fmt"

	mongostore "github.com/ponzu-dev/ponzu-back/pkg/store/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBExecutor adapts the store/mongodb adapter to the Executor contract.
type MongoDBExecutor struct {
	adapter *mongostore.Adapter
}

// NewMongoDBExecutor creates a new MongoDBExecutor instance.
func NewMongoDBExecutor(adapter *mongostore.Adapter) (*MongoDBExecutor, error) {
	if adapter == nil {
		return nil, fmt.Errorf("mongodb adapter is required")
	}
	return &MongoDBExecutor{adapter: adapter}, nil
}

// Find returns every matching document, honoring sort, skip and limit.
func (e *MongoDBExecutor) Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]bson.Raw, error) {
	findOpts := options.Find()
	if len(opts.Sort) > 0 {
		sort := make(bson.D, 0, len(opts.Sort))
		for _, s := range opts.Sort {
			sort = append(sort, bson.E{Key: s.Field, Value: s.Order.direction()})
		}
		findOpts.SetSort(sort)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}

	var out []bson.Raw
	if err := e.adapter.Find(ctx, collection, filter.query(), &out, findOpts); err != nil {
		return nil, err
	}
	return out, nil
}

// FindOne returns the first matching document, or nil when nothing matches.
func (e *MongoDBExecutor) FindOne(ctx context.Context, collection string, filter Filter) (bson.Raw, error) {
	var out bson.Raw
	if err := e.adapter.FindOne(ctx, collection, filter.query(), &out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// InsertOne inserts a document and returns its assigned _id.
func (e *MongoDBExecutor) InsertOne(ctx context.Context, collection string, document interface{}) (interface{}, error) {
	result, err := e.adapter.InsertOne(ctx, collection, document)
	if err != nil {
		return nil, err
	}
	return result.InsertedID, nil
}

// FindOneAndUpdate applies update to the first match and returns the document as it is after
// the update, or nil when nothing matches.
func (e *MongoDBExecutor) FindOneAndUpdate(ctx context.Context, collection string, filter Filter, update bson.M) (bson.Raw, error) {
	var out bson.Raw
	if err := e.adapter.FindOneAndUpdate(ctx, collection, filter.query(), update, &out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// DeleteOne deletes a single document matching the filter.
func (e *MongoDBExecutor) DeleteOne(ctx context.Context, collection string, filter Filter) (int64, error) {
	result, err := e.adapter.DeleteOne(ctx, collection, filter.query())
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// DeleteMany deletes every document matching the filter.
func (e *MongoDBExecutor) DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error) {
	result, err := e.adapter.DeleteMany(ctx, collection, filter.query())
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// CountDocuments counts matching documents exactly.
func (e *MongoDBExecutor) CountDocuments(ctx context.Context, collection string, filter Filter) (int64, error) {
	return e.adapter.CountDocuments(ctx, collection, filter.query())
}

// EstimatedDocumentCount reads the collection size from metadata.
func (e *MongoDBExecutor) EstimatedDocumentCount(ctx context.Context, collection string) (int64, error) {
	return e.adapter.EstimatedDocumentCount(ctx, collection)
}

// Aggregate runs the pipeline server-side.
func (e *MongoDBExecutor) Aggregate(ctx context.Context, collection string, pipeline Pipeline, opts AggregateOptions) ([]Document, error) {
	aggOpts := options.Aggregate()
	if opts.AllowDiskUse {
		aggOpts.SetAllowDiskUse(true)
	}
	if opts.BatchSize > 0 {
		aggOpts.SetBatchSize(opts.BatchSize)
	}
	if opts.MaxTime > 0 {
		aggOpts.SetMaxTime(opts.MaxTime)
	}

	stages := make(mongo.Pipeline, 0, len(pipeline))
	for _, stage := range pipeline {
		stages = append(stages, stage)
	}

	out := make([]Document, 0)
	if err := e.adapter.Aggregate(ctx, collection, stages, &out, aggOpts); err != nil {
		return nil, err
	}
	return out, nil
}

// EnsureUniqueIndex creates the index on the server.
func (e *MongoDBExecutor) EnsureUniqueIndex(ctx context.Context, collection, field string) error {
	return e.adapter.EnsureUniqueIndex(ctx, collection, field)
}

func (o SortOrder) direction() int {
	if o == SortDesc {
		return -1
	}
	return 1
}
