// Package document implements a generic repository over a single document collection.
//
// A Repository[E] owns one collection of records of type E. E is a struct whose identifier
// field is tagged `bson:"_id,omitempty"` so storage assigns it on insert. Reads decode the
// stored documents straight into E; writes take E for inserts and an Update for partial changes.
package document

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Filter is a document-store query object. A nil or empty filter matches every document.
type Filter map[string]interface{}

// Document is a raw structured result with no fixed shape, as returned by aggregation.
type Document = bson.M

// Pipeline is a sequence of aggregation stages passed verbatim to storage.
type Pipeline []bson.D

// Sort specifies field and direction for sorting results.
type Sort struct {
	Field string
	Order SortOrder
}

// SortOrder defines the direction of sorting.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FindOptions bounds and orders a Find. Zero values mean "no skip", "no limit", "natural order".
type FindOptions struct {
	Sort  []Sort
	Skip  int64
	Limit int64
}

// AggregateOptions tunes an aggregation run.
type AggregateOptions struct {
	AllowDiskUse bool
	BatchSize    int32
	MaxTime      time.Duration
}

// CountMode decides how an unfiltered count is computed.
type CountMode string

const (
	// CountEstimated reads collection metadata. Cheap, but may lag concurrent writes.
	CountEstimated CountMode = "estimated"
	// CountExact scans the collection.
	CountExact CountMode = "exact"
)

// Repository is the single point of access to one collection for one entity type.
//
// Lookups that find nothing return a nil record and a nil error. Malformed identifiers fail
// with ErrInvalidIdentifier, never ErrNotFound. UpdateOne and UpdateByID fail with
// ErrNotFound when no document matched.
type Repository[E any] interface {
	Find(ctx context.Context, filter Filter, opts *FindOptions) ([]E, error)
	FindOne(ctx context.Context, filter Filter) (*E, error)
	FindByID(ctx context.Context, id string) (*E, error)
	InsertOne(ctx context.Context, entity E) (*E, error)
	UpdateOne(ctx context.Context, filter Filter, update Update) (*E, error)
	UpdateByID(ctx context.Context, id string, update Update) (*E, error)
	DeleteOne(ctx context.Context, filter Filter) (int64, error)
	DeleteByID(ctx context.Context, id string) (int64, error)
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
	CountDocuments(ctx context.Context, filter Filter) (int64, error)
	Aggregate(ctx context.Context, pipeline Pipeline, opts *AggregateOptions) ([]Document, error)
	EnsureUniqueIndex(ctx context.Context, field string) error
}

// Executor is the collection-scoped storage contract a Repository runs on.
// Documents cross it as raw BSON. A miss is a nil document, not an error.
type Executor interface {
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]bson.Raw, error)
	FindOne(ctx context.Context, collection string, filter Filter) (bson.Raw, error)
	InsertOne(ctx context.Context, collection string, document interface{}) (interface{}, error)
	FindOneAndUpdate(ctx context.Context, collection string, filter Filter, update bson.M) (bson.Raw, error)
	DeleteOne(ctx context.Context, collection string, filter Filter) (int64, error)
	DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error)
	CountDocuments(ctx context.Context, collection string, filter Filter) (int64, error)
	EstimatedDocumentCount(ctx context.Context, collection string) (int64, error)
	Aggregate(ctx context.Context, collection string, pipeline Pipeline, opts AggregateOptions) ([]Document, error)
	// EnsureUniqueIndex makes later writes that repeat a value of field fail with a duplicate key error.
	EnsureUniqueIndex(ctx context.Context, collection, field string) error
}

func (f Filter) query() bson.M {
	if f == nil {
		return bson.M{}
	}
	return bson.M(f)
}
