package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ponzu-dev/ponzu-back/pkg/observability/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Adapter provides MongoDB connectivity scoped to a single database.
type Adapter struct {
	client   *mongo.Client
	database string
	logger   logger.Logger
	timeout  time.Duration
	mu       sync.RWMutex
	closed   bool
}

// Config holds MongoDB adapter configuration.
type Config struct {
	URL              string
	Database         string
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
}

var errClosed = errors.New("mongodb adapter is closed")

// NewAdapter connects to MongoDB and verifies the primary is reachable.
// It does not create indexes or collections.
func NewAdapter(cfg Config, log logger.Logger) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mongodb URL is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongodb database is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Info("MongoDB connection established", "database", cfg.Database)
	return &Adapter{
		client:   client,
		database: cfg.Database,
		logger:   log,
		timeout:  cfg.OperationTimeout,
	}, nil
}

func (a *Adapter) Client() *mongo.Client {
	return a.client
}

func (a *Adapter) DatabaseName() string {
	return a.database
}

func (a *Adapter) Database() *mongo.Database {
	return a.client.Database(a.database)
}

func (a *Adapter) Collection(name string) *mongo.Collection {
	return a.Database().Collection(name)
}

func (a *Adapter) Ping(ctx context.Context) error {
	if a.isClosed() {
		return errClosed
	}
	return a.client.Ping(ctx, readpref.Primary())
}

// HealthCheck pings the primary with a 2s bound.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	hcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.Ping(hcCtx); err != nil {
		a.logger.Error("MongoDB health check failed", "error", err)
		return fmt.Errorf("mongodb health check failed: %w", err)
	}
	return nil
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to close mongodb connection: %w", err)
	}
	a.logger.Info("MongoDB connection closed", "database", a.database)
	return nil
}

// Find decodes every document matching filter into results, which must be a pointer to a slice.
// The cursor is drained inside the operation timeout.
func (a *Adapter) Find(ctx context.Context, collection string, filter interface{}, results interface{}, opts ...*options.FindOptions) error {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	cursor, err := a.Collection(collection).Find(opCtx, filter, opts...)
	if err != nil {
		return err
	}
	return cursor.All(opCtx, results)
}

// FindOne decodes the first match into result. A miss surfaces as mongo.ErrNoDocuments.
func (a *Adapter) FindOne(ctx context.Context, collection string, filter interface{}, result interface{}) error {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	return a.Collection(collection).FindOne(opCtx, filter).Decode(result)
}

func (a *Adapter) InsertOne(ctx context.Context, collection string, doc interface{}) (*mongo.InsertOneResult, error) {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	return a.Collection(collection).InsertOne(opCtx, doc)
}

// FindOneAndUpdate applies update to the first match and decodes the document as it is after the update.
// A miss surfaces as mongo.ErrNoDocuments.
func (a *Adapter) FindOneAndUpdate(ctx context.Context, collection string, filter, update interface{}, result interface{}) error {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return a.Collection(collection).FindOneAndUpdate(opCtx, filter, update, opts).Decode(result)
}

func (a *Adapter) DeleteOne(ctx context.Context, collection string, filter interface{}) (*mongo.DeleteResult, error) {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	return a.Collection(collection).DeleteOne(opCtx, filter)
}

func (a *Adapter) DeleteMany(ctx context.Context, collection string, filter interface{}) (*mongo.DeleteResult, error) {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	return a.Collection(collection).DeleteMany(opCtx, filter)
}

func (a *Adapter) CountDocuments(ctx context.Context, collection string, filter interface{}) (int64, error) {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	return a.Collection(collection).CountDocuments(opCtx, filter)
}

// EstimatedDocumentCount reads collection metadata; the value can lag concurrent writes.
func (a *Adapter) EstimatedDocumentCount(ctx context.Context, collection string) (int64, error) {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	return a.Collection(collection).EstimatedDocumentCount(opCtx)
}

// Aggregate runs pipeline verbatim and decodes every result into results.
func (a *Adapter) Aggregate(ctx context.Context, collection string, pipeline interface{}, results interface{}, opts ...*options.AggregateOptions) error {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	cursor, err := a.Collection(collection).Aggregate(opCtx, pipeline, opts...)
	if err != nil {
		return err
	}
	return cursor.All(opCtx, results)
}

// EnsureUniqueIndex creates an ascending unique index on field, named after it. Creating an
// index that already exists with the same options is a no-op on the server.
func (a *Adapter) EnsureUniqueIndex(ctx context.Context, collection, field string) error {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	_, err := a.Collection(collection).Indexes().CreateOne(opCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true).SetName(field + "_unique"),
	})
	return err
}

func (a *Adapter) isClosed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.closed
}

func (a *Adapter) withOperationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}
