package document

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrUnsupported is returned for query, update or pipeline operators the memory executor does not implement.
	ErrUnsupported = errors.New("unsupported by memory executor")
	// ErrDuplicateKey is returned when a write reuses an existing _id or a value of a unique field.
	ErrDuplicateKey = errors.New("duplicate key")
)

// MemoryExecutor keeps collections in process memory.
//
// It understands the subset of the query language the service issues: equality with array
// membership, $eq $ne $in $nin $gt $gte $lt $lte $exists $and $or $nor, $set updates, and the
// $match $sort $skip $limit $count $project aggregation stages. Documents are stored in their
// BSON-decoded form, so values compare the way they would after a round trip through MongoDB.
type MemoryExecutor struct {
	mu          sync.RWMutex
	collections map[string][]bson.M
	unique      map[string][]string
}

// NewMemoryExecutor creates an empty MemoryExecutor.
func NewMemoryExecutor() *MemoryExecutor {
	return &MemoryExecutor{collections: make(map[string][]bson.M), unique: make(map[string][]string)}
}

// Find returns every matching document, honoring sort, skip and limit.
func (e *MemoryExecutor) Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	matched, err := e.filterLocked(collection, filter)
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	sortDocuments(matched, opts.Sort)
	matched = window(matched, opts.Skip, opts.Limit)

	out := make([]bson.Raw, 0, len(matched))
	for _, doc := range matched {
		raw, err := bson.Marshal(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

// FindOne returns the first matching document in insertion order, or nil.
func (e *MemoryExecutor) FindOne(ctx context.Context, collection string, filter Filter) (bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	i, err := e.indexLocked(collection, filter)
	if err != nil || i < 0 {
		return nil, err
	}
	return bson.Marshal(e.collections[collection][i])
}

// InsertOne stores a copy of document, assigning a fresh ObjectID when it carries no _id.
func (e *MemoryExecutor) InsertOne(ctx context.Context, collection string, document interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := toDocument(document)
	if err != nil {
		return nil, err
	}
	id, ok := doc["_id"]
	if !ok || id == nil {
		id = primitive.NewObjectID()
		doc["_id"] = id
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.collections[collection] {
		if valuesEqual(existing["_id"], id) {
			return nil, fmt.Errorf("%w: _id %v in %s", ErrDuplicateKey, id, collection)
		}
	}
	if err := e.checkUniqueLocked(collection, doc, -1); err != nil {
		return nil, err
	}
	e.collections[collection] = append(e.collections[collection], doc)
	return id, nil
}

// FindOneAndUpdate applies update to the first match and returns the updated document, or nil.
func (e *MemoryExecutor) FindOneAndUpdate(ctx context.Context, collection string, filter Filter, update bson.M) (bson.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	changes, err := toDocument(update)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	i, err := e.indexLocked(collection, filter)
	if err != nil || i < 0 {
		return nil, err
	}
	next, err := toDocument(e.collections[collection][i])
	if err != nil {
		return nil, err
	}
	if err := applyUpdate(next, changes); err != nil {
		return nil, err
	}
	if err := e.checkUniqueLocked(collection, next, i); err != nil {
		return nil, err
	}
	e.collections[collection][i] = next
	return bson.Marshal(next)
}

// DeleteOne removes the first match.
func (e *MemoryExecutor) DeleteOne(ctx context.Context, collection string, filter Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	i, err := e.indexLocked(collection, filter)
	if err != nil || i < 0 {
		return 0, err
	}
	docs := e.collections[collection]
	e.collections[collection] = append(docs[:i:i], docs[i+1:]...)
	return 1, nil
}

// DeleteMany removes every match.
func (e *MemoryExecutor) DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	query, err := toDocument(filter.query())
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	var (
		kept    []bson.M
		removed int64
	)
	for _, doc := range e.collections[collection] {
		ok, err := matches(doc, query)
		if err != nil {
			return 0, err
		}
		if ok {
			removed++
			continue
		}
		kept = append(kept, doc)
	}
	e.collections[collection] = kept
	return removed, nil
}

// CountDocuments counts matching documents.
func (e *MemoryExecutor) CountDocuments(ctx context.Context, collection string, filter Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	matched, err := e.filterLocked(collection, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// EstimatedDocumentCount returns the collection size. It is always exact here.
func (e *MemoryExecutor) EstimatedDocumentCount(ctx context.Context, collection string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return int64(len(e.collections[collection])), nil
}

// Aggregate runs the pipeline over copies of the stored documents.
func (e *MemoryExecutor) Aggregate(ctx context.Context, collection string, pipeline Pipeline, _ AggregateOptions) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	docs := make([]bson.M, 0, len(e.collections[collection]))
	for _, doc := range e.collections[collection] {
		cp, err := toDocument(doc)
		if err != nil {
			e.mu.RUnlock()
			return nil, err
		}
		docs = append(docs, cp)
	}
	e.mu.RUnlock()

	for _, stage := range pipeline {
		var err error
		if docs, err = runStage(docs, stage); err != nil {
			return nil, err
		}
	}

	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, Document(doc))
	}
	return out, nil
}

// EnsureUniqueIndex rejects later writes that repeat a value of field. Documents without the
// field are not indexed.
func (e *MemoryExecutor) EnsureUniqueIndex(ctx context.Context, collection, field string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, existing := range e.unique[collection] {
		if existing == field {
			return nil
		}
	}
	docs := e.collections[collection]
	for i, doc := range docs {
		if err := checkUnique(docs, doc, i, field, collection); err != nil {
			return err
		}
	}
	e.unique[collection] = append(e.unique[collection], field)
	return nil
}

// checkUniqueLocked reports a duplicate when doc, stored at position self (or -1 when new),
// repeats a unique value held by another document.
func (e *MemoryExecutor) checkUniqueLocked(collection string, doc bson.M, self int) error {
	for _, field := range e.unique[collection] {
		if err := checkUnique(e.collections[collection], doc, self, field, collection); err != nil {
			return err
		}
	}
	return nil
}

func checkUnique(docs []bson.M, doc bson.M, self int, field, collection string) error {
	value, ok := doc[field]
	if !ok {
		return nil
	}
	for i, other := range docs {
		if i == self {
			continue
		}
		if existing, ok := other[field]; ok && valuesEqual(existing, value) {
			return fmt.Errorf("%w: %s %v in %s", ErrDuplicateKey, field, value, collection)
		}
	}
	return nil
}

func (e *MemoryExecutor) filterLocked(collection string, filter Filter) ([]bson.M, error) {
	query, err := toDocument(filter.query())
	if err != nil {
		return nil, err
	}
	var out []bson.M
	for _, doc := range e.collections[collection] {
		ok, err := matches(doc, query)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (e *MemoryExecutor) indexLocked(collection string, filter Filter) (int, error) {
	query, err := toDocument(filter.query())
	if err != nil {
		return -1, err
	}
	for i, doc := range e.collections[collection] {
		ok, err := matches(doc, query)
		if err != nil {
			return -1, err
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}

func runStage(docs []bson.M, stage bson.D) ([]bson.M, error) {
	if len(stage) != 1 {
		return nil, fmt.Errorf("pipeline stage must have exactly one operator, got %d", len(stage))
	}
	op, arg := stage[0].Key, stage[0].Value

	switch op {
	case "$match":
		query, err := toDocument(arg)
		if err != nil {
			return nil, err
		}
		var out []bson.M
		for _, doc := range docs {
			ok, err := matches(doc, query)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, doc)
			}
		}
		return out, nil
	case "$sort":
		keys, ok := asOrderedDoc(arg)
		if !ok {
			return nil, fmt.Errorf("$sort expects a document")
		}
		sorts := make([]Sort, 0, len(keys))
		for _, k := range keys {
			dir, ok := toFloat(k.Value)
			if !ok || (dir != 1 && dir != -1) {
				return nil, fmt.Errorf("$sort direction for %q must be 1 or -1", k.Key)
			}
			order := SortAsc
			if dir < 0 {
				order = SortDesc
			}
			sorts = append(sorts, Sort{Field: k.Key, Order: order})
		}
		sortDocuments(docs, sorts)
		return docs, nil
	case "$skip", "$limit":
		n, ok := toFloat(arg)
		if !ok || n < 0 {
			return nil, fmt.Errorf("%s expects a non-negative number", op)
		}
		if op == "$skip" {
			return window(docs, int64(n), 0), nil
		}
		if n == 0 {
			return nil, fmt.Errorf("$limit must be positive")
		}
		return window(docs, 0, int64(n)), nil
	case "$count":
		name, ok := arg.(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("$count expects a field name")
		}
		if len(docs) == 0 {
			return nil, nil
		}
		return []bson.M{{name: int32(len(docs))}}, nil
	case "$project":
		spec, err := toDocument(arg)
		if err != nil {
			return nil, err
		}
		out := make([]bson.M, 0, len(docs))
		for _, doc := range docs {
			projected, err := project(doc, spec)
			if err != nil {
				return nil, err
			}
			out = append(out, projected)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: stage %s", ErrUnsupported, op)
	}
}

func window(docs []bson.M, skip, limit int64) []bson.M {
	if skip < 0 {
		skip = 0
	}
	if skip >= int64(len(docs)) {
		return nil
	}
	docs = docs[skip:]
	if limit > 0 && limit < int64(len(docs)) {
		docs = docs[:limit]
	}
	return docs
}

func sortDocuments(docs []bson.M, sorts []Sort) {
	if len(sorts) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, s := range sorts {
			a, aok := lookupPath(docs[i], s.Field)
			b, bok := lookupPath(docs[j], s.Field)
			c := sortCompare(a, aok, b, bok)
			if c == 0 {
				continue
			}
			if s.Order == SortDesc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
