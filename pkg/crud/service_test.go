package crud

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

type record struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name"`
	Score int                `bson:"score"`
	Tags  []string           `bson:"tags"`
}

type recordView struct {
	ID    string
	Name  string
	Score int
	Tags  []string
}

type createRecord struct {
	Name  string
	Score int
	Tags  []string
}

func (c createRecord) Entity() record {
	return record{Name: c.Name, Score: c.Score, Tags: c.Tags}
}

type updateRecord struct {
	Name  *string
	Score *int
	Tags  *[]string
}

func (u updateRecord) Update() document.Update {
	return document.BuildUpdate(
		document.Opt("name", u.Name),
		document.Opt("score", u.Score),
		document.Opt("tags", u.Tags),
	)
}

func toView(r record) recordView {
	return recordView{ID: document.FormatID(r.ID), Name: r.Name, Score: r.Score, Tags: r.Tags}
}

type recordService = Service[record, recordView, createRecord, updateRecord]

func newRecordService(t *testing.T) *recordService {
	t.Helper()
	repo, err := document.NewRepository[record](document.NewMemoryExecutor(), "records", document.WithCountMode(document.CountExact))
	require.NoError(t, err)
	svc, err := NewService[record, recordView, createRecord, updateRecord](repo, toView, nil)
	require.NoError(t, err)
	return svc
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService[record, recordView, createRecord, updateRecord](nil, toView, nil)
	assert.Error(t, err)

	repo, err := document.NewRepository[record](document.NewMemoryExecutor(), "records")
	require.NoError(t, err)
	_, err = NewService[record, recordView, createRecord, updateRecord](repo, nil, nil)
	assert.Error(t, err)
}

func TestServiceCreateThenGet(t *testing.T) {
	svc := newRecordService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, createRecord{Name: "Nana", Score: 8, Tags: []string{"music"}})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *created, *got)
}

// Property: anything created can be read back unchanged.
func TestProperty_CreateThenGetByID(t *testing.T) {
	svc := newRecordService(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("create/get round trip", prop.ForAll(
		func(name string, score int) bool {
			created, err := svc.Create(ctx, createRecord{Name: name, Score: score})
			if err != nil {
				return false
			}
			got, err := svc.GetByID(ctx, created.ID)
			return err == nil && got != nil && got.Name == name && got.Score == score && got.ID == created.ID
		},
		gen.AlphaString(),
		gen.IntRange(-1000, 1000),
	))

	properties.TestingRun(t)
}

// Property: malformed identifiers are client errors, never not-found.
func TestProperty_MalformedIDIsInvalidIdentifier(t *testing.T) {
	svc := newRecordService(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("malformed id", prop.ForAll(
		func(id string) bool {
			_, err := svc.GetByID(ctx, id)
			return errors.Is(err, document.ErrInvalidIdentifier) && !errors.Is(err, document.ErrNotFound)
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) != 24 }),
	))

	properties.TestingRun(t)
}

func TestServiceDeleteThenGetIsAbsent(t *testing.T) {
	svc := newRecordService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, createRecord{Name: "Paprika"})
	require.NoError(t, err)

	removed, err := svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	removed, err = svc.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestServiceUpdateChangesOnlyPresentFields(t *testing.T) {
	svc := newRecordService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, createRecord{Name: "Perfect Blue", Score: 8, Tags: []string{"thriller"}})
	require.NoError(t, err)

	score := 9
	updated, err := svc.Update(ctx, created.ID, updateRecord{Score: &score})
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Score)
	assert.Equal(t, created.Name, updated.Name)
	assert.Equal(t, created.Tags, updated.Tags)

	unchanged, err := svc.Update(ctx, created.ID, updateRecord{})
	require.NoError(t, err)
	assert.Equal(t, *updated, *unchanged)

	_, err = svc.Update(ctx, primitive.NewObjectID().Hex(), updateRecord{Score: &score})
	assert.ErrorIs(t, err, document.ErrNotFound)

	_, err = svc.Update(ctx, "bogus", updateRecord{Score: &score})
	assert.ErrorIs(t, err, document.ErrInvalidIdentifier)
}

func TestServicePaginationScenario(t *testing.T) {
	svc := newRecordService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, createRecord{Name: fmt.Sprintf("r%d", i)})
		require.NoError(t, err)
	}

	first, err := svc.GetPaginated(ctx, nil, 1, 2)
	require.NoError(t, err)
	assert.Len(t, first.Payload, 2)
	assert.Equal(t, int64(3), first.Total)
	assert.Equal(t, int64(2), first.LastPage)
	assert.Equal(t, int64(1), first.CurrentPage)
	assert.Equal(t, int64(2), first.PerPage)

	second, err := svc.GetPaginated(ctx, nil, 2, 2)
	require.NoError(t, err)
	assert.Len(t, second.Payload, 1)
	assert.Equal(t, "r2", second.Payload[0].Name)

	beyond, err := svc.GetPaginated(ctx, nil, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, beyond.Payload)
	assert.NotNil(t, beyond.Payload)

	filtered, err := svc.GetPaginated(ctx, document.Filter{"name": "r1"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), filtered.Total)
	assert.Equal(t, DefaultPerPage, filtered.PerPage)
	assert.Equal(t, int64(1), filtered.CurrentPage)
}

func TestServiceDeleteByCriteriaScenario(t *testing.T) {
	svc := newRecordService(t)
	ctx := context.Background()
	for i, tag := range []string{"keep", "drop", "keep", "drop", "keep"} {
		_, err := svc.Create(ctx, createRecord{Name: fmt.Sprintf("r%d", i), Tags: []string{tag}})
		require.NoError(t, err)
	}

	n, err := svc.DeleteByCriteria(ctx, document.Filter{"tags": "drop"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rest, err := svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, rest, 3)
	total, err := svc.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestServiceFindAndAggregate(t *testing.T) {
	svc := newRecordService(t)
	ctx := context.Background()
	for _, s := range []int{3, 1, 2} {
		_, err := svc.Create(ctx, createRecord{Name: fmt.Sprintf("s%d", s), Score: s})
		require.NoError(t, err)
	}

	sorted, err := svc.Find(ctx, nil, &document.FindOptions{Sort: []document.Sort{{Field: "score", Order: document.SortDesc}}, Limit: 2})
	require.NoError(t, err)
	require.Len(t, sorted, 2)
	assert.Equal(t, []int{3, 2}, []int{sorted[0].Score, sorted[1].Score})

	one, err := svc.FindOne(ctx, document.Filter{"score": 1})
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, "s1", one.Name)

	none, err := svc.FindOne(ctx, document.Filter{"score": 42})
	require.NoError(t, err)
	assert.Nil(t, none)

	docs, err := svc.Aggregate(ctx, document.Pipeline{{{Key: "$count", Value: "n"}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []document.Document{{"n": int32(3)}}, docs)
}

type brokenCountRepo struct {
	document.Repository[record]
}

func (brokenCountRepo) CountDocuments(context.Context, document.Filter) (int64, error) {
	return 0, &document.Error{Kind: document.KindStorage, Op: "count", Err: errors.New("boom")}
}

func TestServiceCountSwallowsErrors(t *testing.T) {
	svc, err := NewService[record, recordView, createRecord, updateRecord](brokenCountRepo{}, toView, nil)
	require.NoError(t, err)

	total, err := svc.Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestServiceCountRejectsUnsupportedFilter(t *testing.T) {
	svc := newRecordService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, createRecord{Name: "alpha"})
	require.NoError(t, err)

	_, err = svc.Count(ctx, document.Filter{"name": document.Document{"$regex": "^a"}})
	assert.ErrorIs(t, err, document.ErrInvalidQuery)
}

func TestServicePaginationPropagatesCountErrors(t *testing.T) {
	inner, err := document.NewRepository[record](document.NewMemoryExecutor(), "records")
	require.NoError(t, err)
	svc, err := NewService[record, recordView, createRecord, updateRecord](brokenCountRepo{Repository: inner}, toView, nil)
	require.NoError(t, err)

	_, err = svc.GetPaginated(context.Background(), nil, 1, 10)
	assert.ErrorIs(t, err, document.ErrStorage)
}

func TestServiceHooks(t *testing.T) {
	svc := newRecordService(t)
	ctx := context.Background()

	svc.BeforeCreate(func(_ context.Context, c *createRecord) error {
		if c.Name == "" {
			return errors.New("name required")
		}
		c.Tags = append(c.Tags, "hooked")
		return nil
	}).BeforeUpdate(func(_ context.Context, u *updateRecord) error {
		if u.Name != nil {
			upper := "[" + *u.Name + "]"
			u.Name = &upper
		}
		return nil
	})

	_, err := svc.Create(ctx, createRecord{})
	assert.EqualError(t, err, "name required")

	created, err := svc.Create(ctx, createRecord{Name: "Kaiba"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hooked"}, created.Tags)

	name := "Kaiba"
	updated, err := svc.Update(ctx, created.ID, updateRecord{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "[Kaiba]", updated.Name)
}
