// Package crud layers DTO translation and pagination over a document repository.
package crud

import (
	"context"
	"errors"
	"fmt"

	"github.com/ponzu-dev/ponzu-back/pkg/observability/logger"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

// Creatable is a create DTO. Entity returns the record to insert, without an identifier.
type Creatable[E any] interface {
	Entity() E
}

// Updatable is an update DTO. Update returns the partial update built from its present fields.
type Updatable interface {
	Update() document.Update
}

// Service exposes read DTOs R over a repository of E, taking create DTOs C and update DTOs U.
type Service[E any, R any, C Creatable[E], U Updatable] struct {
	repo         document.Repository[E]
	toRead       func(E) R
	log          logger.Logger
	beforeCreate func(context.Context, *C) error
	beforeUpdate func(context.Context, *U) error
}

// NewService creates a Service over repo. toRead maps a stored record to its read DTO.
func NewService[E any, R any, C Creatable[E], U Updatable](repo document.Repository[E], toRead func(E) R, log logger.Logger) (*Service[E, R, C, U], error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if toRead == nil {
		return nil, fmt.Errorf("read mapper is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service[E, R, C, U]{repo: repo, toRead: toRead, log: log}, nil
}

// BeforeCreate registers a hook run on the create DTO before conversion. A hook error aborts
// the create. Hooks must be registered before the service is shared.
func (s *Service[E, R, C, U]) BeforeCreate(hook func(context.Context, *C) error) *Service[E, R, C, U] {
	s.beforeCreate = hook
	return s
}

// BeforeUpdate registers a hook run on the update DTO before it becomes a partial update.
func (s *Service[E, R, C, U]) BeforeUpdate(hook func(context.Context, *U) error) *Service[E, R, C, U] {
	s.beforeUpdate = hook
	return s
}

// Repository returns the underlying repository, for callers that need stored fields the read DTO hides.
func (s *Service[E, R, C, U]) Repository() document.Repository[E] {
	return s.repo
}

// GetAll returns every record.
func (s *Service[E, R, C, U]) GetAll(ctx context.Context) ([]R, error) {
	return s.Find(ctx, nil, nil)
}

// Find returns the records matching filter.
func (s *Service[E, R, C, U]) Find(ctx context.Context, filter document.Filter, opts *document.FindOptions) ([]R, error) {
	entities, err := s.repo.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return s.readAll(entities), nil
}

// FindOne returns the first record matching filter, or nil.
func (s *Service[E, R, C, U]) FindOne(ctx context.Context, filter document.Filter) (*R, error) {
	entity, err := s.repo.FindOne(ctx, filter)
	if err != nil || entity == nil {
		return nil, err
	}
	return s.read(entity), nil
}

// GetByID returns the record with the given identifier, or nil when it does not exist.
// A malformed identifier fails with document.ErrInvalidIdentifier.
func (s *Service[E, R, C, U]) GetByID(ctx context.Context, id string) (*R, error) {
	entity, err := s.repo.FindByID(ctx, id)
	if err != nil || entity == nil {
		return nil, err
	}
	return s.read(entity), nil
}

// GetPaginated returns one page of matches. page is 1-based.
//
// The page and the total come from two independent queries, so under concurrent writes
// Total and LastPage may disagree with Payload.
func (s *Service[E, R, C, U]) GetPaginated(ctx context.Context, filter document.Filter, page, perPage int64) (*Pagination[R], error) {
	page, perPage = NormalizePage(page, perPage)

	entities, err := s.repo.Find(ctx, filter, &document.FindOptions{
		Skip:  Offset(page, perPage),
		Limit: perPage,
	})
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &Pagination[R]{
		CurrentPage: page,
		LastPage:    LastPage(total, perPage),
		PerPage:     perPage,
		Total:       total,
		Payload:     s.readAll(entities),
	}, nil
}

// Aggregate runs pipeline and returns its raw output.
func (s *Service[E, R, C, U]) Aggregate(ctx context.Context, pipeline document.Pipeline, opts *document.AggregateOptions) ([]document.Document, error) {
	return s.repo.Aggregate(ctx, pipeline, opts)
}

// Count is advisory: a failed count is logged and reported as zero. A filter the store
// rejects is still returned as document.ErrInvalidQuery.
func (s *Service[E, R, C, U]) Count(ctx context.Context, filter document.Filter) (int64, error) {
	total, err := s.repo.CountDocuments(ctx, filter)
	if errors.Is(err, document.ErrInvalidQuery) {
		return 0, err
	}
	if err != nil {
		s.log.WithContext(ctx).Warn("count failed, reporting zero", "error", err)
		return 0, nil
	}
	return total, nil
}

// Create inserts the record described by dto and returns it as stored.
func (s *Service[E, R, C, U]) Create(ctx context.Context, dto C) (*R, error) {
	if s.beforeCreate != nil {
		if err := s.beforeCreate(ctx, &dto); err != nil {
			return nil, err
		}
	}
	entity, err := s.repo.InsertOne(ctx, dto.Entity())
	if err != nil {
		return nil, err
	}
	return s.read(entity), nil
}

// Update applies the present fields of dto to the record with the given identifier.
// A dto with no present fields leaves the record unchanged and returns it.
func (s *Service[E, R, C, U]) Update(ctx context.Context, id string, dto U) (*R, error) {
	if s.beforeUpdate != nil {
		if err := s.beforeUpdate(ctx, &dto); err != nil {
			return nil, err
		}
	}
	entity, err := s.repo.UpdateByID(ctx, id, dto.Update())
	if err != nil {
		return nil, err
	}
	return s.read(entity), nil
}

// Delete reports whether exactly one record was removed.
func (s *Service[E, R, C, U]) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteByCriteria removes every match and returns how many were removed.
func (s *Service[E, R, C, U]) DeleteByCriteria(ctx context.Context, filter document.Filter) (int64, error) {
	return s.repo.DeleteMany(ctx, filter)
}

func (s *Service[E, R, C, U]) read(entity *E) *R {
	r := s.toRead(*entity)
	return &r
}

func (s *Service[E, R, C, U]) readAll(entities []E) []R {
	out := make([]R, 0, len(entities))
	for _, e := range entities {
		out = append(out, s.toRead(e))
	}
	return out
}
