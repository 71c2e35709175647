package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ponzu-dev/ponzu-back/pkg/crud"
	"github.com/ponzu-dev/ponzu-back/pkg/observability/logger"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// Operators that run server-side code; never accepted from clients.
var forbiddenOperators = map[string]struct{}{
	"$where":       {},
	"$function":    {},
	"$accumulator": {},
}

// Stages that write to other collections or read from them.
var forbiddenStages = map[string]struct{}{
	"$out":         {},
	"$merge":       {},
	"$lookup":      {},
	"$graphLookup": {},
	"$unionWith":   {},
}

// CrudController exposes a crud.Service over HTTP.
type CrudController[E any, R any, C crud.Creatable[E], U crud.Updatable] struct {
	resource string
	service  *crud.Service[E, R, C, U]
	log      logger.Logger
	read     []router.MiddlewareFunc
	hidden   []string
}

// NewCrudController creates a controller for service. resource names the collection in
// error messages and logs.
func NewCrudController[E any, R any, C crud.Creatable[E], U crud.Updatable](resource string, service *crud.Service[E, R, C, U], log logger.Logger) *CrudController[E, R, C, U] {
	if log == nil {
		log = logger.Nop()
	}
	return &CrudController[E, R, C, U]{
		resource: resource,
		service:  service,
		log:      log.With("resource", resource),
	}
}

// GuardReads sets middleware for every route that only reads data, aggregation included.
func (h *CrudController[E, R, C, U]) GuardReads(mw ...router.MiddlewareFunc) *CrudController[E, R, C, U] {
	h.read = mw
	return h
}

// HideFields keeps fields out of client queries. Filters and pipelines that name them, or
// that take whole documents through $$ROOT or $$CURRENT, are rejected, and the fields are
// dropped from aggregation output.
func (h *CrudController[E, R, C, U]) HideFields(fields ...string) *CrudController[E, R, C, U] {
	h.hidden = append(h.hidden, fields...)
	return h
}

// Register mounts the CRUD routes under prefix. Write middleware guards every route that
// changes data; read routes use the middleware given to GuardReads.
//
//	GET    {prefix}            paginated list (page, limit, filter)
//	GET    {prefix}/all        every match of filter
//	GET    {prefix}/count      {"count": n}
//	POST   {prefix}/aggregate  {"pipeline": [...]} as extended JSON
//	DELETE {prefix}            bulk delete by mandatory filter
//	GET    {prefix}/:id
//	POST   {prefix}
//	PATCH  {prefix}/:id        partial update
//	PUT    {prefix}/:id        partial update
//	DELETE {prefix}/:id
func (h *CrudController[E, R, C, U]) Register(r router.Router, prefix string, write ...router.MiddlewareFunc) {
	g := r.Group(prefix)

	g.GET("", h.List, h.read...)
	g.GET("/all", h.All, h.read...)
	g.GET("/count", h.Count, h.read...)
	g.POST("/aggregate", h.Aggregate, h.read...)
	g.DELETE("", h.DeleteMany, write...)
	g.GET("/:id", h.Get, h.read...)
	g.POST("", h.Create, write...)
	g.PATCH("/:id", h.Update, write...)
	g.PUT("/:id", h.Update, write...)
	g.DELETE("/:id", h.Delete, write...)
}

// List returns one page of records.
func (h *CrudController[E, R, C, U]) List(c router.Context) error {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		return h.fail(c, err)
	}
	limitParam := "limit"
	if c.Query(limitParam) == "" && c.Query("per_page") != "" {
		limitParam = "per_page"
	}
	limit, err := intQuery(c, limitParam, crud.DefaultPerPage)
	if err != nil {
		return h.fail(c, err)
	}
	filter, err := h.filterQuery(c)
	if err != nil {
		return h.fail(c, err)
	}

	result, err := h.service.GetPaginated(c.Request().Context(), filter, page, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return Success(c, result)
}

// All returns every record matching the optional filter.
func (h *CrudController[E, R, C, U]) All(c router.Context) error {
	filter, err := h.filterQuery(c)
	if err != nil {
		return h.fail(c, err)
	}
	items, err := h.service.Find(c.Request().Context(), filter, nil)
	if err != nil {
		return h.fail(c, err)
	}
	return Success(c, items)
}

// Count reports how many records match the optional filter.
func (h *CrudController[E, R, C, U]) Count(c router.Context) error {
	filter, err := h.filterQuery(c)
	if err != nil {
		return h.fail(c, err)
	}
	total, err := h.service.Count(c.Request().Context(), filter)
	if err != nil {
		return h.fail(c, err)
	}
	return Success(c, map[string]int64{"count": total})
}

// Get returns one record. A missing record is a 404.
func (h *CrudController[E, R, C, U]) Get(c router.Context) error {
	id := c.Param("id")
	item, err := h.service.GetByID(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	if item == nil {
		return h.fail(c, h.notFound(id))
	}
	return Success(c, item)
}

// Create inserts a record and answers 201 with the stored form.
func (h *CrudController[E, R, C, U]) Create(c router.Context) error {
	var dto C
	if err := bindBody(c, &dto); err != nil {
		return h.fail(c, err)
	}
	if err := ValidateDTO(dto); err != nil {
		return h.fail(c, err)
	}

	item, err := h.service.Create(c.Request().Context(), dto)
	if err != nil {
		return h.fail(c, err)
	}
	return Created(c, item)
}

// Update applies the fields present in the body. Absent fields are left unchanged.
func (h *CrudController[E, R, C, U]) Update(c router.Context) error {
	var dto U
	if err := bindBody(c, &dto); err != nil {
		return h.fail(c, err)
	}
	if v, ok := any(dto).(Validator); ok {
		if err := ValidateDTO(v); err != nil {
			return h.fail(c, err)
		}
	}

	item, err := h.service.Update(c.Request().Context(), c.Param("id"), dto)
	if err != nil {
		return h.fail(c, err)
	}
	return Success(c, item)
}

// Delete removes one record and answers 204.
func (h *CrudController[E, R, C, U]) Delete(c router.Context) error {
	id := c.Param("id")
	removed, err := h.service.Delete(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	if !removed {
		return h.fail(c, h.notFound(id))
	}
	return NoContent(c)
}

// DeleteMany removes every match of a mandatory, non-empty filter.
func (h *CrudController[E, R, C, U]) DeleteMany(c router.Context) error {
	filter, err := h.filterQuery(c)
	if err != nil {
		return h.fail(c, err)
	}
	if len(filter) == 0 {
		return h.fail(c, NewValidationErrorWithCode("validation.filter_required",
			"a non-empty filter is required for bulk delete", nil))
	}

	deleted, err := h.service.DeleteByCriteria(c.Request().Context(), filter)
	if err != nil {
		return h.fail(c, err)
	}
	return Success(c, map[string]int64{"deleted": deleted})
}

type aggregateRequest struct {
	Pipeline     []bson.D `bson:"pipeline"`
	AllowDiskUse bool     `bson:"allow_disk_use"`
}

// Aggregate runs a read-only pipeline and returns its raw output.
func (h *CrudController[E, R, C, U]) Aggregate(c router.Context) error {
	var raw json.RawMessage
	if err := bindBody(c, &raw); err != nil {
		return h.fail(c, err)
	}

	var req aggregateRequest
	if err := bson.UnmarshalExtJSON(raw, false, &req); err != nil {
		return h.fail(c, NewValidationErrorWithCode("validation.invalid_pipeline",
			"pipeline must be an array of stage documents", nil))
	}
	if len(req.Pipeline) == 0 {
		return h.fail(c, NewValidationErrorWithCode("validation.invalid_pipeline", "pipeline is empty", nil))
	}
	for i, stage := range req.Pipeline {
		if len(stage) != 1 {
			return h.fail(c, NewValidationErrorWithCode("validation.invalid_pipeline",
				"each stage must have exactly one operator", map[string]interface{}{"stage": i}))
		}
		if name, found := findKey(stage, forbiddenStages); found {
			return h.fail(c, NewValidationErrorWithCode("validation.invalid_pipeline",
				fmt.Sprintf("stage %s is not allowed", name), map[string]interface{}{"stage": i}))
		}
		if op, found := findKey(stage[0].Value, forbiddenOperators); found {
			return h.fail(c, forbiddenOperatorError(op))
		}
		if ref, found := h.hiddenReference(stage); found {
			return h.fail(c, hiddenFieldError(ref))
		}
	}

	docs, err := h.service.Aggregate(c.Request().Context(), document.Pipeline(req.Pipeline),
		&document.AggregateOptions{AllowDiskUse: req.AllowDiskUse})
	if err != nil {
		return h.fail(c, err)
	}
	for _, doc := range docs {
		for _, field := range h.hidden {
			delete(doc, field)
		}
	}
	return Success(c, docs)
}

func (h *CrudController[E, R, C, U]) notFound(id string) error {
	return NewNotFoundError(h.resource+" not found").WithDetails(map[string]interface{}{
		"resource": h.resource,
		"id":       id,
	})
}

// fail writes the error response. Server-side causes are logged here because clients only
// see the generic message.
func (h *CrudController[E, R, C, U]) fail(c router.Context, err error) error {
	ctx := c.Request().Context()
	status, body := MapError(ctx, err)
	if status >= http.StatusInternalServerError {
		h.log.WithContext(ctx).Error("request failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"code", body.Code,
			"error", err,
		)
	}
	return c.JSON(status, body)
}

// bindBody decodes the JSON body. A body over the size limit becomes a 413.
func bindBody(c router.Context, v interface{}) error {
	err := c.Bind(v)
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return NewError("request.too_large", err).
			WithMessage(fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", tooLarge.Limit)).
			WithHTTPStatus(http.StatusRequestEntityTooLarge).
			WithDetails(map[string]interface{}{"max_size": tooLarge.Limit})
	}
	return NewValidationErrorWithCode("validation.invalid_body", "request body is not valid JSON for this resource",
		map[string]interface{}{"reason": err.Error()})
}

func intQuery(c router.Context, name string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, NewValidationErrorWithCode("validation.invalid_query",
			fmt.Sprintf("%s must be an integer", name), map[string]interface{}{"param": name})
	}
	return n, nil
}

// filterQuery reads the optional `filter` query parameter as an extended JSON object.
func (h *CrudController[E, R, C, U]) filterQuery(c router.Context) (document.Filter, error) {
	raw := strings.TrimSpace(c.Query("filter"))
	if raw == "" {
		return nil, nil
	}
	filter, err := ParseFilter(raw)
	if err != nil {
		return nil, err
	}
	if ref, found := h.hiddenReference(bson.M(filter)); found {
		return nil, hiddenFieldError(ref)
	}
	return filter, nil
}

// hiddenReference finds a key or field path in v that reaches a hidden field.
func (h *CrudController[E, R, C, U]) hiddenReference(v interface{}) (string, bool) {
	if len(h.hidden) == 0 {
		return "", false
	}
	return scan(v, func(s string, key bool) bool {
		name := s
		if !key {
			if !strings.HasPrefix(s, "$") {
				return false
			}
			name = s[1:]
			if isPathOf(name, "$ROOT") || isPathOf(name, "$CURRENT") {
				return true
			}
		}
		for _, field := range h.hidden {
			if isPathOf(name, field) {
				return true
			}
		}
		return false
	})
}

func isPathOf(path, field string) bool {
	return path == field || strings.HasPrefix(path, field+".")
}

func hiddenFieldError(ref string) error {
	return NewValidationErrorWithCode("validation.forbidden_field",
		fmt.Sprintf("%s cannot be queried", ref), map[string]interface{}{"field": ref})
}

// ParseFilter decodes an extended JSON query object. Operators that execute server-side
// code are rejected at any depth.
func ParseFilter(raw string) (document.Filter, error) {
	var m bson.M
	if err := bson.UnmarshalExtJSON([]byte(raw), false, &m); err != nil {
		return nil, NewValidationErrorWithCode("validation.invalid_filter",
			"filter must be a JSON object", map[string]interface{}{"reason": err.Error()})
	}
	if op, found := findKey(m, forbiddenOperators); found {
		return nil, forbiddenOperatorError(op)
	}
	return document.Filter(m), nil
}

func forbiddenOperatorError(op string) error {
	return NewValidationErrorWithCode("validation.forbidden_operator",
		fmt.Sprintf("operator %s is not allowed", op), map[string]interface{}{"operator": op})
}

func findKey(v interface{}, names map[string]struct{}) (string, bool) {
	return scan(v, func(s string, key bool) bool {
		_, ok := names[s]
		return key && ok
	})
}

// scan walks documents and arrays nested in v and returns the first key or string value
// for which match is true.
func scan(v interface{}, match func(s string, key bool) bool) (string, bool) {
	switch t := v.(type) {
	case string:
		if match(t, false) {
			return t, true
		}
	case bson.M:
		for k, val := range t {
			if match(k, true) {
				return k, true
			}
			if s, found := scan(val, match); found {
				return s, true
			}
		}
	case bson.D:
		for _, e := range t {
			if match(e.Key, true) {
				return e.Key, true
			}
			if s, found := scan(e.Value, match); found {
				return s, true
			}
		}
	case bson.A:
		for _, val := range t {
			if s, found := scan(val, match); found {
				return s, true
			}
		}
	}
	return "", false
}
