package openapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router/nethttp"
)

func guard(next router.HandlerFunc) router.HandlerFunc { return next }

func registerGenres(r router.Router) {
	r.GET("/health", nil)
	g := r.Group("/api/genres")
	g.GET("", nil)
	g.GET("/all", nil)
	g.GET("/count", nil)
	g.POST("/aggregate", nil)
	g.DELETE("", nil, guard)
	g.GET("/:id", nil)
	g.POST("", nil, guard)
	g.PATCH("/:id", nil, guard)
	g.PUT("/:id", nil, guard)
	g.DELETE("/:id", nil, guard)
}

func TestCollectRoutes(t *testing.T) {
	routes := CollectRoutes(registerGenres)
	require.Len(t, routes, 11)

	assert.Equal(t, Route{Method: http.MethodGet, Path: "/health"}, routes[0])
	assert.Equal(t, Route{Method: http.MethodGet, Path: "/api/genres"}, routes[1])
	assert.Equal(t, Route{Method: http.MethodDelete, Path: "/api/genres", Protected: true}, routes[5])
	assert.Equal(t, Route{Method: http.MethodGet, Path: "/api/genres/:id"}, routes[6])

	assert.Nil(t, CollectRoutes(nil))
}

func TestCollectRoutes_GroupMiddlewareProtectsChildren(t *testing.T) {
	routes := CollectRoutes(func(r router.Router) {
		admin := r.Group("/api/users/", guard)
		admin.GET("/:id", nil)
	})
	require.Len(t, routes, 1)
	assert.Equal(t, "/api/users/:id", routes[0].Path)
	assert.True(t, routes[0].Protected)
}

func TestBuildSpec_CatalogOperations(t *testing.T) {
	spec := BuildSpec("ponzu-back", "v1.0.0", CollectRoutes(registerGenres))

	assert.Equal(t, "3.0.3", spec.OpenAPI)
	assert.Equal(t, Info{Title: "ponzu-back", Version: "v1.0.0"}, spec.Info)

	list := spec.Paths["/api/genres"].Get
	require.NotNil(t, list)
	assert.Equal(t, "List genres", list.Summary)
	assert.Equal(t, "getGenres", list.OperationID)
	assert.Equal(t, []string{"genres"}, list.Tags)
	assert.Equal(t, []string{"page", "limit", "filter"}, paramNames(list.Parameters))
	assert.Empty(t, list.Security)

	create := spec.Paths["/api/genres"].Post
	require.NotNil(t, create)
	assert.Equal(t, "Create genres", create.Summary)
	assert.NotNil(t, create.RequestBody)
	assert.Contains(t, create.Responses, "201")
	assert.Contains(t, create.Responses, "401")
	assert.Equal(t, []map[string][]string{{"bearerAuth": {}}}, create.Security)

	bulk := spec.Paths["/api/genres"].Delete
	require.NotNil(t, bulk)
	assert.Equal(t, []string{"filter"}, paramNames(bulk.Parameters))

	byID := spec.Paths["/api/genres/{id}"]
	require.NotNil(t, byID)
	assert.Equal(t, "Get genres by id", byID.Get.Summary)
	assert.Equal(t, "getGenresById", byID.Get.OperationID)
	assert.Equal(t, []string{"id"}, paramNames(byID.Get.Parameters))
	assert.Contains(t, byID.Get.Responses, "404")
	assert.Contains(t, byID.Delete.Responses, "204")
	assert.Equal(t, "Update genres by id", byID.Patch.Summary)
	assert.NotNil(t, byID.Put)

	assert.Equal(t, "Count genres", spec.Paths["/api/genres/count"].Get.Summary)
	assert.Equal(t, []string{"filter"}, paramNames(spec.Paths["/api/genres/all"].Get.Parameters))
	assert.Equal(t, "Aggregate genres", spec.Paths["/api/genres/aggregate"].Post.Summary)

	require.NotNil(t, spec.Components)
	assert.Equal(t, "bearer", spec.Components.SecuritySchemes["bearerAuth"].Scheme)
}

func TestValidate(t *testing.T) {
	spec := BuildSpec("ponzu-back", "1.0.0", CollectRoutes(registerGenres))
	require.NoError(t, Validate(context.Background(), spec))

	spec.Paths["/api/genres"].Get.Responses = map[string]*Response{}
	assert.Error(t, Validate(context.Background(), spec))

	assert.Error(t, Validate(context.Background(), nil))
}

func TestBuildSpec_Defaults(t *testing.T) {
	spec := BuildSpec(" ", "", []Route{
		{Method: "get", Path: "/health"},
		{Method: "GET", Path: "/health"},
		{Method: "OPTIONS", Path: "/health"},
		{Method: "GET", Path: ""},
	})
	assert.Equal(t, Info{Title: "API", Version: "0.0.0"}, spec.Info)
	require.Len(t, spec.Paths, 1)
	assert.Equal(t, "getHealth", spec.Paths["/health"].Get.OperationID)
	assert.Nil(t, spec.Components)
}

func TestWriteSpec_JSONAndYAML(t *testing.T) {
	spec := BuildSpec("ponzu-back", "1.0.0", []Route{{Method: "GET", Path: "/health"}})
	dir := filepath.Join(t.TempDir(), "docs")

	jsonPath := filepath.Join(dir, "openapi.json")
	require.NoError(t, WriteSpec(jsonPath, spec))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "3.0.3", parsed["openapi"])

	yamlPath := filepath.Join(dir, "openapi.yaml")
	require.NoError(t, WriteSpec(yamlPath, spec))
	data, err = os.ReadFile(yamlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "openapi: 3.0.3")

	assert.Error(t, WriteSpec("  ", spec))
	assert.Error(t, WriteSpec(jsonPath, nil))
}

func TestHandler(t *testing.T) {
	spec := BuildSpec("ponzu-back", "1.0.0", CollectRoutes(registerGenres))
	r := nethttp.NewRouter()
	r.GET("/openapi.json", Handler(spec))
	r.GET("/openapi.yaml", Handler(spec))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var parsed Spec
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Contains(t, parsed.Paths, "/api/genres/{id}")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "openapi: 3.0.3"))
}

func paramNames(params []Parameter) []string {
	names := make([]string, 0, len(params))
	for _, p := range params {
		names = append(names, p.Name)
	}
	return names
}
