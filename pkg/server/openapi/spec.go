// Package openapi derives an OpenAPI 3 document from the routes a service registers.
package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// Route describes one registered endpoint.
type Route struct {
	Method string
	Path   string
	// Protected marks routes registered with extra middleware, i.e. the guarded writes.
	Protected bool
}

// Spec is a minimal OpenAPI v3 document.
type Spec struct {
	OpenAPI    string               `json:"openapi" yaml:"openapi"`
	Info       Info                 `json:"info" yaml:"info"`
	Paths      map[string]*PathItem `json:"paths" yaml:"paths"`
	Components *Components          `json:"components,omitempty" yaml:"components,omitempty"`
}

// Info contains API metadata.
type Info struct {
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version" yaml:"version"`
}

// PathItem groups operations by HTTP method.
type PathItem struct {
	Get    *Operation `json:"get,omitempty" yaml:"get,omitempty"`
	Post   *Operation `json:"post,omitempty" yaml:"post,omitempty"`
	Put    *Operation `json:"put,omitempty" yaml:"put,omitempty"`
	Delete *Operation `json:"delete,omitempty" yaml:"delete,omitempty"`
	Patch  *Operation `json:"patch,omitempty" yaml:"patch,omitempty"`
}

// Operation contains operation metadata.
type Operation struct {
	OperationID string                `json:"operationId" yaml:"operationId"`
	Summary     string                `json:"summary" yaml:"summary"`
	Tags        []string              `json:"tags,omitempty" yaml:"tags,omitempty"`
	Parameters  []Parameter           `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody          `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]*Response  `json:"responses" yaml:"responses"`
	Security    []map[string][]string `json:"security,omitempty" yaml:"security,omitempty"`
}

// Parameter describes one path or query parameter.
type Parameter struct {
	Name        string `json:"name" yaml:"name"`
	In          string `json:"in" yaml:"in"`
	Required    bool   `json:"required" yaml:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Schema      Schema `json:"schema" yaml:"schema"`
}

// Schema is the subset of JSON schema used here.
type Schema struct {
	Type string `json:"type" yaml:"type"`
}

// RequestBody describes a JSON request body.
type RequestBody struct {
	Required bool                 `json:"required" yaml:"required"`
	Content  map[string]MediaType `json:"content" yaml:"content"`
}

// MediaType wraps the schema of one content type.
type MediaType struct {
	Schema Schema `json:"schema" yaml:"schema"`
}

// Response describes an operation response.
type Response struct {
	Description string `json:"description" yaml:"description"`
}

// Components holds the security scheme for bearer tokens.
type Components struct {
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes" yaml:"securitySchemes"`
}

// SecurityScheme describes HTTP bearer authentication.
type SecurityScheme struct {
	Type         string `json:"type" yaml:"type"`
	Scheme       string `json:"scheme" yaml:"scheme"`
	BearerFormat string `json:"bearerFormat,omitempty" yaml:"bearerFormat,omitempty"`
}

const bearerScheme = "bearerAuth"

// CollectRoutes runs register against a recording router and returns the routes in
// declaration order.
func CollectRoutes(register func(router.Router)) []Route {
	if register == nil {
		return nil
	}
	c := &collector{routes: new([]Route)}
	register(c)
	return *c.routes
}

// BuildSpec builds a document from routes. Duplicate method and path pairs keep the first.
func BuildSpec(title, version string, routes []Route) *Spec {
	spec := &Spec{
		OpenAPI: "3.0.3",
		Info:    Info{Title: strings.TrimSpace(title), Version: strings.TrimSpace(version)},
		Paths:   make(map[string]*PathItem),
	}
	if spec.Info.Title == "" {
		spec.Info.Title = "API"
	}
	if spec.Info.Version == "" {
		spec.Info.Version = "0.0.0"
	}

	for _, route := range normalize(routes) {
		path := toOpenAPIPath(route.Path)
		item := spec.Paths[path]
		if item == nil {
			item = &PathItem{}
			spec.Paths[path] = item
		}
		op := buildOperation(route.Method, path)
		if route.Protected {
			op.Security = []map[string][]string{{bearerScheme: {}}}
			op.Responses["401"] = &Response{Description: "Unauthorized"}
			if spec.Components == nil {
				spec.Components = &Components{SecuritySchemes: map[string]SecurityScheme{
					bearerScheme: {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
				}}
			}
		}

		switch route.Method {
		case http.MethodGet:
			item.Get = op
		case http.MethodPost:
			item.Post = op
		case http.MethodPut:
			item.Put = op
		case http.MethodDelete:
			item.Delete = op
		case http.MethodPatch:
			item.Patch = op
		}
	}
	return spec
}

// Marshal encodes spec as JSON, or YAML when format is "yaml" or "yml".
func Marshal(spec *Spec, format string) ([]byte, error) {
	if spec == nil {
		return nil, fmt.Errorf("openapi spec is nil")
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		return yaml.Marshal(spec)
	default:
		return json.MarshalIndent(spec, "", "  ")
	}
}

// Validate loads spec the way a client generator would and checks it against the OpenAPI 3 rules.
func Validate(ctx context.Context, spec *Spec) error {
	data, err := Marshal(spec, "json")
	if err != nil {
		return err
	}
	doc, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		return fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("validate openapi spec: %w", err)
	}
	return nil
}

// WriteSpec writes spec to path, choosing the format by file extension.
func WriteSpec(path string, spec *Spec) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	data, err := Marshal(spec, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return fmt.Errorf("marshal openapi spec: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write openapi spec: %w", err)
	}
	return nil
}

// Handler serves spec as JSON, or YAML when the path ends in .yaml.
func Handler(spec *Spec) router.HandlerFunc {
	jsonBody, jsonErr := Marshal(spec, "json")
	yamlBody, yamlErr := Marshal(spec, "yaml")
	return func(c router.Context) error {
		body, err, contentType := jsonBody, jsonErr, "application/json"
		if strings.HasSuffix(c.Request().URL.Path, ".yaml") {
			body, err, contentType = yamlBody, yamlErr, "application/yaml"
		}
		if err != nil {
			return err
		}
		c.Response().Header().Set("Content-Type", contentType)
		c.Response().Header().Set("Cache-Control", "public, max-age=300")
		c.Response().WriteHeader(http.StatusOK)
		_, err = c.Response().Write(body)
		return err
	}
}

func buildOperation(method, path string) *Operation {
	resource, action := describe(method, path)
	op := &Operation{
		OperationID: operationID(method, path),
		Summary:     action,
		Tags:        []string{resource},
		Parameters:  pathParameters(path),
		Responses:   map[string]*Response{},
	}

	switch {
	case method == http.MethodGet && isCollection(path):
		op.Parameters = append(op.Parameters,
			Parameter{Name: "page", In: "query", Description: "1-based page number", Schema: Schema{Type: "integer"}},
			Parameter{Name: "limit", In: "query", Description: "page size, at most 100", Schema: Schema{Type: "integer"}},
		)
		fallthrough
	case method == http.MethodDelete && isCollection(path),
		method == http.MethodGet && (strings.HasSuffix(path, "/all") || strings.HasSuffix(path, "/count")):
		op.Parameters = append(op.Parameters, Parameter{
			Name: "filter", In: "query", Description: "extended JSON query document", Schema: Schema{Type: "string"},
		})
	}

	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		op.RequestBody = &RequestBody{
			Required: true,
			Content:  map[string]MediaType{"application/json": {Schema: Schema{Type: "object"}}},
		}
		op.Responses["400"] = &Response{Description: "Validation failed"}
	}

	switch {
	case method == http.MethodPost && isCollection(path):
		op.Responses["201"] = &Response{Description: "Created"}
	case method == http.MethodDelete && !isCollection(path):
		op.Responses["204"] = &Response{Description: "No Content"}
	default:
		op.Responses["200"] = &Response{Description: "OK"}
	}
	if len(pathParameters(path)) > 0 {
		op.Responses["404"] = &Response{Description: "Not Found"}
	}
	return op
}

// describe names the resource and a summary for a path shaped like /api/{resource}/...
func describe(method, path string) (string, string) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) > 0 && segments[0] == "api" {
		segments = segments[1:]
	}
	if len(segments) == 0 || segments[0] == "" {
		return "default", method + " " + path
	}
	resource := segments[0]
	rest := segments[1:]

	switch {
	case len(rest) == 0 && method == http.MethodGet:
		return resource, "List " + resource
	case len(rest) == 0 && method == http.MethodPost:
		return resource, "Create " + resource
	case len(rest) == 0 && method == http.MethodDelete:
		return resource, "Delete " + resource + " matching a filter"
	case len(rest) == 1 && rest[0] == "all":
		return resource, "All " + resource
	case len(rest) == 1 && rest[0] == "count":
		return resource, "Count " + resource
	case len(rest) == 1 && rest[0] == "aggregate":
		return resource, "Aggregate " + resource
	case len(rest) == 1 && strings.HasPrefix(rest[0], "{"):
		switch method {
		case http.MethodGet:
			return resource, "Get " + resource + " by id"
		case http.MethodDelete:
			return resource, "Delete " + resource + " by id"
		default:
			return resource, "Update " + resource + " by id"
		}
	}
	return resource, method + " " + path
}

func isCollection(path string) bool {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	return len(segments) == 2 && segments[0] == "api"
}

func normalize(routes []Route) []Route {
	seen := make(map[string]struct{}, len(routes))
	out := make([]Route, 0, len(routes))
	for _, route := range routes {
		route.Method = strings.ToUpper(strings.TrimSpace(route.Method))
		route.Path = strings.TrimSpace(route.Path)
		if route.Path == "" {
			continue
		}
		switch route.Method {
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		default:
			continue
		}
		key := route.Method + " " + route.Path
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, route)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path == out[j].Path {
			return out[i].Method < out[j].Method
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func toOpenAPIPath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, ":") && len(part) > 1 {
			parts[i] = "{" + part[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}

func pathParameters(path string) []Parameter {
	var params []Parameter
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if len(part) > 2 && strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			params = append(params, Parameter{
				Name:     part[1 : len(part)-1],
				In:       "path",
				Required: true,
				Schema:   Schema{Type: "string"},
			})
		}
	}
	return params
}

func operationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" || part == "api" {
			continue
		}
		if strings.HasPrefix(part, "{") {
			part = "by_" + strings.Trim(part, "{}")
		}
		for _, word := range strings.FieldsFunc(part, func(r rune) bool { return r == '_' || r == '-' || r == '.' }) {
			b.WriteString(strings.ToUpper(word[:1]) + strings.ToLower(word[1:]))
		}
	}
	if b.Len() == len(method) {
		b.WriteString("Root")
	}
	return b.String()
}
