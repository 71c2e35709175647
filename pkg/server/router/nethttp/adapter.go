// Package nethttp provides a net/http-based implementation of the router.Router interface.
package nethttp

import (
	"net/http"
	"strings"
	"sync"

	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// NetHTTPRouter implements router.Router using net/http and a segment matcher.
// Routes are tried in registration order, so static segments must be registered
// before parameters at the same position.
type NetHTTPRouter struct {
	routes            *[]route
	middleware        []router.MiddlewareFunc
	prefix            string
	mu                *sync.RWMutex
	optionsRegistered *map[string]struct{}
	notFound          *router.HandlerFunc
}

type route struct {
	method     string
	pattern    string
	handler    router.HandlerFunc
	middleware []router.MiddlewareFunc
}

// NewRouter creates a new NetHTTPRouter.
func NewRouter() *NetHTTPRouter {
	routes := make([]route, 0)
	optionsRegistered := make(map[string]struct{})
	notFound := router.HandlerFunc(router.DefaultNotFound)
	return &NetHTTPRouter{
		routes:            &routes,
		mu:                &sync.RWMutex{},
		optionsRegistered: &optionsRegistered,
		notFound:          &notFound,
	}
}

// GET registers a GET route.
func (r *NetHTTPRouter) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.addRoute(http.MethodGet, path, handler, middleware)
}

// POST registers a POST route.
func (r *NetHTTPRouter) POST(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.addRoute(http.MethodPost, path, handler, middleware)
}

// PUT registers a PUT route.
func (r *NetHTTPRouter) PUT(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.addRoute(http.MethodPut, path, handler, middleware)
}

// DELETE registers a DELETE route.
func (r *NetHTTPRouter) DELETE(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.addRoute(http.MethodDelete, path, handler, middleware)
}

// PATCH registers a PATCH route.
func (r *NetHTTPRouter) PATCH(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.addRoute(http.MethodPatch, path, handler, middleware)
}

// Group creates a route group with common prefix and middleware.
func (r *NetHTTPRouter) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	return &NetHTTPRouter{
		routes:            r.routes,
		middleware:        append(append([]router.MiddlewareFunc(nil), r.middleware...), middleware...),
		prefix:            r.prefix + prefix,
		mu:                r.mu,
		optionsRegistered: r.optionsRegistered,
		notFound:          r.notFound,
	}
}

// Use applies middleware to all routes.
func (r *NetHTTPRouter) Use(middleware ...router.MiddlewareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, middleware...)
}

// NotFound sets the handler for unmatched requests.
func (r *NetHTTPRouter) NotFound(handler router.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.notFound = handler
}

// ServeHTTP implements http.Handler.
func (r *NetHTTPRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rt := range *r.routes {
		if rt.method != req.Method {
			continue
		}
		params, ok := matchRoute(rt.pattern, req.URL.Path)
		if !ok {
			continue
		}
		router.Serve(newContext(w, req, params), router.Chain(rt.handler, rt.middleware...))
		return
	}

	router.Serve(newContext(w, req, nil), router.Chain(*r.notFound, r.middleware...))
}

func (r *NetHTTPRouter) addRoute(method, path string, handler router.HandlerFunc, middleware []router.MiddlewareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fullPath := r.prefix + path
	baseMiddleware := append([]router.MiddlewareFunc{}, r.middleware...)
	allMiddleware := append([]router.MiddlewareFunc{}, baseMiddleware...)
	allMiddleware = append(allMiddleware, middleware...)

	*r.routes = append(*r.routes, route{
		method:     method,
		pattern:    fullPath,
		handler:    handler,
		middleware: allMiddleware,
	})

	r.ensureOptionsRouteLocked(fullPath, baseMiddleware)
}

func (r *NetHTTPRouter) ensureOptionsRouteLocked(path string, middleware []router.MiddlewareFunc) {
	if _, exists := (*r.optionsRegistered)[path]; exists {
		return
	}
	(*r.optionsRegistered)[path] = struct{}{}

	*r.routes = append(*r.routes, route{
		method:     http.MethodOptions,
		pattern:    path,
		handler:    router.Preflight,
		middleware: middleware,
	})
}

// matchRoute checks if a pattern matches a path and extracts parameters.
// Supports patterns like /anime/:id
func matchRoute(pattern, path string) (map[string]string, bool) {
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")

	if len(patternParts) != len(pathParts) {
		return nil, false
	}

	params := make(map[string]string)
	for i, part := range patternParts {
		if strings.HasPrefix(part, ":") {
			if pathParts[i] == "" {
				return nil, false
			}
			params[part[1:]] = pathParts[i]
		} else if part != pathParts[i] {
			return nil, false
		}
	}

	return params, true
}

// netHTTPContext implements router.Context.
type netHTTPContext struct {
	request  *http.Request
	response router.ResponseWriter
	params   map[string]string
	store    map[string]interface{}
	mu       sync.RWMutex
}

func newContext(w http.ResponseWriter, r *http.Request, params map[string]string) *netHTTPContext {
	return &netHTTPContext{
		request:  r,
		response: router.NewStatusWriter(w),
		params:   params,
		store:    make(map[string]interface{}),
	}
}

func (c *netHTTPContext) Request() *http.Request {
	return c.request
}

func (c *netHTTPContext) SetRequest(r *http.Request) {
	c.request = r
}

func (c *netHTTPContext) Response() router.ResponseWriter {
	return c.response
}

func (c *netHTTPContext) SetResponse(w router.ResponseWriter) {
	c.response = w
}

func (c *netHTTPContext) Param(name string) string {
	return c.params[name]
}

func (c *netHTTPContext) Query(name string) string {
	return c.request.URL.Query().Get(name)
}

func (c *netHTTPContext) Bind(v interface{}) error {
	return router.DecodeJSON(c.request, v)
}

func (c *netHTTPContext) JSON(code int, v interface{}) error {
	return router.WriteJSON(c.response, code, v)
}

func (c *netHTTPContext) String(code int, s string) error {
	return router.WriteString(c.response, code, s)
}

func (c *netHTTPContext) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store[key]
}

func (c *netHTTPContext) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
}
