// Package gorilla serves router.Router routes through gorilla/mux.
package gorilla

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// muxState is shared by a GorillaRouter and every group made from it.
type muxState struct {
	mux       *mux.Router
	mu        sync.RWMutex
	preflight map[string]struct{}
	notFound  router.HandlerFunc
	root      *GorillaRouter
}

// GorillaRouter implements router.Router on gorilla/mux. Groups only prefix paths; every
// route is registered on the one mux.Router so matching order is registration order.
type GorillaRouter struct {
	*muxState
	prefix     string
	middleware []router.MiddlewareFunc
}

// NewRouter creates a GorillaRouter whose unmatched requests go to router.DefaultNotFound.
func NewRouter() *GorillaRouter {
	s := &muxState{
		mux:       mux.NewRouter(),
		preflight: make(map[string]struct{}),
		notFound:  router.DefaultNotFound,
	}
	s.root = &GorillaRouter{muxState: s}
	s.mux.NotFoundHandler = http.HandlerFunc(s.serveNotFound)
	return s.root
}

// GET registers a GET route.
func (r *GorillaRouter) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodGet, path, handler, middleware)
}

// POST registers a POST route.
func (r *GorillaRouter) POST(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPost, path, handler, middleware)
}

// PUT registers a PUT route.
func (r *GorillaRouter) PUT(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPut, path, handler, middleware)
}

// DELETE registers a DELETE route.
func (r *GorillaRouter) DELETE(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodDelete, path, handler, middleware)
}

// PATCH registers a PATCH route.
func (r *GorillaRouter) PATCH(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPatch, path, handler, middleware)
}

// Group returns a router for prefix. Its routes run the middleware installed on r so far,
// then middleware.
func (r *GorillaRouter) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	return &GorillaRouter{
		muxState:   r.muxState,
		prefix:     r.prefix + prefix,
		middleware: append(r.snapshot(), middleware...),
	}
}

// Use adds middleware for routes registered on r afterwards. On the root router it also
// wraps the not-found handler.
func (r *GorillaRouter) Use(middleware ...router.MiddlewareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, middleware...)
}

// NotFound sets the handler for unmatched requests.
func (r *GorillaRouter) NotFound(handler router.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notFound = handler
}

func (r *GorillaRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (s *muxState) serveNotFound(w http.ResponseWriter, req *http.Request) {
	s.mu.RLock()
	handler := router.Chain(s.notFound, s.root.middleware...)
	s.mu.RUnlock()
	router.Serve(newContext(w, req), handler)
}

func (r *GorillaRouter) snapshot() []router.MiddlewareFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]router.MiddlewareFunc(nil), r.middleware...)
}

func (r *GorillaRouter) handle(method, path string, h router.HandlerFunc, route []router.MiddlewareFunc) {
	base := r.snapshot()
	pattern := muxPattern(r.prefix + path)
	handler := router.Chain(router.Chain(h, route...), base...)
	r.mux.HandleFunc(pattern, func(w http.ResponseWriter, req *http.Request) {
		router.Serve(newContext(w, req), handler)
	}).Methods(method)

	r.mu.Lock()
	_, seen := r.preflight[pattern]
	r.preflight[pattern] = struct{}{}
	r.mu.Unlock()
	if seen {
		return
	}
	preflight := router.Chain(router.Preflight, base...)
	r.mux.HandleFunc(pattern, func(w http.ResponseWriter, req *http.Request) {
		router.Serve(newContext(w, req), preflight)
	}).Methods(http.MethodOptions)
}

// muxPattern rewrites :name segments into mux {name} variables. An empty path is the root.
func muxPattern(path string) string {
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			segments[i] = "{" + name + "}"
		}
	}
	return strings.Join(segments, "/")
}

// gorillaContext is the router.Context for one request. Path parameters come from
// mux.Vars; Set and Get use a per-request map.
type gorillaContext struct {
	req    *http.Request
	w      router.ResponseWriter
	mu     sync.RWMutex
	values map[string]interface{}
}

func newContext(w http.ResponseWriter, req *http.Request) *gorillaContext {
	return &gorillaContext{req: req, w: router.NewStatusWriter(w)}
}

func (c *gorillaContext) Request() *http.Request { return c.req }

func (c *gorillaContext) SetRequest(req *http.Request) { c.req = req }

func (c *gorillaContext) Response() router.ResponseWriter { return c.w }

func (c *gorillaContext) SetResponse(w router.ResponseWriter) { c.w = w }

func (c *gorillaContext) Param(name string) string { return mux.Vars(c.req)[name] }

func (c *gorillaContext) Query(name string) string { return c.req.URL.Query().Get(name) }

func (c *gorillaContext) Bind(v interface{}) error { return router.DecodeJSON(c.req, v) }

func (c *gorillaContext) JSON(code int, v interface{}) error { return router.WriteJSON(c.w, code, v) }

func (c *gorillaContext) String(code int, s string) error { return router.WriteString(c.w, code, s) }

func (c *gorillaContext) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

func (c *gorillaContext) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string]interface{})
	}
	c.values[key] = value
}
