// Package gin serves router.Router routes through a gin engine.
package gin

import (
	"net/http"
	"strings"
	"sync"

	ginpkg "github.com/gin-gonic/gin"

	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// engineState is shared by a GinRouter and every group made from it.
type engineState struct {
	engine    *ginpkg.Engine
	mu        sync.RWMutex
	preflight map[string]struct{}
	notFound  router.HandlerFunc
	root      *GinRouter
}

// GinRouter implements router.Router on gin-gonic/gin. Gin runs in release mode and none of
// its own middleware is installed.
type GinRouter struct {
	*engineState
	group      *ginpkg.RouterGroup
	middleware []router.MiddlewareFunc
}

// NewRouter creates a GinRouter whose unmatched requests go to router.DefaultNotFound.
func NewRouter() *GinRouter {
	ginpkg.SetMode(ginpkg.ReleaseMode)
	s := &engineState{
		engine:    ginpkg.New(),
		preflight: make(map[string]struct{}),
		notFound:  router.DefaultNotFound,
	}
	s.root = &GinRouter{engineState: s, group: &s.engine.RouterGroup}
	s.engine.NoRoute(s.serveNotFound)
	return s.root
}

func (r *GinRouter) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodGet, path, handler, middleware)
}

func (r *GinRouter) POST(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPost, path, handler, middleware)
}

func (r *GinRouter) PUT(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPut, path, handler, middleware)
}

func (r *GinRouter) DELETE(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodDelete, path, handler, middleware)
}

func (r *GinRouter) PATCH(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPatch, path, handler, middleware)
}

// Group returns a router for prefix. Its routes run the middleware installed on r so far,
// then middleware.
func (r *GinRouter) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	return &GinRouter{
		engineState: r.engineState,
		group:       r.group.Group(prefix),
		middleware:  append(r.snapshot(), middleware...),
	}
}

// Use adds middleware for routes registered on r afterwards. On the root router it also
// wraps the not-found handler.
func (r *GinRouter) Use(middleware ...router.MiddlewareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, middleware...)
}

func (r *GinRouter) NotFound(handler router.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notFound = handler
}

func (r *GinRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

func (s *engineState) serveNotFound(gc *ginpkg.Context) {
	s.mu.RLock()
	handler := router.Chain(s.notFound, s.root.middleware...)
	s.mu.RUnlock()
	router.Serve(newContext(gc), handler)
}

func (r *GinRouter) snapshot() []router.MiddlewareFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]router.MiddlewareFunc(nil), r.middleware...)
}

func (r *GinRouter) handle(method, path string, h router.HandlerFunc, route []router.MiddlewareFunc) {
	base := r.snapshot()
	handler := router.Chain(router.Chain(h, route...), base...)
	r.group.Handle(method, path, func(gc *ginpkg.Context) {
		router.Serve(newContext(gc), handler)
	})

	full := strings.TrimSuffix(r.group.BasePath(), "/") + path
	r.mu.Lock()
	_, seen := r.preflight[full]
	r.preflight[full] = struct{}{}
	r.mu.Unlock()
	if seen {
		return
	}
	// Preflight skips route middleware such as auth but keeps the rest, CORS included.
	preflight := router.Chain(router.Preflight, base...)
	r.group.Handle(http.MethodOptions, path, func(gc *ginpkg.Context) {
		router.Serve(newContext(gc), preflight)
	})
}

// ginContext exposes a gin.Context as router.Context. Values set on it live in the gin
// context, so gin handlers and router handlers see the same keys.
type ginContext struct {
	gc *ginpkg.Context
	w  router.ResponseWriter
}

func newContext(gc *ginpkg.Context) *ginContext {
	return &ginContext{gc: gc, w: router.NewStatusWriter(gc.Writer)}
}

func (c *ginContext) Request() *http.Request { return c.gc.Request }

func (c *ginContext) SetRequest(r *http.Request) { c.gc.Request = r }

func (c *ginContext) Response() router.ResponseWriter { return c.w }

func (c *ginContext) SetResponse(w router.ResponseWriter) { c.w = w }

func (c *ginContext) Param(name string) string { return c.gc.Param(name) }

func (c *ginContext) Query(name string) string { return c.gc.Query(name) }

func (c *ginContext) Bind(v interface{}) error { return router.DecodeJSON(c.gc.Request, v) }

func (c *ginContext) JSON(code int, v interface{}) error { return router.WriteJSON(c.w, code, v) }

func (c *ginContext) String(code int, s string) error { return router.WriteString(c.w, code, s) }

func (c *ginContext) Set(key string, value interface{}) { c.gc.Set(key, value) }

func (c *ginContext) Get(key string) interface{} {
	v, _ := c.gc.Get(key)
	return v
}
