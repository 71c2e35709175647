package openapi

import (
	"net/http"
	"strings"

	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// collector is a router.Router that records registrations instead of serving them.
type collector struct {
	prefix    string
	protected bool
	routes    *[]Route
}

func (r *collector) GET(path string, _ router.HandlerFunc, mw ...router.MiddlewareFunc) {
	r.add(http.MethodGet, path, mw)
}

func (r *collector) POST(path string, _ router.HandlerFunc, mw ...router.MiddlewareFunc) {
	r.add(http.MethodPost, path, mw)
}

func (r *collector) PUT(path string, _ router.HandlerFunc, mw ...router.MiddlewareFunc) {
	r.add(http.MethodPut, path, mw)
}

func (r *collector) DELETE(path string, _ router.HandlerFunc, mw ...router.MiddlewareFunc) {
	r.add(http.MethodDelete, path, mw)
}

func (r *collector) PATCH(path string, _ router.HandlerFunc, mw ...router.MiddlewareFunc) {
	r.add(http.MethodPatch, path, mw)
}

func (r *collector) Group(prefix string, mw ...router.MiddlewareFunc) router.Router {
	return &collector{
		prefix:    joinPaths(r.prefix, prefix),
		protected: r.protected || len(mw) > 0,
		routes:    r.routes,
	}
}

func (r *collector) Use(...router.MiddlewareFunc)                 {}
func (r *collector) NotFound(router.HandlerFunc)                  {}
func (r *collector) ServeHTTP(http.ResponseWriter, *http.Request) {}

func (r *collector) add(method, path string, mw []router.MiddlewareFunc) {
	*r.routes = append(*r.routes, Route{
		Method:    method,
		Path:      joinPaths(r.prefix, path),
		Protected: r.protected || len(mw) > 0,
	})
}

func joinPaths(prefix, path string) string {
	joined := strings.TrimSuffix(strings.TrimSpace(prefix), "/") + "/" + strings.TrimPrefix(strings.TrimSpace(path), "/")
	joined = strings.TrimSuffix(joined, "/")
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return joined
}
