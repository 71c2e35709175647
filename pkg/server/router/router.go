// Package router provides an abstraction layer for HTTP routing.
// It defines interfaces that allow pluggable router implementations (net/http, gin-gonic, gorilla/mux).
package router

import "net/http"

// Router defines the interface for HTTP routing.
//
// Middleware passed to Use applies to routes registered after the call, so global middleware
// must be installed before any route.
type Router interface {
	GET(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	POST(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	PUT(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	DELETE(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	PATCH(path string, handler HandlerFunc, middleware ...MiddlewareFunc)

	// Group creates a route group with common prefix and middleware
	Group(prefix string, middleware ...MiddlewareFunc) Router

	// Use applies middleware to all routes
	Use(middleware ...MiddlewareFunc)

	// NotFound sets the handler for requests no route matches. It runs behind the global middleware.
	NotFound(handler HandlerFunc)

	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// HandlerFunc is the function signature for route handlers.
type HandlerFunc func(Context) error

// MiddlewareFunc wraps a HandlerFunc and returns a new HandlerFunc.
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Context provides access to request and response in a router-agnostic way.
type Context interface {
	Request() *http.Request
	// SetRequest replaces the request, e.g. to attach a derived context.
	SetRequest(r *http.Request)

	Response() ResponseWriter
	// SetResponse replaces the response writer, e.g. to wrap it.
	SetResponse(w ResponseWriter)

	// Param returns a path parameter by name (e.g., /anime/:id)
	Param(name string) string

	// Query returns a query parameter by name (e.g., /anime?page=2)
	Query(name string) string

	// Bind decodes a JSON request body into v
	Bind(v interface{}) error

	JSON(code int, v interface{}) error
	String(code int, s string) error

	Get(key string) interface{}
	Set(key string, value interface{})
}

// ResponseWriter wraps http.ResponseWriter to track response status.
type ResponseWriter interface {
	http.ResponseWriter

	// Status returns the HTTP status code of the response
	Status() int

	// Written returns whether the response has been written
	Written() bool
}

// WrapHandler adapts a plain http.Handler, such as the Prometheus handler, to a HandlerFunc.
func WrapHandler(h http.Handler) HandlerFunc {
	return func(c Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

// Chain applies middleware to h so that middleware[0] runs first.
func Chain(h HandlerFunc, middleware ...MiddlewareFunc) HandlerFunc {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}

// DefaultNotFound answers with a JSON 404 body.
func DefaultNotFound(c Context) error {
	return c.JSON(http.StatusNotFound, map[string]interface{}{
		"error":  http.StatusText(http.StatusNotFound),
		"status": http.StatusNotFound,
	})
}
