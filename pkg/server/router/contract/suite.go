// Package contract holds the conformance suite every router adapter must pass.
package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// TestRouterContract runs the shared router conformance suite.
func TestRouterContract(t *testing.T, createRouter func() router.Router) {
	t.Helper()

	t.Run("http_methods", func(t *testing.T) {
		tests := []struct {
			method string
			add    func(r router.Router, h router.HandlerFunc)
		}{
			{http.MethodGet, func(r router.Router, h router.HandlerFunc) { r.GET("/m", h) }},
			{http.MethodPost, func(r router.Router, h router.HandlerFunc) { r.POST("/m", h) }},
			{http.MethodPut, func(r router.Router, h router.HandlerFunc) { r.PUT("/m", h) }},
			{http.MethodDelete, func(r router.Router, h router.HandlerFunc) { r.DELETE("/m", h) }},
			{http.MethodPatch, func(r router.Router, h router.HandlerFunc) { r.PATCH("/m", h) }},
		}

		for _, tt := range tests {
			t.Run(tt.method, func(t *testing.T) {
				r := createRouter()
				tt.add(r, func(c router.Context) error {
					return c.String(http.StatusOK, tt.method)
				})

				res := performRequest(r, tt.method, "/m", nil, "")
				if res.Code != http.StatusOK {
					t.Fatalf("expected 200, got %d", res.Code)
				}
				if res.Body.String() != tt.method {
					t.Fatalf("expected body %q, got %q", tt.method, res.Body.String())
				}
			})
		}
	})

	t.Run("resource_group", func(t *testing.T) {
		r := createRouter()
		anime := r.Group("/api").Group("/anime")
		anime.GET("", func(c router.Context) error { return c.String(http.StatusOK, "list") })
		anime.GET("/all", func(c router.Context) error { return c.String(http.StatusOK, "all") })
		anime.GET("/:id", func(c router.Context) error { return c.String(http.StatusOK, "id="+c.Param("id")) })
		anime.POST("/aggregate", func(c router.Context) error { return c.String(http.StatusOK, "aggregate") })
		anime.DELETE("/:id", func(c router.Context) error { return c.JSON(http.StatusNoContent, nil) })

		cases := []struct {
			method, path, body string
			status             int
		}{
			{http.MethodGet, "/api/anime", "list", http.StatusOK},
			{http.MethodGet, "/api/anime/all", "all", http.StatusOK},
			{http.MethodGet, "/api/anime/42", "id=42", http.StatusOK},
			{http.MethodPost, "/api/anime/aggregate", "aggregate", http.StatusOK},
			{http.MethodDelete, "/api/anime/42", "", http.StatusNoContent},
		}
		for _, c := range cases {
			res := performRequest(r, c.method, c.path, nil, "")
			if res.Code != c.status {
				t.Fatalf("%s %s: expected %d, got %d", c.method, c.path, c.status, res.Code)
			}
			if res.Body.String() != c.body {
				t.Fatalf("%s %s: expected body %q, got %q", c.method, c.path, c.body, res.Body.String())
			}
		}
	})

	t.Run("group_middleware", func(t *testing.T) {
		r := createRouter()
		secured := r.Group("/secured", func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				c.Set("group_mw", "on")
				return next(c)
			}
		})
		secured.GET("/hello", func(c router.Context) error {
			return c.String(http.StatusOK, c.Get("group_mw").(string))
		})

		res := performRequest(r, http.MethodGet, "/secured/hello", nil, "")
		if res.Code != http.StatusOK || res.Body.String() != "on" {
			t.Fatalf("expected 200 on, got %d %q", res.Code, res.Body.String())
		}
	})

	t.Run("middleware_order", func(t *testing.T) {
		r := createRouter()
		var order []string

		r.Use(func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				order = append(order, "global")
				return next(c)
			}
		})
		r.GET("/m", func(c router.Context) error {
			order = append(order, "handler")
			return c.String(http.StatusOK, "ok")
		}, func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				order = append(order, "route")
				return next(c)
			}
		})

		performRequest(r, http.MethodGet, "/m", nil, "")
		if strings.Join(order, ",") != "global,route,handler" {
			t.Fatalf("unexpected middleware order: %v", order)
		}

		r = createRouter()
		called := false
		r.GET("/stop", func(c router.Context) error {
			called = true
			return nil
		}, func(router.HandlerFunc) router.HandlerFunc {
			return func(router.Context) error { return errors.New("stop") }
		})

		res := performRequest(r, http.MethodGet, "/stop", nil, "")
		if called {
			t.Fatal("handler should not be called when middleware returns error")
		}
		if res.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", res.Code)
		}
		if strings.Contains(res.Body.String(), "stop") {
			t.Fatalf("error text leaked into the response: %q", res.Body.String())
		}
	})

	t.Run("group_isolation", func(t *testing.T) {
		r := createRouter()
		tag := func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				c.Response().Header().Set("X-Group", "yes")
				return next(c)
			}
		}
		g := r.Group("/a", tag)
		g.GET("/x", func(c router.Context) error { return c.String(http.StatusOK, "x") })
		r.GET("/b", func(c router.Context) error { return c.String(http.StatusOK, "b") })

		if res := performRequest(r, http.MethodGet, "/a/x", nil, ""); res.Header().Get("X-Group") != "yes" {
			t.Fatal("group middleware must run for group routes")
		}
		if res := performRequest(r, http.MethodGet, "/b", nil, ""); res.Header().Get("X-Group") != "" {
			t.Fatal("group middleware must not run outside the group")
		}
		res := performRequest(r, http.MethodOptions, "/a/x", nil, "")
		if res.Code != http.StatusNoContent || res.Header().Get("X-Group") != "yes" {
			t.Fatalf("expected preflight 204 behind group middleware, got %d", res.Code)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		r := createRouter()
		r.GET("/known", func(c router.Context) error { return c.String(http.StatusOK, "ok") })

		res := performRequest(r, http.MethodGet, "/unknown", nil, "")
		if res.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", res.Code)
		}
		var body map[string]interface{}
		if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
			t.Fatalf("expected JSON body, got %q", res.Body.String())
		}
		if body["error"] != "Not Found" || body["status"] != float64(404) {
			t.Fatalf("unexpected body: %v", body)
		}

		r = createRouter()
		r.Use(func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				c.Response().Header().Set("X-Global", "yes")
				return next(c)
			}
		})
		r.NotFound(func(c router.Context) error { return c.String(http.StatusNotFound, "custom") })
		r.GET("/known", func(c router.Context) error { return c.String(http.StatusOK, "ok") })

		res = performRequest(r, http.MethodGet, "/missing/path", nil, "")
		if res.Code != http.StatusNotFound || res.Body.String() != "custom" {
			t.Fatalf("expected custom 404, got %d %q", res.Code, res.Body.String())
		}
		if res.Header().Get("X-Global") != "yes" {
			t.Fatal("global middleware must run for unmatched requests")
		}
	})

	t.Run("query_params", func(t *testing.T) {
		r := createRouter()
		r.GET("/q", func(c router.Context) error { return c.String(http.StatusOK, c.Query("page")) })

		if res := performRequest(r, http.MethodGet, "/q?page=2", nil, ""); res.Body.String() != "2" {
			t.Fatalf("expected 2, got %q", res.Body.String())
		}
		if res := performRequest(r, http.MethodGet, "/q", nil, ""); res.Body.String() != "" {
			t.Fatalf("expected empty query value, got %q", res.Body.String())
		}
	})

	t.Run("bind", func(t *testing.T) {
		type in struct {
			Title string `json:"title"`
		}

		r := createRouter()
		r.POST("/bind", func(c router.Context) error {
			var payload in
			if err := c.Bind(&payload); err != nil {
				return c.String(http.StatusBadRequest, "bind-error")
			}
			return c.String(http.StatusOK, payload.Title)
		})

		body, _ := json.Marshal(in{Title: "Planetes"})
		if res := performRequest(r, http.MethodPost, "/bind", bytes.NewReader(body), "application/json"); res.Body.String() != "Planetes" {
			t.Fatalf("expected Planetes, got %q", res.Body.String())
		}
		if res := performRequest(r, http.MethodPost, "/bind", strings.NewReader("{"), "application/json"); res.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 invalid json, got %d", res.Code)
		}
		if res := performRequest(r, http.MethodPost, "/bind", nil, "application/json"); res.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 empty body, got %d", res.Code)
		}
		if res := performRequest(r, http.MethodPost, "/bind", strings.NewReader("title=x"), "text/plain"); res.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 unsupported content-type, got %d", res.Code)
		}
	})

	t.Run("responses", func(t *testing.T) {
		r := createRouter()
		r.GET("/json", func(c router.Context) error {
			return c.JSON(http.StatusCreated, map[string]string{"x": "y"})
		})

		res := performRequest(r, http.MethodGet, "/json", nil, "")
		if res.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", res.Code)
		}
		if !strings.Contains(res.Header().Get("Content-Type"), "application/json") {
			t.Fatalf("expected json content-type, got %q", res.Header().Get("Content-Type"))
		}
		if strings.TrimSpace(res.Body.String()) != `{"x":"y"}` {
			t.Fatalf("unexpected body %q", res.Body.String())
		}
	})

	t.Run("error_after_write", func(t *testing.T) {
		r := createRouter()
		r.GET("/err", func(c router.Context) error {
			if err := c.String(http.StatusBadRequest, "bad"); err != nil {
				return err
			}
			return errors.New("ignored")
		})
		res := performRequest(r, http.MethodGet, "/err", nil, "")
		if res.Code != http.StatusBadRequest || res.Body.String() != "bad" {
			t.Fatalf("expected 400 bad, got %d %q", res.Code, res.Body.String())
		}
	})

	t.Run("response_writer", func(t *testing.T) {
		r := createRouter()
		r.GET("/rw", func(c router.Context) error {
			rw := c.Response()
			if rw.Written() {
				t.Fatal("Written must be false before writes")
			}
			rw.WriteHeader(http.StatusAccepted)
			if !rw.Written() || rw.Status() != http.StatusAccepted {
				t.Fatalf("expected written 202, got %v %d", rw.Written(), rw.Status())
			}
			return nil
		})
		if res := performRequest(r, http.MethodGet, "/rw", nil, ""); res.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", res.Code)
		}
	})
}

func performRequest(r router.Router, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	var testBody io.Reader = http.NoBody
	if body != nil {
		testBody = body
	}
	req := httptest.NewRequest(method, path, testBody)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
