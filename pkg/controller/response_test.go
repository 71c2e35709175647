package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ponzu-dev/ponzu-back/pkg/middleware"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

// mockResponseWriter implements router.ResponseWriter for testing
type mockResponseWriter struct {
	statusCode int
	written    bool
	header     http.Header
}

func newMockResponseWriter() *mockResponseWriter {
	return &mockResponseWriter{header: make(http.Header), statusCode: http.StatusOK}
}

func (m *mockResponseWriter) Header() http.Header { return m.header }

func (m *mockResponseWriter) Write([]byte) (int, error) {
	m.written = true
	return 0, nil
}

func (m *mockResponseWriter) WriteHeader(statusCode int) {
	m.statusCode = statusCode
	m.written = true
}

func (m *mockResponseWriter) Status() int   { return m.statusCode }
func (m *mockResponseWriter) Written() bool { return m.written }

// mockContext records the last response instead of encoding it.
type mockContext struct {
	request      *http.Request
	response     *mockResponseWriter
	responseCode int
	responseBody interface{}
}

func newMockContext(requestID string) *mockContext {
	req := httptest.NewRequest(http.MethodGet, "/api/anime", nil)
	if requestID != "" {
		req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, requestID))
	}
	return &mockContext{request: req, response: newMockResponseWriter()}
}

func (m *mockContext) Request() *http.Request            { return m.request }
func (m *mockContext) SetRequest(r *http.Request)        { m.request = r }
func (m *mockContext) Response() router.ResponseWriter   { return m.response }
func (m *mockContext) SetResponse(router.ResponseWriter) {}
func (m *mockContext) Param(string) string               { return "" }
func (m *mockContext) Query(string) string               { return "" }
func (m *mockContext) Bind(interface{}) error            { return nil }
func (m *mockContext) Get(string) interface{}            { return nil }
func (m *mockContext) Set(string, interface{})           {}

func (m *mockContext) JSON(code int, v interface{}) error {
	m.responseCode = code
	m.responseBody = v
	return nil
}

func (m *mockContext) String(code int, s string) error {
	m.responseCode = code
	m.responseBody = s
	return nil
}

func TestSuccessAndCreated(t *testing.T) {
	tests := []struct {
		name      string
		send      func(router.Context, interface{}) error
		requestID string
		wantCode  int
	}{
		{name: "success", send: Success, requestID: "req-123", wantCode: http.StatusOK},
		{name: "success without request id", send: Success, wantCode: http.StatusOK},
		{name: "created", send: Created, requestID: "req-456", wantCode: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newMockContext(tt.requestID)
			data := map[string]string{"title": "Cowboy Bebop"}

			if err := tt.send(ctx, data); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ctx.responseCode != tt.wantCode {
				t.Errorf("status = %d, want %d", ctx.responseCode, tt.wantCode)
			}
			body, ok := ctx.responseBody.(SuccessResponse)
			if !ok {
				t.Fatalf("body is %T, want SuccessResponse", ctx.responseBody)
			}
			if body.RequestID != tt.requestID {
				t.Errorf("request_id = %q, want %q", body.RequestID, tt.requestID)
			}
			if got := body.Data.(map[string]string)["title"]; got != "Cowboy Bebop" {
				t.Errorf("data not wrapped, got %v", body.Data)
			}
		})
	}
}

func TestNoContent(t *testing.T) {
	ctx := newMockContext("")
	if err := NoContent(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.responseCode != http.StatusNoContent || ctx.responseBody != nil {
		t.Errorf("expected bare 204, got %d %v", ctx.responseCode, ctx.responseBody)
	}
}

func TestError(t *testing.T) {
	ctx := newMockContext("req-789")
	if err := Error(ctx, NewNotFoundError("anime not found")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, ok := ctx.responseBody.(ErrorResponse)
	if !ok {
		t.Fatalf("body is %T, want ErrorResponse", ctx.responseBody)
	}
	if ctx.responseCode != http.StatusNotFound || body.Code != "resource.not_found" || body.RequestID != "req-789" {
		t.Errorf("unexpected response %d %+v", ctx.responseCode, body)
	}

	ctx = newMockContext("")
	_ = Error(ctx, errors.New("boom"))
	if ctx.responseCode != http.StatusInternalServerError {
		t.Errorf("plain errors map to 500, got %d", ctx.responseCode)
	}
}
