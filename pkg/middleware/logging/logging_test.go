package logging

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ponzu-dev/ponzu-back/pkg/middleware/requestid"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware/testutil"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router/nethttp"
)

func newRouter(mock *testutil.MockLogger, cfg Config) *nethttp.NetHTTPRouter {
	r := nethttp.NewRouter()
	r.Use(requestid.RequestID(), WithConfig(mock, cfg))
	r.GET("/anime", func(c router.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	r.GET("/missing", func(c router.Context) error {
		return c.String(http.StatusNotFound, "nope")
	})
	r.GET("/broken", func(c router.Context) error {
		return c.String(http.StatusServiceUnavailable, "down")
	})
	r.GET("/fail", func(c router.Context) error {
		return errors.New("handler exploded")
	})
	r.GET("/slow", func(c router.Context) error {
		time.Sleep(20 * time.Millisecond)
		return c.String(http.StatusOK, "late")
	})
	r.GET("/metrics", func(c router.Context) error {
		return c.String(http.StatusOK, "# metrics")
	})
	return r
}

func do(r http.Handler, target string, mutate func(*http.Request)) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set(requestid.RequestIDHeader, "test-req-123")
	if mutate != nil {
		mutate(req)
	}
	r.ServeHTTP(httptest.NewRecorder(), req)
}

func TestLogging_Levels(t *testing.T) {
	tests := []struct {
		name   string
		target string
		level  string
		msg    string
		status int
	}{
		{name: "success", target: "/anime?page=2", level: "info", msg: "request completed", status: 200},
		{name: "client error", target: "/missing", level: "warn", msg: "request completed", status: 404},
		{name: "server error", target: "/broken", level: "error", msg: "request completed", status: 503},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &testutil.MockLogger{}
			do(newRouter(mock, DefaultConfig()), tt.target, nil)

			entry, ok := mock.Find(tt.level, tt.msg)
			if !ok {
				t.Fatalf("expected %s %q entry, got %+v", tt.level, tt.msg, mock.Entries())
			}
			if entry.Fields[FieldStatus] != tt.status {
				t.Errorf("expected status %d, got %v", tt.status, entry.Fields[FieldStatus])
			}
			if entry.Fields[FieldRequestID] != "test-req-123" {
				t.Errorf("expected request id, got %v", entry.Fields[FieldRequestID])
			}
			if entry.Fields[FieldRemoteAddr] != "192.168.1.1" {
				t.Errorf("expected remote host, got %v", entry.Fields[FieldRemoteAddr])
			}
			if _, ok := entry.Fields[FieldDurationMS]; !ok {
				t.Error("expected duration_ms field")
			}
		})
	}
}

func TestLogging_QueryIsLogged(t *testing.T) {
	mock := &testutil.MockLogger{}
	do(newRouter(mock, DefaultConfig()), "/anime?page=2&limit=5", nil)

	entry, ok := mock.Find("info", "request completed")
	if !ok {
		t.Fatal("expected completion entry")
	}
	if entry.Fields[FieldQuery] != "page=2&limit=5" {
		t.Errorf("expected query to be logged, got %v", entry.Fields[FieldQuery])
	}
}

func TestLogging_HandlerError(t *testing.T) {
	mock := &testutil.MockLogger{}
	do(newRouter(mock, DefaultConfig()), "/fail", nil)

	entry, ok := mock.Find("error", "request failed")
	if !ok {
		t.Fatalf("expected failure entry, got %+v", mock.Entries())
	}
	if entry.Fields[FieldError] != "handler exploded" {
		t.Errorf("expected error field, got %v", entry.Fields[FieldError])
	}
}

func TestLogging_SlowRequest(t *testing.T) {
	mock := &testutil.MockLogger{}
	do(newRouter(mock, Config{SlowThreshold: time.Millisecond}), "/slow", nil)

	if _, ok := mock.Find("warn", "slow request"); !ok {
		t.Fatalf("expected slow request warning, got %+v", mock.Entries())
	}
}

func TestLogging_ExcludedPrefix(t *testing.T) {
	mock := &testutil.MockLogger{}
	do(newRouter(mock, DefaultConfig()), "/metrics", nil)

	if len(mock.Entries()) != 0 {
		t.Errorf("expected no entries for excluded path, got %+v", mock.Entries())
	}
}

func TestLogging_LogStart(t *testing.T) {
	mock := &testutil.MockLogger{}
	do(newRouter(mock, Config{LogStart: true}), "/anime", nil)

	entries := mock.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected start and completion entries, got %d", len(entries))
	}
	if entries[0].Level != "debug" || entries[0].Msg != "request started" {
		t.Errorf("unexpected first entry %+v", entries[0])
	}
}

func TestLogging_ForwardedFor(t *testing.T) {
	mock := &testutil.MockLogger{}
	do(newRouter(mock, DefaultConfig()), "/anime", func(req *http.Request) {
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	})

	entry, ok := mock.Find("info", "request completed")
	if !ok {
		t.Fatal("expected completion entry")
	}
	if entry.Fields[FieldRemoteAddr] != "203.0.113.7" {
		t.Errorf("expected first forwarded hop, got %v", entry.Fields[FieldRemoteAddr])
	}
}
