package recovery

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ponzu-dev/ponzu-back/pkg/middleware/requestid"
	"github.com/ponzu-dev/ponzu-back/pkg/middleware/testutil"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router/nethttp"
)

func TestRecovery_CatchesPanic(t *testing.T) {
	log := &testutil.MockLogger{}
	r := nethttp.NewRouter()
	r.Use(requestid.RequestID(), Recovery(log))
	r.GET("/panic", func(c router.Context) error {
		panic("something went wrong")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(requestid.RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["error"] != "internal_server_error" {
		t.Errorf("expected error 'internal_server_error', got %v", response["error"])
	}
	if response["request_id"] != "req-1" {
		t.Errorf("expected request_id req-1, got %v", response["request_id"])
	}

	entry, ok := log.Find("error", "panic recovered")
	if !ok {
		t.Fatalf("expected panic to be logged, got %+v", log.Entries())
	}
	if entry.Fields["panic"] != "something went wrong" {
		t.Errorf("expected panic value in log, got %v", entry.Fields["panic"])
	}
	if entry.Fields["stack"] == "" {
		t.Error("expected stack trace in log")
	}
}

func TestRecovery_KeepsWrittenResponse(t *testing.T) {
	log := &testutil.MockLogger{}
	r := nethttp.NewRouter()
	r.Use(Recovery(log))
	r.GET("/partial", func(c router.Context) error {
		if err := c.String(http.StatusAccepted, "partial"); err != nil {
			return err
		}
		panic("late failure")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/partial", nil))

	if w.Code != http.StatusAccepted {
		t.Errorf("expected original status to survive, got %d", w.Code)
	}
	if w.Body.String() != "partial" {
		t.Errorf("expected body to be untouched, got %q", w.Body.String())
	}
	if _, ok := log.Find("error", "panic recovered"); !ok {
		t.Error("expected panic to be logged")
	}
}

func TestRecovery_PassesThrough(t *testing.T) {
	log := &testutil.MockLogger{}
	r := nethttp.NewRouter()
	r.Use(Recovery(log))
	r.GET("/ok", func(c router.Context) error {
		return c.String(http.StatusOK, "fine")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	if w.Code != http.StatusOK || w.Body.String() != "fine" {
		t.Errorf("unexpected response %d %q", w.Code, w.Body.String())
	}
	if len(log.Entries()) != 0 {
		t.Errorf("expected no log entries, got %+v", log.Entries())
	}
}
