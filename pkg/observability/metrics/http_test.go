package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/api/anime", "/api/anime"},
		{"/api/anime/65f1c0a2b3d4e5f6a7b8c9d0", "/api/anime/:id"},
		{"/api/users/65F1C0A2B3D4E5F6A7B8C9D0/x", "/api/users/:id/x"},
		{"/api/anime/not-an-id", "/api/anime/not-an-id"},
		{"/api/anime/65f1c0a2b3d4e5f6a7b8c9dz", "/api/anime/65f1c0a2b3d4e5f6a7b8c9dz"},
		{"health", "health"},
	}
	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecordHTTPMetrics_UsesNormalizedPath(t *testing.T) {
	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/manga/:id", "404")
	before := testutil.ToFloat64(counter)

	RecordHTTPMetrics(http.MethodGet, "/api/manga/65f1c0a2b3d4e5f6a7b8c9d0", http.StatusNotFound, 10*time.Millisecond)
	RecordHTTPMetrics(http.MethodGet, "/api/manga/75f1c0a2b3d4e5f6a7b8c9d0", http.StatusNotFound, 10*time.Millisecond)

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("expected 2 increments on normalized label, got %v", got)
	}
}

func TestInFlightGauge(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsInFlight)
	IncrementInFlight()
	if got := testutil.ToFloat64(httpRequestsInFlight); got != before+1 {
		t.Fatalf("gauge = %v, want %v", got, before+1)
	}
	DecrementInFlight()
	if got := testutil.ToFloat64(httpRequestsInFlight); got != before {
		t.Fatalf("gauge = %v, want %v", got, before)
	}
}

func TestRecordRepositoryOperation(t *testing.T) {
	counter := repositoryOperationsTotal.WithLabelValues("genres", "find_by_id", OutcomeMiss)
	before := testutil.ToFloat64(counter)

	RecordRepositoryOperation("genres", "find_by_id", OutcomeMiss, time.Millisecond)

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("expected 1 increment, got %v", got)
	}
}
