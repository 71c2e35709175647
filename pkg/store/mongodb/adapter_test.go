package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ponzu-dev/ponzu-back/pkg/observability/logger"
)

func TestNewAdapter_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "empty config", cfg: Config{}},
		{name: "missing database", cfg: Config{URL: "mongodb://localhost:27017"}},
		{name: "missing url", cfg: Config{Database: "ponzu"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAdapter(tt.cfg, logger.Nop()); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestPing_WhenClosed(t *testing.T) {
	a := &Adapter{closed: true}
	if err := a.Ping(context.Background()); !errors.Is(err, errClosed) {
		t.Fatalf("expected errClosed, got %v", err)
	}
}

func TestHealthCheck_WhenClosed(t *testing.T) {
	a := &Adapter{closed: true, logger: logger.Nop()}
	if err := a.HealthCheck(context.Background()); !errors.Is(err, errClosed) {
		t.Fatalf("expected wrapped errClosed, got %v", err)
	}
}

func TestClose_IdempotentWhenAlreadyClosed(t *testing.T) {
	a := &Adapter{closed: true}
	if err := a.Close(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestWithOperationTimeout_UsesAdapterTimeoutWhenNoDeadline(t *testing.T) {
	a := &Adapter{timeout: 2 * time.Second}

	ctx, cancel := a.withOperationTimeout(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected deadline from operation timeout")
	}
	if remaining := time.Until(deadline); remaining <= 0 || remaining > 2*time.Second {
		t.Fatalf("unexpected remaining timeout: %v", remaining)
	}
}

func TestWithOperationTimeout_PreservesCallerDeadline(t *testing.T) {
	a := &Adapter{timeout: 2 * time.Second}
	parentCtx, parentCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer parentCancel()

	ctx, cancel := a.withOperationTimeout(parentCtx)
	defer cancel()

	parentDeadline, _ := parentCtx.Deadline()
	gotDeadline, _ := ctx.Deadline()
	if !gotDeadline.Equal(parentDeadline) {
		t.Fatalf("expected caller deadline to be preserved, got %v want %v", gotDeadline, parentDeadline)
	}
}

func TestWithOperationTimeout_DisabledWhenZero(t *testing.T) {
	a := &Adapter{}
	ctx, cancel := a.withOperationTimeout(context.Background())
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatal("expected no deadline when timeout is disabled")
	}
}
