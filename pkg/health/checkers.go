package health

import (
	"context"
	"time"
)

// DefaultTimeout bounds a single adapter check.
const DefaultTimeout = 5 * time.Second

// Checkable is implemented by adapters that can ping their backend, such as the MongoDB adapter.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// AdapterChecker reports an adapter unhealthy when its HealthCheck fails or times out.
type AdapterChecker struct {
	name     string
	adapter  Checkable
	timeout  time.Duration
	metadata map[string]interface{}
}

// NewAdapterChecker creates a checker for adapter. A zero timeout means DefaultTimeout.
func NewAdapterChecker(name string, adapter Checkable, timeout time.Duration) *AdapterChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &AdapterChecker{
		name:    name,
		adapter: adapter,
		timeout: timeout,
	}
}

// NewDatabaseChecker creates the checker for the document store. kind ends up in the
// result metadata, e.g. "mongodb".
func NewDatabaseChecker(kind string, db Checkable) *AdapterChecker {
	c := NewAdapterChecker("database", db, DefaultTimeout)
	c.metadata = map[string]interface{}{"type": kind}
	return c
}

// Check pings the adapter.
func (c *AdapterChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result := CheckResult{
		Name:     c.name,
		Status:   StatusHealthy,
		Message:  "OK",
		Metadata: c.metadata,
	}
	if err := c.adapter.HealthCheck(checkCtx); err != nil {
		result.Status = StatusUnhealthy
		result.Message = ""
		result.Error = err.Error()
	}
	result.Timestamp = time.Now()
	result.Duration = time.Since(start)
	return result
}

// Name returns the checker name.
func (c *AdapterChecker) Name() string {
	return c.name
}

// PingChecker is always healthy. It serves liveness and backends with nothing to ping,
// like the in-memory store.
type PingChecker struct {
	name     string
	message  string
	metadata map[string]interface{}
}

// NewPingChecker creates a liveness checker.
func NewPingChecker(name string) *PingChecker {
	return &PingChecker{name: name, message: "alive"}
}

// NewStaticChecker creates an always-healthy checker carrying message and metadata.
func NewStaticChecker(name, message string, metadata map[string]interface{}) *PingChecker {
	return &PingChecker{name: name, message: message, metadata: metadata}
}

func (c *PingChecker) Check(context.Context) CheckResult {
	return CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   c.message,
		Timestamp: time.Now(),
		Metadata:  c.metadata,
	}
}

func (c *PingChecker) Name() string {
	return c.name
}
