// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// MongoDBURLEnv points integration tests at an existing MongoDB server.
	MongoDBURLEnv = "PONZU_TEST_MONGODB_URL"
	// MongoDBImage is started when MongoDBURLEnv is unset.
	MongoDBImage = "mongo:7"
)

// SkipIfShort skips the test in -short mode.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// RequireMongoDB returns a MongoDB URL for integration tests. It uses MongoDBURLEnv when set,
// otherwise starts a throwaway container, and skips the test when neither is possible.
func RequireMongoDB(t *testing.T) string {
	t.Helper()
	SkipIfShort(t)
	if url := strings.TrimSpace(os.Getenv(MongoDBURLEnv)); url != "" {
		return url
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        MongoDBImage,
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start mongodb container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate mongodb container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("mongodb container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "27017/tcp")
	if err != nil {
		t.Fatalf("mongodb container port: %v", err)
	}
	return fmt.Sprintf("mongodb://%s:%s", host, port.Port())
}
