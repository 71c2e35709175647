package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponzu-dev/ponzu-back/pkg/config"
	"github.com/ponzu-dev/ponzu-back/pkg/observability/logger"
	"github.com/ponzu-dev/ponzu-back/pkg/version"
)

func run(t *testing.T, opts ServiceCommandOptions, args ...string) (string, error) {
	t.Helper()
	cmd := NewServiceCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestResolveServiceNameValue(t *testing.T) {
	tests := []struct {
		name              string
		currentConfigName string
		defaultService    string
		override          string
		want              string
	}{
		{"override wins", "from-config", "from-cli", "from-flag", "from-flag"},
		{"configured value wins over default", "from-config", "from-cli", "", "from-config"},
		{"default used when config missing", "", "from-cli", "", "from-cli"},
		{"app fallback", "", "", "", "app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveServiceNameValue(tt.currentConfigName, tt.defaultService, tt.override)
			if got != tt.want {
				t.Fatalf("resolveServiceNameValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, ServiceCommandOptions{Name: "ponzu-back"}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Service:    ponzu-back")

	out, err = run(t, ServiceCommandOptions{Name: "ponzu-back"}, "version", "--json")
	require.NoError(t, err)
	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "ponzu-back", info.Service)
}

func TestServeIsDefaultCommand(t *testing.T) {
	var got *config.Config
	opts := ServiceCommandOptions{
		Name: "ponzu-back",
		RunServer: func(ctx context.Context, cfg *config.Config, log logger.Logger) error {
			got = cfg
			return nil
		},
	}

	_, err := run(t, opts, "--database-type=memory", "--port=9090", "--log-level=warn")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, config.DatabaseTypeMemory, got.Database.Type)
	assert.Equal(t, 9090, got.HTTP.Port)
	assert.Equal(t, "warn", got.Observability.LogLevel)

	got = nil
	_, err = run(t, opts, "serve", "--service-name", "catalog-api")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "catalog-api", got.Service.Name)
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	t.Setenv("APP_ROUTER_TYPE", "chi")
	called := false
	_, err := run(t, ServiceCommandOptions{
		Name: "ponzu-back",
		RunServer: func(context.Context, *config.Config, logger.Logger) error {
			called = true
			return nil
		},
	}, "serve")

	assert.ErrorContains(t, err, "router_type")
	assert.False(t, called)
}

func TestHealthcheckCommand(t *testing.T) {
	opts := ServiceCommandOptions{
		Name: "ponzu-back",
		CheckDependencies: func(ctx context.Context, cfg *config.Config, log logger.Logger) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("expected a deadline")
			}
			if cfg.Database.Type == config.DatabaseTypeMongoDB {
				return errors.New("mongodb unreachable")
			}
			return nil
		},
	}

	out, err := run(t, opts, "healthcheck", "--database-type=memory")
	require.NoError(t, err)
	assert.Contains(t, out, "healthy")

	_, err = run(t, opts, "healthcheck")
	assert.ErrorContains(t, err, "mongodb unreachable")
}

func TestConfigValidateCommand(t *testing.T) {
	out, err := run(t, ServiceCommandOptions{Name: "ponzu-back"}, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	t.Setenv("APP_HTTP_PORT", "0")
	_, err = run(t, ServiceCommandOptions{Name: "ponzu-back"}, "config", "validate")
	assert.ErrorContains(t, err, "http.port")
}

func TestConfigShowCommand(t *testing.T) {
	t.Setenv("APP_AUTH_JWT_SECRET", "a-secret-that-is-long-enough")

	out, err := run(t, ServiceCommandOptions{Name: "ponzu-back"}, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "router_type: nethttp")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "a-secret-that-is-long-enough")

	out, err = run(t, ServiceCommandOptions{Name: "ponzu-back"}, "config", "show", "--show-secrets")
	require.NoError(t, err)
	assert.Contains(t, out, "a-secret-that-is-long-enough")
}

func TestSecretFileFlag(t *testing.T) {
	_, err := run(t, ServiceCommandOptions{Name: "ponzu-back"}, "config", "validate", "--secret-file", "/does/not/exist.yaml")
	assert.ErrorContains(t, err, "not accessible")
}

func TestNewLogger(t *testing.T) {
	cfg := config.DefaultConfig()
	log, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, log)

	cfg.Observability.LogFormat = "xml"
	_, err = NewLogger(cfg)
	assert.Error(t, err)
}
