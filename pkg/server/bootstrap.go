package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ponzu-dev/ponzu-back/pkg/config"
	"github.com/ponzu-dev/ponzu-back/pkg/health"
	"github.com/ponzu-dev/ponzu-back/pkg/observability/logger"
	"github.com/ponzu-dev/ponzu-back/pkg/observability/metrics"
	"github.com/ponzu-dev/ponzu-back/pkg/observability/tracing"
	"github.com/ponzu-dev/ponzu-back/pkg/server/openapi"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router/factory"
	"github.com/ponzu-dev/ponzu-back/pkg/version"
)

const defaultHookTimeout = 10 * time.Second

// LifecycleHook defines a named startup/shutdown action.
type LifecycleHook struct {
	Name string
	Fn   func(context.Context) error
}

// Options defines inputs for building and running the HTTP server.
type Options struct {
	Config *config.Config

	// Router is optional. If nil, a router is created from Config.RouterType.
	Router router.Router

	Logger logger.Logger

	HealthRegistry  *health.Registry
	MetricsRegistry *metrics.Registry

	// RegisterRoutes mounts the application routes after the operational endpoints.
	RegisterRoutes func(router.Router)

	StartupHooks        []LifecycleHook
	ShutdownHooks       []LifecycleHook
	ShutdownHookTimeout time.Duration
}

// Build creates the router, installs the global middleware and mounts /health, /metrics,
// /version, the application routes and their OpenAPI document at /openapi.json and
// /openapi.yaml.
func Build(opts *Options) (*Server, error) {
	if opts == nil {
		return nil, errors.New("options are required")
	}
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.HealthRegistry == nil {
		opts.HealthRegistry = health.NewRegistry()
	}
	if opts.MetricsRegistry == nil {
		opts.MetricsRegistry = metrics.NewRegistry()
	}

	r := opts.Router
	if r == nil {
		created, err := factory.NewRouter(opts.Config.RouterType)
		if err != nil {
			return nil, fmt.Errorf("create router: %w", err)
		}
		r = created
	}

	r.Use(PublicMiddleware(opts.Config, opts.Logger)...)

	serviceName := resolveServiceName(opts)
	routes := func(r router.Router) {
		r.GET("/health", health.Handler(opts.HealthRegistry))
		r.GET("/metrics", router.WrapHandler(opts.MetricsRegistry.Handler()))
		r.GET("/version", version.Handler(serviceName))
		if opts.RegisterRoutes != nil {
			opts.RegisterRoutes(r)
		}
	}
	routes(r)

	spec := openapi.BuildSpec(serviceName, version.Current(serviceName).Version, openapi.CollectRoutes(routes))
	r.GET("/openapi.json", openapi.Handler(spec))
	r.GET("/openapi.yaml", openapi.Handler(spec))

	return NewServer(ConfigFromHTTP(opts.Config.HTTP), r, opts.Logger), nil
}

// Run starts the tracer provider and the startup hooks, serves until ctx ends and then runs
// the shutdown hooks.
func Run(ctx context.Context, srv *Server, opts *Options) error {
	if srv == nil {
		return errors.New("server is required")
	}
	if opts == nil || opts.Config == nil {
		return errors.New("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	info := version.Current(resolveServiceName(opts))
	opts.Logger.Info("application version metadata",
		"service", info.Service,
		"version", info.Version,
		"commit", info.Commit,
		"build_time", info.BuildTime,
	)

	tracerProvider, err := tracing.NewTracerProvider(ctx, tracing.TracerConfig{
		ServiceName:    info.Service,
		ServiceVersion: info.Version,
		Environment:    resolveEnvironment(opts),
		Endpoint:       opts.Config.Observability.TracingEndpoint,
		SampleRate:     opts.Config.Observability.TracingSampleRate,
		Enabled:        opts.Config.Observability.TracingEnabled,
	})
	if err != nil {
		return fmt.Errorf("initialize tracing provider: %w", err)
	}
	defer shutdownTracerProvider(tracerProvider, opts.Logger)

	if err := runStartupHooks(ctx, opts); err != nil {
		return err
	}
	defer func() {
		if shutdownErr := runShutdownHooks(opts); shutdownErr != nil {
			opts.Logger.Error("shutdown hooks completed with errors", "error", shutdownErr)
		}
	}()

	return srv.Start(ctx)
}

// RunWithSignals runs srv until ctx ends or one of signals arrives, SIGINT and SIGTERM by
// default.
func RunWithSignals(ctx context.Context, srv *Server, opts *Options, signals ...os.Signal) error {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, stop := signal.NotifyContext(ctx, signals...)
	defer stop()
	return Run(ctx, srv, opts)
}

func shutdownTracerProvider(provider *tracing.TracerProvider, log logger.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultHookTimeout)
	defer cancel()

	if err := provider.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown tracing provider", "error", err)
	}
}

func resolveServiceName(opts *Options) string {
	if opts.Config != nil {
		if trimmed := strings.TrimSpace(opts.Config.Service.Name); trimmed != "" {
			return trimmed
		}
	}
	return version.Unknown
}

func resolveEnvironment(opts *Options) string {
	if opts.Config != nil {
		if trimmed := strings.TrimSpace(opts.Config.Service.Environment); trimmed != "" {
			return trimmed
		}
	}
	return version.Unknown
}

func hookName(hook LifecycleHook) string {
	if name := strings.TrimSpace(hook.Name); name != "" {
		return name
	}
	return "unnamed"
}

func runStartupHooks(ctx context.Context, opts *Options) error {
	for _, hook := range opts.StartupHooks {
		if hook.Fn == nil {
			continue
		}
		name := hookName(hook)
		opts.Logger.Info("startup hook start", "hook", name)
		if err := hook.Fn(ctx); err != nil {
			opts.Logger.Error("startup hook failed", "hook", name, "error", err)
			return fmt.Errorf("startup hook %q failed: %w", name, err)
		}
		opts.Logger.Info("startup hook complete", "hook", name)
	}
	return nil
}

// runShutdownHooks runs every hook, each with its own timeout, and joins the failures.
func runShutdownHooks(opts *Options) error {
	timeout := opts.ShutdownHookTimeout
	if timeout <= 0 {
		timeout = defaultHookTimeout
	}

	var errs []error
	for _, hook := range opts.ShutdownHooks {
		if hook.Fn == nil {
			continue
		}
		name := hookName(hook)
		opts.Logger.Info("shutdown hook start", "hook", name)

		hookCtx, cancel := context.WithTimeout(context.Background(), timeout)
		err := hook.Fn(hookCtx)
		cancel()

		if err != nil {
			opts.Logger.Error("shutdown hook failed", "hook", name, "error", err)
			errs = append(errs, fmt.Errorf("shutdown hook %q failed: %w", name, err))
			continue
		}
		opts.Logger.Info("shutdown hook complete", "hook", name)
	}
	return errors.Join(errs...)
}
