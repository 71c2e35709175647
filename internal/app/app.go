package app

import (
	"context"
	"fmt"

	"github.com/ponzu-dev/ponzu-back/pkg/auth"
	"github.com/ponzu-dev/ponzu-back/pkg/config"
	"github.com/ponzu-dev/ponzu-back/pkg/health"
	"github.com/ponzu-dev/ponzu-back/pkg/observability/logger"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
	"github.com/ponzu-dev/ponzu-back/pkg/resilience"
	"github.com/ponzu-dev/ponzu-back/pkg/server"
	"github.com/ponzu-dev/ponzu-back/pkg/server/openapi"
	mongostore "github.com/ponzu-dev/ponzu-back/pkg/store/mongodb"
	"github.com/ponzu-dev/ponzu-back/pkg/version"
)

// Storage is an opened document store together with its health checker.
type Storage struct {
	Executor document.Executor
	Checker  health.Checker
	close    func() error
}

// Close releases the connection. It is a no-op for in-memory storage.
func (s *Storage) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStorage connects to the store selected by database.type.
func OpenStorage(cfg config.DatabaseConfig, log logger.Logger) (*Storage, error) {
	switch cfg.Type {
	case config.DatabaseTypeMemory:
		log.Warn("using in-memory storage, data is lost on exit")
		return &Storage{
			Executor: document.NewMemoryExecutor(),
			Checker: health.NewStaticChecker("database", "in-memory storage",
				map[string]interface{}{"type": config.DatabaseTypeMemory}),
		}, nil
	case config.DatabaseTypeMongoDB:
		adapter, err := mongostore.NewAdapter(mongostore.Config{
			URL:              cfg.URL,
			Database:         cfg.DatabaseName,
			ConnectTimeout:   cfg.ConnectTimeout,
			OperationTimeout: cfg.QueryTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		var executor document.Executor
		executor, err = document.NewMongoDBExecutor(adapter)
		if err == nil && cfg.BreakerThreshold > 0 {
			executor, err = document.NewGuardedExecutor(executor, newStoreBreaker(cfg, log))
		}
		if err != nil {
			_ = adapter.Close()
			return nil, err
		}
		return &Storage{
			Executor: executor,
			Checker:  health.NewDatabaseChecker(config.DatabaseTypeMongoDB, adapter),
			close:    adapter.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}

func newStoreBreaker(cfg config.DatabaseConfig, log logger.Logger) *resilience.Breaker {
	return resilience.NewBreaker(cfg.Type, cfg.BreakerThreshold, cfg.BreakerCooldown,
		resilience.WithFailureFilter(document.IsStoreFailure),
		resilience.WithStateChange(func(name string, from, to resilience.State) {
			if to == resilience.StateOpen {
				log.Error("storage breaker opened, failing fast",
					"store", name, "from", from.String(), "cooldown", cfg.BreakerCooldown.String())
				return
			}
			log.Info("storage breaker state changed", "store", name, "from", from.String(), "to", to.String())
		}),
	)
}

// NewTokens returns the token issuer for cfg, or nil when no secret is configured.
func NewTokens(cfg config.AuthConfig) (*auth.HMACTokens, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}
	return auth.NewHMACTokens(auth.Config{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.Issuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
}

// NewServer opens storage and builds the HTTP server with every route mounted. The
// returned options carry the shutdown hook that closes storage.
func NewServer(cfg *config.Config, log logger.Logger) (*server.Server, *server.Options, error) {
	if log == nil {
		log = logger.Nop()
	}
	tokens, err := NewTokens(cfg.Auth)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: %w", err)
	}
	storage, err := OpenStorage(cfg.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	state, err := NewState(storage.Executor, Options{
		CountMode:            document.CountMode(cfg.Database.CountMode),
		Logger:               log,
		Tokens:               tokens,
		RequireAuthForWrites: cfg.Auth.RequireAuthForWrites,
	})
	if err != nil {
		_ = storage.Close()
		return nil, nil, err
	}
	if err := state.EnsureIndexes(context.Background()); err != nil {
		_ = storage.Close()
		return nil, nil, err
	}
	if tokens == nil {
		log.Warn("auth.jwt_secret is empty, account endpoints are disabled")
	}

	healthRegistry := health.NewRegistry()
	healthRegistry.Register(storage.Checker)

	opts := &server.Options{
		Config:         cfg,
		Logger:         log,
		HealthRegistry: healthRegistry,
		RegisterRoutes: state.Routes,
		ShutdownHooks: []server.LifecycleHook{{
			Name: "storage",
			Fn:   func(context.Context) error { return storage.Close() },
		}},
	}
	srv, err := server.Build(opts)
	if err != nil {
		_ = storage.Close()
		return nil, nil, err
	}
	return srv, opts, nil
}

// Serve runs the API until ctx ends or SIGINT or SIGTERM arrives.
func Serve(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	srv, opts, err := NewServer(cfg, log)
	if err != nil {
		return err
	}
	return server.RunWithSignals(ctx, srv, opts)
}

// CheckDependencies opens the configured storage and runs its health check once.
func CheckDependencies(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	storage, err := OpenStorage(cfg.Database, log)
	if err != nil {
		return err
	}
	defer storage.Close()

	result := storage.Checker.Check(ctx)
	if result.Status != health.StatusHealthy {
		return fmt.Errorf("%s: %s", result.Name, result.Error)
	}
	log.Info("dependency healthy", "name", result.Name, "duration", result.Duration)
	return nil
}

// APISpec describes the routes mounted for cfg without opening storage.
func APISpec(cfg *config.Config) (*openapi.Spec, error) {
	tokens, err := NewTokens(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	state, err := NewState(document.NewMemoryExecutor(), Options{
		Tokens:               tokens,
		RequireAuthForWrites: cfg.Auth.RequireAuthForWrites,
	})
	if err != nil {
		return nil, err
	}
	name := cfg.Service.Name
	return openapi.BuildSpec(name, version.Current(name).Version, openapi.CollectRoutes(state.Routes)), nil
}
