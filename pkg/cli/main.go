// Package cli builds the service command tree: serve, version, healthcheck and config.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/ponzu-dev/ponzu-back/pkg/config"
	"github.com/ponzu-dev/ponzu-back/pkg/observability/logger"
	"github.com/ponzu-dev/ponzu-back/pkg/version"
)

const defaultHealthcheckTimeout = 10 * time.Second

// ServiceCommandOptions defines callbacks for service-specific logic.
type ServiceCommandOptions struct {
	Name        string
	Description string
	ConfigPath  string
	EnvPrefix   string

	// Required: server startup logic. It returns when ctx is cancelled or the server fails.
	RunServer func(ctx context.Context, cfg *config.Config, log logger.Logger) error

	// Optional: dependency checks behind the healthcheck command.
	CheckDependencies func(ctx context.Context, cfg *config.Config, log logger.Logger) error

	// Optional: additional custom commands
	CustomCommands []*cobra.Command
}

// NewServiceCommand creates the root command. Running it without a subcommand serves.
func NewServiceCommand(opts ServiceCommandOptions) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = config.DefaultEnvPrefix
	}

	rootCmd := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var cfgPath, secretFilePath, serviceNameOverride string
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config-file", "c", opts.ConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&secretFilePath, "secret-file", "", "path to secrets file (sets <PREFIX>_SECRETS_FILE)")
	rootCmd.PersistentFlags().StringVar(&serviceNameOverride, "service-name", "", "service name override")
	config.RegisterFlags(rootCmd.PersistentFlags())

	load := func(flags *pflag.FlagSet, validate bool) (*config.Config, error) {
		if err := applySecretFileFlag(opts.EnvPrefix, secretFilePath); err != nil {
			return nil, err
		}
		loader := config.NewViperLoader(cfgPath, opts.EnvPrefix).WithFlags(flags)
		cfg, err := loader.LoadUnvalidated()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg.Service.Name = resolveServiceNameValue(cfg.Service.Name, opts.Name, serviceNameOverride)
		if validate {
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("configuration validation failed: %w", err)
			}
		}
		return cfg, nil
	}
	loadWithLogger := func(flags *pflag.FlagSet) (*config.Config, logger.Logger, error) {
		cfg, err := load(flags, true)
		if err != nil {
			return nil, nil, err
		}
		log, err := NewLogger(cfg)
		if err != nil {
			return nil, nil, err
		}
		return cfg, log, nil
	}

	var versionJSON bool
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Current(opts.Name)
			out := cmd.OutOrStdout()
			if versionJSON {
				return json.NewEncoder(out).Encode(info)
			}
			fmt.Fprintf(out, "Service:    %s\n", info.Service)
			fmt.Fprintf(out, "Version:    %s\n", info.Version)
			fmt.Fprintf(out, "Commit:     %s\n", info.Commit)
			fmt.Fprintf(out, "Build Time: %s\n", info.BuildTime)
			fmt.Fprintf(out, "Go:         %s\n", info.GoVersion)
			return nil
		},
	}
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(versionCmd)

	if opts.RunServer != nil {
		serveCmd := &cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := loadWithLogger(cmd.Flags())
				if err != nil {
					return err
				}
				return opts.RunServer(cmd.Context(), cfg, log)
			},
		}
		rootCmd.AddCommand(serveCmd)
		rootCmd.RunE = serveCmd.RunE
	}

	if opts.CheckDependencies != nil {
		var timeout time.Duration
		healthCmd := &cobra.Command{
			Use:   "healthcheck",
			Short: "Check connectivity to the configured dependencies",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := loadWithLogger(cmd.Flags())
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()
				if err := opts.CheckDependencies(ctx, cfg, log); err != nil {
					return fmt.Errorf("healthcheck failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ All dependencies are healthy")
				return nil
			},
		}
		healthCmd.Flags().DurationVar(&timeout, "timeout", defaultHealthcheckTimeout, "overall healthcheck timeout")
		rootCmd.AddCommand(healthCmd)
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := load(cmd.Flags(), true); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
			return nil
		},
	})

	var showSecrets bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd.Flags(), false)
			if err != nil {
				return err
			}
			formatted, err := formatSettings(cfg.Settings(!showSecrets))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatted)
			return nil
		},
	}
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show secret values")
	configCmd.AddCommand(showCmd)
	rootCmd.AddCommand(configCmd)

	for _, customCmd := range opts.CustomCommands {
		rootCmd.AddCommand(customCmd)
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = false
	rootCmd.InitDefaultCompletionCmd()

	return rootCmd
}

// NewLogger builds the zap logger described by cfg.
func NewLogger(cfg *config.Config) (logger.Logger, error) {
	level, err := logger.ParseLogLevel(cfg.Observability.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logger.ParseLogFormat(cfg.Observability.LogFormat)
	if err != nil {
		return nil, err
	}
	log, err := logger.NewZapLogger(logger.Config{Level: level, Format: format})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With("service", cfg.Service.Name), nil
}

// Execute runs the command and exits with status 1 on error.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func applySecretFileFlag(envPrefix, secretFilePath string) error {
	if secretFilePath == "" {
		return nil
	}
	info, err := os.Stat(secretFilePath)
	if err != nil {
		return fmt.Errorf("secret file %s is not accessible: %w", secretFilePath, err)
	}
	if info.IsDir() {
		return errors.New("secret file " + secretFilePath + " must not be a directory")
	}
	return os.Setenv(strings.ToUpper(envPrefix)+"_SECRETS_FILE", filepath.Clean(secretFilePath))
}

func formatSettings(settings map[string]interface{}) (string, error) {
	if settings == nil {
		return "{}\n", nil
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

func resolveServiceNameValue(currentConfigName, defaultServiceName, serviceNameOverride string) string {
	if override := strings.TrimSpace(serviceNameOverride); override != "" {
		return override
	}
	if configured := strings.TrimSpace(currentConfigName); configured != "" {
		return configured
	}
	if fallback := strings.TrimSpace(defaultServiceName); fallback != "" {
		return fallback
	}
	return "app"
}
