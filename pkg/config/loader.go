package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes every environment variable, e.g. APP_HTTP_PORT.
const DefaultEnvPrefix = "APP"

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
}

// ViperLoader implements Loader using Viper.
type ViperLoader struct {
	configFile string
	envPrefix  string
	flags      *pflag.FlagSet
}

// NewViperLoader creates a loader. configFile is optional; envPrefix defaults to APP.
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	if strings.TrimSpace(envPrefix) == "" {
		envPrefix = DefaultEnvPrefix
	}
	return &ViperLoader{
		configFile: strings.TrimSpace(configFile),
		envPrefix:  strings.ToUpper(envPrefix),
	}
}

// WithFlags lets flags registered by RegisterFlags override every other source.
func (l *ViperLoader) WithFlags(flags *pflag.FlagSet) *ViperLoader {
	l.flags = flags
	return l
}

// ConfigFile returns the config file path, empty when none was given.
func (l *ViperLoader) ConfigFile() string {
	return l.configFile
}

// Load reads the configuration and validates it.
//
// Precedence, highest first: changed flags, environment, secrets file, config file, defaults.
func (l *ViperLoader) Load() (*Config, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadUnvalidated reads the configuration without validating it, so `config validate`
// can report every problem.
func (l *ViperLoader) LoadUnvalidated() (*Config, error) {
	return l.load()
}

func (l *ViperLoader) load() (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	secretsFile, err := l.discoverSecretsFile()
	if err != nil {
		return nil, err
	}
	if secretsFile != "" {
		v.SetConfigFile(secretsFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read secrets file %s: %w", secretsFile, err)
		}
	}

	if err := l.bindEnvVars(v); err != nil {
		return nil, err
	}
	if err := l.bindFlags(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// plainEnvFallbacks are honoured when the prefixed variable is absent.
var plainEnvFallbacks = map[string][]string{
	"http.port":              {"PORT"},
	"database.url":           {"DATABASE_URL", "MONGODB_URI"},
	"database.database_name": {"DATABASE_NAME"},
}

// bindEnvVars binds every key to PREFIX_SECTION_FIELD. The database section uses the
// abbreviated DB_ prefix; the long DATABASE_ form is accepted too.
func (l *ViperLoader) bindEnvVars(v *viper.Viper) error {
	for _, key := range configKeys(reflect.TypeOf(Config{}), "") {
		names := []string{l.EnvName(key)}
		if strings.HasPrefix(key, "database.") {
			names = append(names, l.prefixedEnv(envSuffix(key)))
		}
		names = append(names, plainEnvFallbacks[key]...)

		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// EnvName returns the primary environment variable for a config key.
func (l *ViperLoader) EnvName(key string) string {
	suffix := envSuffix(key)
	if strings.HasPrefix(key, "database.") {
		suffix = "DB_" + strings.TrimPrefix(suffix, "DATABASE_")
	}
	return l.prefixedEnv(suffix)
}

func (l *ViperLoader) prefixedEnv(suffix string) string {
	return l.envPrefix + "_" + suffix
}

func envSuffix(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (l *ViperLoader) discoverSecretsFile() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv(l.prefixedEnv("SECRETS_FILE"))); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("secrets file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	if l.configFile == "" {
		return "", nil
	}

	candidate := filepath.Join(filepath.Dir(l.configFile), "secrets"+filepath.Ext(l.configFile))
	if _, err := os.Stat(candidate); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("secrets file %s: %w", candidate, err)
	}
	return candidate, nil
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"port":          "http.port",
	"router":        "router_type",
	"database-type": "database.type",
	"database-url":  "database.url",
	"database-name": "database.database_name",
	"log-level":     "observability.log_level",
	"log-format":    "observability.log_format",
}

// RegisterFlags adds the config override flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig()
	flags.Int("port", defaults.HTTP.Port, "HTTP listen port")
	flags.String("router", defaults.RouterType, "router implementation: nethttp, gin or gorilla")
	flags.String("database-type", defaults.Database.Type, "document store: mongodb or memory")
	flags.String("database-url", "", "MongoDB connection URI")
	flags.String("database-name", defaults.Database.DatabaseName, "MongoDB database name")
	flags.String("log-level", defaults.Observability.LogLevel, "log level: debug, info, warn or error")
	flags.String("log-format", defaults.Observability.LogFormat, "log format: json or text")
}

func (l *ViperLoader) bindFlags(v *viper.Viper) error {
	if l.flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := l.flags.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	for key, value := range flatten(reflect.ValueOf(cfg).Elem(), "") {
		v.SetDefault(key, value)
	}
}

// configKeys lists every leaf key of t in mapstructure form, e.g. "http.port".
func configKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := joinKey(prefix, mapstructureName(field))
		if isSection(field.Type) {
			keys = append(keys, configKeys(field.Type, key)...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func flatten(v reflect.Value, prefix string) map[string]interface{} {
	out := make(map[string]interface{})
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := joinKey(prefix, mapstructureName(field))
		if isSection(field.Type) {
			for k, val := range flatten(v.Field(i), key) {
				out[k] = val
			}
			continue
		}
		out[key] = v.Field(i).Interface()
	}
	return out
}

func isSection(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.PkgPath() == reflect.TypeOf(Config{}).PkgPath()
}

func mapstructureName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
	if name == "" {
		return strings.ToLower(field.Name)
	}
	return name
}

func joinKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
