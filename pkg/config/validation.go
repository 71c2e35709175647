package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/ponzu-dev/ponzu-back/pkg/observability/logger"
)

const (
	minJWTSecretLength = 16
	redactedValue      = "********"
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.RouterType {
	case RouterNetHTTP, RouterGin, RouterGorilla:
	default:
		add("router_type must be one of nethttp, gin, gorilla (got %q)", c.RouterType)
	}

	if c.Service.Name == "" {
		add("service.name is required")
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		add("http.port must be between 1 and 65535 (got %d)", c.HTTP.Port)
	}
	if c.HTTP.MaxRequestSize <= 0 {
		add("http.max_request_size must be positive")
	}
	for key, d := range map[string]time.Duration{
		"http.read_timeout":          c.HTTP.ReadTimeout,
		"http.write_timeout":         c.HTTP.WriteTimeout,
		"http.shutdown_timeout":      c.HTTP.ShutdownTimeout,
		"database.connect_timeout":   c.Database.ConnectTimeout,
		"database.query_timeout":     c.Database.QueryTimeout,
		"observability.slow_request": c.Observability.SlowRequest,
	} {
		if d <= 0 {
			add("%s must be positive", key)
		}
	}

	switch c.Database.Type {
	case DatabaseTypeMongoDB:
		if c.Database.URL == "" {
			add("database.url is required for mongodb")
		} else if !strings.HasPrefix(c.Database.URL, "mongodb://") && !strings.HasPrefix(c.Database.URL, "mongodb+srv://") {
			add("database.url must start with mongodb:// or mongodb+srv://")
		}
		if c.Database.DatabaseName == "" {
			add("database.database_name is required for mongodb")
		}
	case DatabaseTypeMemory:
	default:
		add("database.type must be mongodb or memory (got %q)", c.Database.Type)
	}
	if c.Database.CountMode != CountModeEstimated && c.Database.CountMode != CountModeExact {
		add("database.count_mode must be estimated or exact (got %q)", c.Database.CountMode)
	}
	if c.Database.BreakerThreshold < 0 {
		add("database.breaker_threshold must not be negative")
	}
	if c.Database.BreakerThreshold > 0 && c.Database.BreakerCooldown <= 0 {
		add("database.breaker_cooldown must be positive when the breaker is enabled")
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < minJWTSecretLength {
		add("auth.jwt_secret must be at least %d characters", minJWTSecretLength)
	}
	if c.Auth.RequireAuthForWrites && c.Auth.JWTSecret == "" {
		add("auth.require_auth_for_writes needs auth.jwt_secret")
	}
	if c.Auth.JWTSecret != "" && (c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL) {
		add("auth token ttls must be positive and the refresh ttl longer than the access ttl")
	}

	if c.Compression.GzipLevel < -2 || c.Compression.GzipLevel > 9 {
		add("compression.gzip_level must be between -2 and 9")
	}
	if c.Compression.BrotliLevel < 0 || c.Compression.BrotliLevel > 11 {
		add("compression.brotli_level must be between 0 and 11")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1) {
		add("rate_limit.requests_per_second and rate_limit.burst must be positive when enabled")
	}

	if _, err := logger.ParseLogLevel(c.Observability.LogLevel); err != nil {
		add("observability.log_level: %v", err)
	}
	if _, err := logger.ParseLogFormat(c.Observability.LogFormat); err != nil {
		add("observability.log_format: %v", err)
	}
	if c.Observability.TracingSampleRate < 0 || c.Observability.TracingSampleRate > 1 {
		add("observability.tracing_sample_rate must be between 0 and 1")
	}
	if c.Observability.TracingEnabled && c.Observability.TracingEndpoint == "" {
		add("observability.tracing_endpoint is required when tracing is enabled")
	}

	return errors.Join(errs...)
}

// Settings renders the configuration as nested maps keyed like the config file. With redact
// set, fields tagged secret are masked. Durations render as strings such as "5s".
func (c *Config) Settings(redact bool) map[string]interface{} {
	return settings(reflect.ValueOf(c).Elem(), redact)
}

func settings(v reflect.Value, redact bool) map[string]interface{} {
	out := make(map[string]interface{})
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := mapstructureName(field)
		value := v.Field(i)

		switch {
		case isSection(field.Type):
			out[name] = settings(value, redact)
		case redact && field.Tag.Get("secret") == "true":
			if value.IsZero() {
				out[name] = ""
			} else {
				out[name] = redactedValue
			}
		case field.Type == reflect.TypeOf(time.Duration(0)):
			out[name] = value.Interface().(time.Duration).String()
		default:
			out[name] = value.Interface()
		}
	}
	return out
}
