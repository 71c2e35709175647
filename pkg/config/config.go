// Package config loads the service configuration with precedence ENV > secrets file >
// config file > defaults.
package config

import "time"

// Database type constants
const (
	// DatabaseTypeMongoDB stores the catalog in MongoDB.
	DatabaseTypeMongoDB = "mongodb"
	// DatabaseTypeMemory keeps the catalog in process memory. Data is lost on exit.
	DatabaseTypeMemory = "memory"
)

// Router type constants
const (
	RouterNetHTTP = "nethttp"
	RouterGin     = "gin"
	RouterGorilla = "gorilla"
)

// Count mode constants, see database.count_mode.
const (
	CountModeEstimated = "estimated"
	CountModeExact     = "exact"
)

// Config is the root configuration structure.
type Config struct {
	RouterType      string                `mapstructure:"router_type"`
	Service         ServiceConfig         `mapstructure:"service"`
	HTTP            HTTPConfig            `mapstructure:"http"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Auth            AuthConfig            `mapstructure:"auth"`
	CORS            CORSConfig            `mapstructure:"cors"`
	SecurityHeaders SecurityHeadersConfig `mapstructure:"security_headers"`
	Compression     CompressionConfig     `mapstructure:"compression"`
	RateLimit       RateLimitConfig       `mapstructure:"rate_limit"`
	Observability   ObservabilityConfig   `mapstructure:"observability"`
}

// ServiceConfig configures service identity metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// HTTPConfig configures the public API server.
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestSize  int64         `mapstructure:"max_request_size"`
}

// DatabaseConfig configures the document store.
type DatabaseConfig struct {
	Type           string        `mapstructure:"type"`
	URL            string        `mapstructure:"url" secret:"true"`
	DatabaseName   string        `mapstructure:"database_name"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
	// CountMode is "estimated" or "exact" and decides how unfiltered counts are computed.
	CountMode string `mapstructure:"count_mode"`
	// BreakerThreshold consecutive store failures make requests fail fast for BreakerCooldown.
	// Zero disables the breaker.
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

// AuthConfig configures token issuing and route protection.
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret" secret:"true"`
	Issuer          string        `mapstructure:"issuer"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	// RequireAuthForWrites leaves reads open and demands a bearer token on writes.
	RequireAuthForWrites bool `mapstructure:"require_auth_for_writes"`
}

// CORSConfig configures CORS for browser clients.
type CORSConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	AllowOrigins     []string      `mapstructure:"allow_origins"`
	AllowMethods     []string      `mapstructure:"allow_methods"`
	AllowHeaders     []string      `mapstructure:"allow_headers"`
	ExposeHeaders    []string      `mapstructure:"expose_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

// SecurityHeadersConfig configures response hardening headers.
type SecurityHeadersConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	FrameOptions          string `mapstructure:"frame_options"`
	ContentSecurityPolicy string `mapstructure:"content_security_policy"`
	ReferrerPolicy        string `mapstructure:"referrer_policy"`
	STSSeconds            int64  `mapstructure:"sts_seconds"`
	STSIncludeSubdomains  bool   `mapstructure:"sts_include_subdomains"`
}

// CompressionConfig configures response compression.
type CompressionConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	GzipLevel   int  `mapstructure:"gzip_level"`
	BrotliLevel int  `mapstructure:"brotli_level"`
	MinSize     int  `mapstructure:"min_size"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// ObservabilityConfig configures logs, traces and request logging.
type ObservabilityConfig struct {
	LogLevel          string        `mapstructure:"log_level"`
	LogFormat         string        `mapstructure:"log_format"`
	TracingEnabled    bool          `mapstructure:"tracing_enabled"`
	TracingEndpoint   string        `mapstructure:"tracing_endpoint"`
	TracingSampleRate float64       `mapstructure:"tracing_sample_rate"`
	RequestLogging    bool          `mapstructure:"request_logging"`
	SlowRequest       time.Duration `mapstructure:"slow_request"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		RouterType: RouterNetHTTP,
		Service: ServiceConfig{
			Name:        "ponzu-back",
			Environment: "development",
		},
		HTTP: HTTPConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxRequestSize:  1 << 20,
		},
		Database: DatabaseConfig{
			Type:             DatabaseTypeMongoDB,
			URL:              "mongodb://localhost:27017",
			DatabaseName:     "ponzu",
			ConnectTimeout:   10 * time.Second,
			QueryTimeout:     5 * time.Second,
			CountMode:        CountModeEstimated,
			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		Auth: AuthConfig{
			Issuer:          "ponzu-back",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		CORS: CORSConfig{
			AllowOrigins:  []string{"*"},
			AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposeHeaders: []string{"X-Request-ID"},
			MaxAge:        12 * time.Hour,
		},
		SecurityHeaders: SecurityHeadersConfig{
			Enabled:        true,
			FrameOptions:   "DENY",
			ReferrerPolicy: "no-referrer",
			STSSeconds:     31536000,
		},
		Compression: CompressionConfig{
			Enabled:     true,
			GzipLevel:   5,
			BrotliLevel: 4,
			MinSize:     1024,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogFormat:         "json",
			TracingEndpoint:   "localhost:4317",
			TracingSampleRate: 0.1,
			RequestLogging:    true,
			SlowRequest:       2 * time.Second,
		},
	}
}
