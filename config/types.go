package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Flow          FlowConfig          `mapstructure:"flow"`
	Nats          NatsConfig          `mapstructure:"nats"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

type NatsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url" yaml:"url"`
}

// BackendConfig points the console at the assessment REST API.
type BackendConfig struct {
	BaseURL             string `mapstructure:"base_url"` // e.g. "http://localhost:8000/api/v1"
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
	MaxRetries          int    `mapstructure:"max_retries"`
	RetryInitialMs      int    `mapstructure:"retry_initial_ms"`
	UserCacheTTLSeconds int    `mapstructure:"user_cache_ttl_seconds"`
	MaxUploadMB         int    `mapstructure:"max_upload_mb"`
}

type RedisConfig struct {
	Addr                string `mapstructure:"addr"`
	DB                  int    `mapstructure:"db"`
	Username            string `mapstructure:"username"`
	Password            string `mapstructure:"password"`
	PoolSize            int    `mapstructure:"pool_size"`
	MinIdleConns        int    `mapstructure:"min_idle_conns"`
	DialTimeoutSeconds  int    `mapstructure:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

// FlowConfig controls where per-operator assessment flows live.
type FlowConfig struct {
	Store          string `mapstructure:"store"` // redis, memory
	TTLHours       int    `mapstructure:"ttl_hours"`
	ActivityMaxLen int64  `mapstructure:"activity_max_len"`
}

type RateLimitConfig struct {
	Max               int `mapstructure:"max"`
	ExpirationSeconds int `mapstructure:"expiration_seconds"`
}

type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	TimeoutSeconds int             `mapstructure:"timeout_seconds"`
	Environment    string          `mapstructure:"environment"`
	CORS           CORSConfig      `mapstructure:"cors"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAgeSeconds    int      `mapstructure:"max_age_seconds"`
}

type ObservabilityConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Tracing        TracingConfig `mapstructure:"tracing"`
	Metrics        MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string       `mapstructure:"level"`  // debug, info, warn, error
	Format string       `mapstructure:"format"` // text, json
	Output OutputConfig `mapstructure:"output"`
}

type OutputConfig struct {
	Stdout bool          `mapstructure:"stdout"`
	File   FileLogConfig `mapstructure:"file"`
	Loki   LokiConfig    `mapstructure:"loki"`
}

type FileLogConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`        // e.g. "logs/assessflow.log"
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // rotate after N MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type LokiConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"` // e.g. "http://localhost:3100"
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	} else if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.base_url %q is not an absolute URL", c.Backend.BaseURL))
	}
	if c.Backend.MaxRetries < 0 {
		errs = append(errs, errors.New("backend.max_retries must not be negative"))
	}

	switch strings.ToLower(c.Flow.Store) {
	case "", "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("flow.store must be redis or memory, got %q", c.Flow.Store))
	}

	if c.Nats.Enabled && c.Nats.URL == "" {
		errs = append(errs, errors.New("nats.url is required when nats is enabled"))
	}

	if c.Logging.Output.File.Enabled && c.Logging.Output.File.Path == "" {
		errs = append(errs, errors.New("logging.output.file.path is required when file logging is enabled"))
	}

	return errors.Join(errs...)
}

// FlowStore returns the normalized flow store driver name.
func (c *Config) FlowStore() string {
	if s := strings.ToLower(c.Flow.Store); s != "" {
		return s
	}
	return "redis"
}
