package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Alijeyrad/assessflow/pkg/constants"
)

var GlobalConf *Config

func ReadConfig(configPath string) (*Config, error) {
	// A .env next to the config file seeds the environment for local runs.
	_ = godotenv.Load(filepath.Join(configPath, ".env"))

	v := viper.New()
	v.SetConfigName(constants.ConfigName)
	v.SetConfigType(constants.ConfigFormat)
	v.AddConfigPath(configPath)

	// Allow env vars to override config values.
	// e.g. ASSESSFLOW_BACKEND_BASE_URL overrides backend.base_url
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// The config file is optional when everything comes from the environment.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func MustReadConfig(path string) *Config {
	config, err := ReadConfig(path)
	if err != nil {
		panic(err)
	}

	GlobalConf = config

	return config
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.environment", constants.EnvDevelopment)
	v.SetDefault("server.cors.enabled", false)
	v.SetDefault("server.cors.allow_origins", []string{})
	v.SetDefault("server.rate_limit.max", 20)
	v.SetDefault("server.rate_limit.expiration_seconds", 30)

	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.timeout_seconds", 30)
	v.SetDefault("backend.max_retries", 2)
	v.SetDefault("backend.retry_initial_ms", 200)
	v.SetDefault("backend.user_cache_ttl_seconds", 60)
	v.SetDefault("backend.max_upload_mb", 20)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")

	v.SetDefault("flow.store", "redis")
	v.SetDefault("flow.ttl_hours", 72)
	v.SetDefault("flow.activity_max_len", 1000)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")

	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.service_name", constants.AppName)
	v.SetDefault("observability.service_version", "dev")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.otlp_endpoint", "")
	v.SetDefault("observability.tracing.sampling_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", false)
	v.SetDefault("observability.metrics.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output.stdout", true)
	v.SetDefault("logging.output.file.enabled", false)
	v.SetDefault("logging.output.file.path", "logs/assessflow.log")
	v.SetDefault("logging.output.loki.enabled", false)
}
