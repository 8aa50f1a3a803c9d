package redis

import (
	"time"

	"github.com/Alijeyrad/assessflow/config"
)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	DB       int
	Username string
	Password string

	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// FromCentralConfig overlays the configured values on DefaultConfig.
func FromCentralConfig(c config.RedisConfig) Config {
	cfg := DefaultConfig()
	cfg.DB = c.DB
	cfg.Username = c.Username
	cfg.Password = c.Password
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	if c.PoolSize > 0 {
		cfg.PoolSize = c.PoolSize
	}
	if c.MinIdleConns > 0 {
		cfg.MinIdleConns = c.MinIdleConns
	}
	cfg.DialTimeout = seconds(c.DialTimeoutSeconds, cfg.DialTimeout)
	cfg.ReadTimeout = seconds(c.ReadTimeoutSeconds, cfg.ReadTimeout)
	cfg.WriteTimeout = seconds(c.WriteTimeoutSeconds, cfg.WriteTimeout)
	return cfg
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
