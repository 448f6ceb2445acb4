package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the supervision-api service.
type Config struct {
	// Service settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"supervision-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"SUPERVISION_API_PORT" envDefault:"8190"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"console"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`

	// OpenTelemetry
	EnableTracing bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`

	// Database
	DatabaseURL      string        `env:"DB_POSTGRESQL_DSN"`
	DBMaxConns       int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	MigrateOnStart   bool          `env:"DB_MIGRATE_ON_START" envDefault:"true"`
	MigrationLockTTL time.Duration `env:"MIGRATION_LOCK_TTL" envDefault:"2m"`

	// Redis backs the shared detail cache and the cross-replica event bus.
	// Both degrade to in-process implementations when unset.
	RedisURL           string        `env:"REDIS_URL"`
	CacheKeyPrefix     string        `env:"CACHE_KEY_PREFIX" envDefault:"supervision:"`
	DetailCacheTTL     time.Duration `env:"DETAIL_CACHE_TTL" envDefault:"30s"`
	EventChannelPrefix string        `env:"EVENT_CHANNEL_PREFIX" envDefault:"supervision:events:"`

	// Streaming
	StreamHeartbeat time.Duration `env:"STREAM_HEARTBEAT" envDefault:"15s"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DB_POSTGRESQL_DSN is required")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("SUPERVISION_API_PORT out of range: %d", c.HTTPPort)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	if c.StreamHeartbeat <= 0 {
		return fmt.Errorf("STREAM_HEARTBEAT must be positive")
	}
	if c.DBMaxConns <= 0 {
		c.DBMaxConns = 10
	}
	return nil
}

// Addr returns the HTTP server address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// RedisEnabled reports whether a Redis endpoint is configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.RedisURL) != ""
}
