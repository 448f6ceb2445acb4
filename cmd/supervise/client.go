package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/zapsales/supervision-api/internal/infrastructure/cache"
	"github.com/zapsales/supervision-api/internal/infrastructure/supervisionclient"
)

// cliConfig is read from the environment; flags take precedence.
type cliConfig struct {
	APIURL         string        `env:"SUPERVISION_API_URL" envDefault:"http://localhost:8190"`
	RedisURL       string        `env:"REDIS_URL"`
	CacheKeyPrefix string        `env:"SUPERVISE_CACHE_PREFIX" envDefault:"supervise:"`
	CacheSize      int           `env:"SUPERVISE_CACHE_SIZE" envDefault:"512"`
	PollInterval   time.Duration `env:"SUPERVISE_POLL_INTERVAL" envDefault:"10s"`
}

type session struct {
	cfg    cliConfig
	log    zerolog.Logger
	client *supervisionclient.Client
	close  func()
}

func loadCLIConfig(cmd *cobra.Command) (cliConfig, error) {
	var cfg cliConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	if v, _ := cmd.Flags().GetString("api-url"); v != "" {
		cfg.APIURL = v
	}
	if v, _ := cmd.Flags().GetString("redis-url"); v != "" {
		cfg.RedisURL = v
	}
	return cfg, nil
}

func newCLILogger(cmd *cobra.Command) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// openSession builds the API client over Redis when configured, otherwise
// over an in-process LRU.
func openSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := loadCLIConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := newCLILogger(cmd)

	var (
		store   cache.Cache
		closeFn = func() {}
	)
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.CacheKeyPrefix, log)
		if err != nil {
			return nil, err
		}
		store = redisCache
		closeFn = func() { _ = redisCache.Close() }
	} else {
		local, err := cache.NewLocalCache(cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		store = local
	}

	client, err := supervisionclient.New(cfg.APIURL, store, log)
	if err != nil {
		closeFn()
		return nil, err
	}
	return &session{cfg: cfg, log: log, client: client, close: closeFn}, nil
}
