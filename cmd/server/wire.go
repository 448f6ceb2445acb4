//go:build wireinject
// +build wireinject

package main

import (
	"context"
	"time"

	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/zapsales/supervision-api/internal/config"
	"github.com/zapsales/supervision-api/internal/domain/liveupdate"
	"github.com/zapsales/supervision-api/internal/domain/triage"
	"github.com/zapsales/supervision-api/internal/infrastructure/cache"
	"github.com/zapsales/supervision-api/internal/infrastructure/database"
	"github.com/zapsales/supervision-api/internal/infrastructure/eventbus"
	"github.com/zapsales/supervision-api/internal/infrastructure/repository/conversationrepo"
	"github.com/zapsales/supervision-api/internal/interfaces/httpserver"
	"github.com/zapsales/supervision-api/internal/interfaces/httpserver/handlers"
	"github.com/zapsales/supervision-api/internal/interfaces/httpserver/routes"
)

// ProviderSet is the wire provider set for a Redis-backed deployment.
var ProviderSet = wire.NewSet(
	// Infrastructure providers
	ProvidePool,
	ProvideGorm,
	ProvideRedisCache,
	ProvideHub,
	ProvideRedisBus,
	ProvideReadinessChecks,
	conversationrepo.RepositoryProvider,
	wire.Bind(new(conversationrepo.Querier), new(*pgxpool.Pool)),
	wire.Bind(new(cache.Cache), new(*cache.RedisCache)),
	wire.Bind(new(liveupdate.Invalidator), new(*cache.RedisCache)),
	wire.Bind(new(liveupdate.Broker), new(*eventbus.RedisBus)),

	// Domain providers
	ProvideTriageService,

	// Interface providers
	handlers.HandlerProvider,
	routes.NewProvider,
	httpserver.New,

	// Application
	NewApplication,
)

// ProvidePool connects to Postgres.
func ProvidePool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	pool, err := database.Connect(ctx, cfg.DatabaseURL, database.WithMaxConns(cfg.DBMaxConns))
	if err != nil {
		return nil, nil, err
	}
	return pool, pool.Close, nil
}

// ProvideGorm opens gorm over the pool and applies pending migrations.
func ProvideGorm(ctx context.Context, pool *pgxpool.Pool, redisCache *cache.RedisCache, cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	gormDB, err := database.OpenGorm(pool)
	if err != nil {
		return nil, err
	}
	if cfg.MigrateOnStart {
		lock := func(name string, ttl time.Duration, fn func() error) error {
			return cache.WithLock(redisCache, name, ttl, fn)
		}
		if err := database.MigrateWithLock(ctx, gormDB, lock, cfg.MigrationLockTTL, log); err != nil {
			return nil, err
		}
	}
	return gormDB, nil
}

// ProvideRedisCache connects the shared cache.
func ProvideRedisCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*cache.RedisCache, func(), error) {
	redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.CacheKeyPrefix, log)
	if err != nil {
		return nil, nil, err
	}
	return redisCache, func() { _ = redisCache.Close() }, nil
}

func ProvideHub(log zerolog.Logger) *eventbus.Hub {
	return eventbus.NewHub(eventbus.DefaultBuffer, log)
}

func ProvideRedisBus(redisCache *cache.RedisCache, hub *eventbus.Hub, cfg *config.Config, log zerolog.Logger) *eventbus.RedisBus {
	return eventbus.NewRedisBus(redisCache.Client(), hub, cfg.EventChannelPrefix, log)
}

func ProvideReadinessChecks(pool *pgxpool.Pool, redisCache *cache.RedisCache) httpserver.ReadinessChecks {
	return httpserver.ReadinessChecks{
		postgresCheck(pool),
		{Name: "redis", Check: redisCache.HealthCheck},
	}
}

// ProvideTriageService provides the triage service.
func ProvideTriageService(
	conversations triage.ConversationReader,
	messages triage.MessageReader,
	handoffs triage.HandoffReader,
	aggregate triage.AggregateReader,
	scopes triage.ScopeResolver,
	log zerolog.Logger,
) triage.Service {
	return triage.NewService(conversations, messages, handoffs, aggregate, scopes, log)
}

// CreateApplication creates the application with all dependencies wired.
func CreateApplication(
	ctx context.Context,
	cfg *config.Config,
	log zerolog.Logger,
) (*Application, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
