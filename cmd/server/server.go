package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zapsales/supervision-api/internal/config"
	"github.com/zapsales/supervision-api/internal/domain/liveupdate"
	"github.com/zapsales/supervision-api/internal/domain/triage"
	"github.com/zapsales/supervision-api/internal/infrastructure/cache"
	"github.com/zapsales/supervision-api/internal/infrastructure/database"
	"github.com/zapsales/supervision-api/internal/infrastructure/eventbus"
	"github.com/zapsales/supervision-api/internal/infrastructure/logger"
	"github.com/zapsales/supervision-api/internal/infrastructure/observability"
	"github.com/zapsales/supervision-api/internal/infrastructure/repository/conversationrepo"
	"github.com/zapsales/supervision-api/internal/interfaces/httpserver"
	"github.com/zapsales/supervision-api/internal/interfaces/httpserver/handlers"
	"github.com/zapsales/supervision-api/internal/interfaces/httpserver/routes"
)

const localDetailCacheSize = 4096

// Application holds the main application components.
type Application struct {
	httpServer *httpserver.HTTPServer
	bus        *eventbus.RedisBus
	log        zerolog.Logger
}

// NewApplication creates a new application instance. bus is nil when
// events stay in process.
func NewApplication(httpServer *httpserver.HTTPServer, bus *eventbus.RedisBus, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		bus:        bus,
		log:        log,
	}
}

// Start runs the HTTP server and, with Redis, the event relay until ctx ends.
func (a *Application) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if a.bus != nil {
		g.Go(func() error {
			return a.bus.Run(gctx)
		})
	}
	g.Go(func() error {
		return a.httpServer.Run(gctx)
	})
	return g.Wait()
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	app, cleanup, err := buildApplication(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}
	defer cleanup()

	log.Info().
		Str("service", cfg.ServiceName).
		Int("port", cfg.HTTPPort).
		Str("environment", cfg.Environment).
		Bool("redis", cfg.RedisEnabled()).
		Msg("starting application")

	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return
	}

	log.Info().Msg("application exited cleanly")
}

func buildApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL, database.WithMaxConns(cfg.DBMaxConns))
	if err != nil {
		return nil, func() {}, err
	}
	closers = append(closers, pool.Close)

	gormDB, err := database.OpenGorm(pool)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}

	var redisCache *cache.RedisCache
	if cfg.RedisEnabled() {
		redisCache, err = cache.NewRedisCache(ctx, cfg.RedisURL, cfg.CacheKeyPrefix, log)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, func() {
			if err := redisCache.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close redis client")
			}
		})
	}

	if cfg.MigrateOnStart {
		var lock database.LockFunc
		if redisCache != nil {
			lock = func(name string, ttl time.Duration, fn func() error) error {
				return cache.WithLock(redisCache, name, ttl, fn)
			}
		}
		if err := database.MigrateWithLock(ctx, gormDB, lock, cfg.MigrationLockTTL, log); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("run migrations: %w", err)
		}
	}

	conversations := conversationrepo.NewConversationGormRepository(gormDB)
	triageService := triage.NewService(
		conversations,
		conversationrepo.NewMessagePgxRepository(pool),
		conversationrepo.NewHandoffGormRepository(gormDB),
		conversationrepo.NewTabCountPgxRepository(pool),
		conversations,
		log,
	)

	hub := eventbus.NewHub(eventbus.DefaultBuffer, log)
	var (
		broker      liveupdate.Broker = hub
		bus         *eventbus.RedisBus
		detailCache cache.Cache
	)
	checks := httpserver.ReadinessChecks{postgresCheck(pool)}
	if redisCache != nil {
		bus = eventbus.NewRedisBus(redisCache.Client(), hub, cfg.EventChannelPrefix, log)
		broker = bus
		detailCache = redisCache
		checks = append(checks, httpserver.ReadinessCheck{Name: "redis", Check: redisCache.HealthCheck})
	} else {
		local, err := cache.NewLocalCache(localDetailCacheSize)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		detailCache = local
	}

	handlerProvider := handlers.NewProvider(
		handlers.NewConversationHandler(triageService, detailCache, cfg, log),
		handlers.NewStreamHandler(broker, detailCache, cfg, log),
	)
	httpServer := httpserver.New(cfg, log, routes.NewProvider(handlerProvider), checks)

	return NewApplication(httpServer, bus, log), cleanup, nil
}

func postgresCheck(pool *pgxpool.Pool) httpserver.ReadinessCheck {
	return httpserver.ReadinessCheck{Name: "postgres", Check: pool.Ping}
}

func loadEnvFiles() {
	paths := []string{".env", "../.env", "../../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
