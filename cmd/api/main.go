package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"phonenorm_backend/internal/countries"
	"phonenorm_backend/internal/countries/broadcast"
	countryrepo "phonenorm_backend/internal/countries/repository"
	countryservice "phonenorm_backend/internal/countries/service"
	"phonenorm_backend/internal/events"
	apphttp "phonenorm_backend/internal/http"
	"phonenorm_backend/internal/http/router"
	"phonenorm_backend/internal/normalization"
	"phonenorm_backend/internal/normalization/cache"
	jobrepo "phonenorm_backend/internal/normalization/repository"
	normservice "phonenorm_backend/internal/normalization/service"
	"phonenorm_backend/internal/scheduler"
	"phonenorm_backend/platform/config"
	"phonenorm_backend/platform/db"
	"phonenorm_backend/platform/logger"
	"phonenorm_backend/platform/phone"
	"phonenorm_backend/platform/redisclient"
	"phonenorm_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "countryTable", cfg.CountryTableSource)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	pool := connectDatabase(ctx, cfg, log)
	if pool != nil {
		defer pool.Close()
	}

	redisClient := connectRedis(ctx, cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Country Table
	// ========================================================================

	var countryRepo *countryrepo.Repository
	if pool != nil {
		countryRepo = countryrepo.New(pool)
	}

	loader, err := countries.NewLoader(cfg, countryRepo)
	if err != nil {
		log.Error("failed to select country table source", "error", err)
		panic("failed to select country table source: " + err.Error())
	}
	normalizer := phone.NewNormalizer(ctx, loader, log)

	var store countryservice.Store
	if cfg.CountryTableSource == config.CountrySourcePostgres {
		store = countryRepo
	}

	var (
		announcer   countryservice.Announcer
		broadcaster *broadcast.Broadcaster
	)
	if redisClient != nil {
		broadcaster = broadcast.New(redisClient, instanceID(), log)
		announcer = broadcaster
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	countriesModule := countries.NewModule(normalizer, store, announcer, eventBus, val, log)

	deps := normservice.Deps{Bus: eventBus}
	if redisClient != nil {
		deps.Cache = cache.New(redisClient, cfg.GetNormalizeCacheTTL(), log)
	}
	if pool != nil {
		deps.Jobs = jobrepo.New(pool)
	}
	enqueuer, closeEnqueuer := initJobEnqueuer(cfg, log)
	if closeEnqueuer != nil {
		defer closeEnqueuer()
	}
	if enqueuer != nil {
		deps.Enqueuer = enqueuer
	}

	normalizationModule := normalization.NewModule(normalizer, deps, cfg.GetMaxBatchSize(), val, log)
	normalizationModule.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: map[string]apphttp.HealthChecker{
			"database": db.NewPoolAdapter(pool),
			"redis":    redisclient.NewHealthAdapter(redisClient),
		},
		EventBus: eventBus,
		Modules: []apphttp.Module{
			countriesModule,
			normalizationModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if broadcaster != nil {
		listener, err := broadcaster.Subscribe(ctx)
		if err != nil {
			log.Warn("country table reload broadcast disabled", "error", err)
		} else {
			g.Go(func() error {
				return countriesModule.FollowPeers(gctx, listener)
			})
		}
	}

	// Jobs are processed in-process when both their store and queue exist.
	if pool != nil && redisClient != nil {
		worker, err := scheduler.NewWorker(cfg, normalizationModule.Service(), log)
		if err != nil {
			log.Error("failed to initialize embedded worker", "error", err)
		} else {
			g.Go(func() error {
				worker.Run(gctx)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
	eventBus.Wait()
}

func connectDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) *pgxpool.Pool {
	if !cfg.IsDatabaseEnabled() {
		log.Warn("DATABASE_URL not configured; background jobs and the postgres country table are disabled")
		return nil
	}

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	log.Info("database connection established")
	return pool
}

func connectRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *redis.Client {
	if !cfg.IsRedisEnabled() {
		log.Warn("REDIS_URL not configured; result cache, reload broadcast and background jobs disabled")
		return nil
	}

	var client *redis.Client
	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		c, err := redisclient.New(ctx, cfg)
		if err != nil {
			return err
		}
		client = c
		return nil
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	log.Info("redis connection established")
	return client
}

func initJobEnqueuer(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize job scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

// instanceID names this process on the reload broadcast channel.
func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "api"
	}
	return host + "-" + uuid.NewString()[:8]
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
