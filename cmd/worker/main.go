package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"phonenorm_backend/internal/countries"
	"phonenorm_backend/internal/countries/broadcast"
	countryrepo "phonenorm_backend/internal/countries/repository"
	"phonenorm_backend/internal/events"
	"phonenorm_backend/internal/normalization"
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
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	if !cfg.IsDatabaseEnabled() || !cfg.IsRedisEnabled() {
		panic("worker requires DATABASE_URL and REDIS_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
	defer pool.Close()

	var redisClient *redis.Client
	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		c, err := redisclient.New(ctx, cfg)
		if err != nil {
			return err
		}
		redisClient = c
		return nil
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = redisClient.Close() }()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	countryRepo := countryrepo.New(pool)
	loader, err := countries.NewLoader(cfg, countryRepo)
	if err != nil {
		log.Error("failed to select country table source", "error", err)
		panic("failed to select country table source: " + err.Error())
	}
	normalizer := phone.NewNormalizer(ctx, loader, log)

	// Worker-side wiring: no HTTP handlers, but the same services as the API.
	countriesModule := countries.NewModule(normalizer, nil, nil, eventBus, val, log)
	normalizationModule := normalization.NewModule(normalizer, normservice.Deps{
		Jobs: jobrepo.New(pool),
		Bus:  eventBus,
	}, cfg.GetMaxBatchSize(), val, log)
	normalizationModule.RegisterHandlers(eventBus)

	// Follow table reloads made through the API so jobs use the same rules.
	broadcaster := broadcast.New(redisClient, "worker-"+uuid.NewString()[:8], log)
	listener, err := broadcaster.Subscribe(ctx)
	if err != nil {
		log.Warn("country table reload broadcast disabled", "error", err)
	} else {
		go func() {
			if err := countriesModule.FollowPeers(ctx, listener); err != nil {
				log.Error("reload listener stopped", "error", err)
			}
		}()
	}

	worker, err := scheduler.NewWorker(cfg, normalizationModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
