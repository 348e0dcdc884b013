// Package redisclient builds the shared go-redis client from configuration.
// This is part of the platform layer and contains no business logic.
package redisclient

import (
	"context"
	"crypto/tls"
	"fmt"

	"phonenorm_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

// Options parses REDIS_URL and applies REDIS_TLS_INSECURE.
func Options(cfg config.RedisConfig) (*redis.Options, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return opt, nil
}

// New connects and pings Redis.
func New(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// HealthAdapter exposes a client as a readiness check. A nil client (Redis not
// configured) is always healthy.
type HealthAdapter struct {
	client *redis.Client
}

// NewHealthAdapter wraps client for the HTTP health endpoint.
func NewHealthAdapter(client *redis.Client) HealthAdapter {
	return HealthAdapter{client: client}
}

// Ping checks the Redis connection.
func (a HealthAdapter) Ping(ctx context.Context) error {
	if a.client == nil {
		return nil
	}
	return a.client.Ping(ctx).Err()
}
