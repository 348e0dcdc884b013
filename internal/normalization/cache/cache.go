// Package cache memoizes normalization results in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"phonenorm_backend/platform/logger"
	"phonenorm_backend/platform/phone"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "phonenorm:normalize:"

// Key identifies one cached result. Fingerprint ties it to the rules in effect.
type Key struct {
	Fingerprint string
	Region      string
	CallingCode string
	Raw         string
}

func (k Key) String() string {
	sum := sha256.Sum256([]byte(k.Region + "\x00" + k.CallingCode + "\x00" + k.Raw))
	return keyPrefix + k.Fingerprint + ":" + hex.EncodeToString(sum[:16])
}

// Redis caches results with a fixed TTL. Redis failures are logged and treated
// as misses; the cache never fails a request.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// New creates a Redis-backed result cache.
func New(client *redis.Client, ttl time.Duration, log *logger.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, log: log}
}

// Get returns the cached result for key.
func (r *Redis) Get(ctx context.Context, key Key) (phone.Result, bool) {
	raw, err := r.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return phone.Result{}, false
	}
	if err != nil {
		r.log.CacheError("get", err)
		return phone.Result{}, false
	}

	var res phone.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		r.log.CacheError("decode", err)
		return phone.Result{}, false
	}
	return res, true
}

// Set stores a result. A non-positive TTL disables caching.
func (r *Redis) Set(ctx context.Context, key Key, res phone.Result) {
	if r.ttl <= 0 {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		r.log.CacheError("encode", err)
		return
	}
	if err := r.client.Set(ctx, key.String(), payload, r.ttl).Err(); err != nil {
		r.log.CacheError("set", err)
	}
}
