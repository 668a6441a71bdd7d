// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package statestore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
)

// Redis is a KV backed by a shared Redis instance so cooldown counters
// and dynamic weights are visible to every gateway replica.
type Redis struct {
	rdb *redis.Client
}

// NewRedis connects to Redis and validates the connection with a ping.
func NewRedis(cfg Config) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, helmerr.Wrapf(err, helmerr.CodeStateStoreFailure, "redis ping %s", cfg.Addr)
	}

	return &Redis{rdb: rdb}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, helmerr.Wrapf(err, helmerr.CodeStateStoreFailure, "redis GET %s", key)
	}
	return val, true, nil
}

func (r *Redis) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return helmerr.Wrapf(err, helmerr.CodeStateStoreFailure, "redis SET %s", key)
	}
	return nil
}

func (r *Redis) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	// INCR and EXPIRE run in one pipeline so the counter never outlives
	// its window because of a partial failure between the two commands.
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, helmerr.Wrapf(err, helmerr.CodeStateStoreFailure, "redis INCR %s", key)
	}
	return incr.Val(), nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		return helmerr.Wrapf(err, helmerr.CodeStateStoreFailure, "redis DEL %s", key)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
