// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

// Package statestore provides the shared key-value state used by the
// routing engine: cooldown counters, dynamic weights, metrics snapshots
// and the health cache. All mutation goes through atomic operations on
// the backing store so concurrent requests never corrupt a value; reads
// are eventually consistent by design.
package statestore

import (
	"context"
	"time"

	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
)

// KV is the minimal key-value surface the routing engine needs.
type KV interface {
	// Get returns the value for key. found is false for missing or
	// expired keys.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// SetWithTTL stores value under key, expiring after ttl. A zero ttl
	// stores the key without expiry.
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error

	// Increment atomically adds one to the counter at key and refreshes
	// its expiry to ttl, returning the new count. A missing key counts
	// from zero.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Config selects and configures the state store backend.
type Config struct {
	Backend  string `mapstructure:"backend"` // "memory" or "redis"
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// New creates a KV for the configured backend.
func New(cfg Config) (KV, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendRedis:
		return NewRedis(cfg)
	default:
		return nil, helmerr.Errorf(helmerr.CodeStateStoreUnsupported,
			"unsupported state store backend: %q", cfg.Backend)
	}
}
