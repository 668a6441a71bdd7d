// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

// Package feedback turns attempt outcomes into the adaptive per-provider
// weights the scorer reads back.
package feedback

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/helmgate-dev/helmgate/internal/routing"
	"github.com/helmgate-dev/helmgate/internal/statestore"
)

// Config tunes the exponentially-weighted average.
type Config struct {
	// Alpha is the smoothing factor: the share of the newest outcome in
	// the updated weight. Zero means DefaultAlpha.
	Alpha float64 `mapstructure:"alpha"`

	// TTL bounds how long a learned weight outlives its last update, so
	// an idle provider drifts back to neutral. Zero means DefaultTTL.
	TTL time.Duration `mapstructure:"ttl"`
}

const (
	DefaultAlpha = 0.3
	DefaultTTL   = 10 * time.Minute

	neutralWeight = 1.0
)

// Recorder maintains one EWMA weight per (logical model, provider) in
// the shared store. Updates are read-modify-write without a lock:
// concurrent attempts may lose an update, which is acceptable for an
// advisory scoring input.
type Recorder struct {
	kv     statestore.KV
	cfg    Config
	logger *slog.Logger
}

func NewRecorder(kv statestore.KV, cfg Config, logger *slog.Logger) *Recorder {
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = DefaultAlpha
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{kv: kv, cfg: cfg, logger: logger}
}

// RecordSuccess moves the provider's weight toward 1.
func (r *Recorder) RecordSuccess(ctx context.Context, logicalModel, providerID string, _ time.Duration) {
	r.update(ctx, logicalModel, providerID, 1.0)
}

// RecordFailure moves the provider's weight toward 0.
func (r *Recorder) RecordFailure(ctx context.Context, logicalModel, providerID string) {
	r.update(ctx, logicalModel, providerID, 0.0)
}

func (r *Recorder) update(ctx context.Context, logicalModel, providerID string, outcome float64) {
	key := routing.WeightKey(logicalModel, providerID)

	prev := neutralWeight
	raw, found, err := r.kv.Get(ctx, key)
	if err != nil {
		r.logger.Warn("dynamic weight read failed, starting from neutral",
			"logical_model", logicalModel, "provider_id", providerID, "error", err)
	} else if found {
		if w, perr := strconv.ParseFloat(raw, 64); perr == nil && w >= 0 {
			prev = w
		}
	}

	next := r.cfg.Alpha*outcome + (1-r.cfg.Alpha)*prev
	if err := r.kv.SetWithTTL(ctx, key, strconv.FormatFloat(next, 'f', -1, 64), r.cfg.TTL); err != nil {
		r.logger.Warn("dynamic weight write failed",
			"logical_model", logicalModel, "provider_id", providerID, "error", err)
	}
}
