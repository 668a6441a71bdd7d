// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package routing

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/helmgate-dev/helmgate/internal/statestore"
)

// CooldownConfig controls when repeated failures suppress a provider.
type CooldownConfig struct {
	// Threshold is the consecutive-failure count at and beyond which the
	// provider is skipped.
	Threshold int `mapstructure:"threshold"`

	// Window is how long the failure counter lives without a new
	// failure. Expiry doubles as the recovery path: an idle provider's
	// count decays to zero on its own.
	Window time.Duration `mapstructure:"window"`
}

// DefaultCooldownConfig matches a threshold of 3 failures within a
// 60-second window.
func DefaultCooldownConfig() CooldownConfig {
	return CooldownConfig{Threshold: 3, Window: 60 * time.Second}
}

// CooldownStatus is the point-in-time skip decision for one provider.
type CooldownStatus struct {
	ProviderID      string `json:"provider_id"`
	Count           int64  `json:"count"`
	Threshold       int    `json:"threshold"`
	CooldownSeconds int    `json:"cooldown_seconds"`
	ShouldSkip      bool   `json:"should_skip"`
}

// Cooldown tracks consecutive disqualifying failures per provider in the
// shared state store. All operations are idempotent and safe under
// concurrent callers; the read-then-decide gap is eventually consistent
// by design. Store failures are logged and ignored — a broken cache must
// never block a routing decision.
type Cooldown struct {
	kv     statestore.KV
	cfg    CooldownConfig
	logger *slog.Logger
}

// NewCooldown creates a cooldown tracker over the shared store.
func NewCooldown(kv statestore.KV, cfg CooldownConfig, logger *slog.Logger) *Cooldown {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultCooldownConfig().Threshold
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultCooldownConfig().Window
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cooldown{kv: kv, cfg: cfg, logger: logger}
}

// Status reads the provider's current failure count and derives the
// skip decision. An unreadable counter reads as zero.
func (c *Cooldown) Status(ctx context.Context, providerID string) CooldownStatus {
	st := CooldownStatus{
		ProviderID:      providerID,
		Threshold:       c.cfg.Threshold,
		CooldownSeconds: int(c.cfg.Window / time.Second),
	}

	raw, found, err := c.kv.Get(ctx, cooldownKey(providerID))
	if err != nil {
		c.logger.Warn("cooldown read failed, treating provider as available",
			"provider_id", providerID, "error", err)
		return st
	}
	if found {
		st.Count, _ = strconv.ParseInt(raw, 10, 64)
	}
	st.ShouldSkip = st.Count >= int64(c.cfg.Threshold)
	return st
}

// RecordFailure atomically increments the provider's failure counter and
// refreshes its expiry to the cooldown window.
func (c *Cooldown) RecordFailure(ctx context.Context, providerID string) {
	if _, err := c.kv.Increment(ctx, cooldownKey(providerID), c.cfg.Window); err != nil {
		c.logger.Warn("cooldown increment failed",
			"provider_id", providerID, "error", err)
	}
}

// Clear deletes the provider's failure counter. Called on any successful
// attempt (non-stream success, or first streamed chunk).
func (c *Cooldown) Clear(ctx context.Context, providerID string) {
	if err := c.kv.Delete(ctx, cooldownKey(providerID)); err != nil {
		c.logger.Warn("cooldown clear failed",
			"provider_id", providerID, "error", err)
	}
}

// Penalizable reports whether an upstream status code counts toward
// cooldown. Only transient server-side statuses and rate limits qualify.
func Penalizable(statusCode int) bool {
	switch statusCode {
	case 500, 502, 503, 504, 429:
		return true
	default:
		return false
	}
}
