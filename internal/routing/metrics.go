// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

// Package routing implements the scheduling half of the gateway: it
// turns a logical model plus shared runtime state (metrics, health,
// cooldown counters, dynamic weights) into a deterministic, scored
// ordering of physical upstreams.
package routing

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/helmgate-dev/helmgate/internal/statestore"
	"github.com/helmgate-dev/helmgate/pkg/health"
)

// Key layout in the shared state store. The metrics and health entries
// are written by the out-of-band pipelines; the gateway only reads them.
const (
	metricsKeyPrefix  = "helmgate:metrics:"
	healthKeyPrefix   = "helmgate:health:"
	weightKeyPrefix   = "helmgate:dynweight:"
	cooldownKeyPrefix = "helmgate:failcount:"
)

// MetricsKey is the state store key for a (logical model, provider)
// metrics snapshot.
func MetricsKey(logicalModel, providerID string) string {
	return metricsKeyPrefix + logicalModel + ":" + providerID
}

// HealthKey is the state store key for a provider's cached health.
func HealthKey(providerID string) string {
	return healthKeyPrefix + providerID
}

// WeightKey is the state store key for a (logical model, provider)
// dynamic weight. The feedback recorder writes it; the weight loader
// reads it.
func WeightKey(logicalModel, providerID string) string {
	return weightKeyPrefix + logicalModel + ":" + providerID
}

func cooldownKey(providerID string) string {
	return cooldownKeyPrefix + providerID
}

// Metrics is the per-(logical model, provider) routing snapshot produced
// by the metrics pipeline. A few seconds of staleness is tolerated.
type Metrics struct {
	LogicalModel    string        `json:"logical_model"`
	ProviderID      string        `json:"provider_id"`
	LatencyP95MS    float64       `json:"latency_p95_ms"`
	LatencyP99MS    float64       `json:"latency_p99_ms"`
	ErrorRate       float64       `json:"error_rate"`
	SuccessQPS1M    float64       `json:"success_qps_1m"`
	TotalRequests1M int64         `json:"total_requests_1m"`
	Status          health.Status `json:"status"`
	LastUpdated     time.Time     `json:"last_updated"`

	// Synthesized marks snapshots the scorer fabricated from cached
	// health (or neutral defaults) because no pipeline entry existed.
	Synthesized bool `json:"-"`
}

// neutralLatencyMS is assumed when neither metrics nor a health probe
// provide a latency reading.
const neutralLatencyMS = 2000

// StateReader reads routing inputs from the shared state store.
// All reads are best-effort: a store failure is logged and treated as
// "no data" so the decision path never blocks on the cache.
type StateReader struct {
	kv     statestore.KV
	logger *slog.Logger
}

// NewStateReader wraps a KV for metrics/health/weight reads.
func NewStateReader(kv statestore.KV, logger *slog.Logger) *StateReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateReader{kv: kv, logger: logger}
}

// MetricsFor returns the metrics snapshots available for the given
// candidates' providers. Missing or unreadable entries are absent from
// the result.
func (r *StateReader) MetricsFor(ctx context.Context, logicalModel string, providerIDs []string) map[string]Metrics {
	out := make(map[string]Metrics, len(providerIDs))
	for _, pid := range providerIDs {
		raw, found, err := r.kv.Get(ctx, MetricsKey(logicalModel, pid))
		if err != nil {
			r.logger.Warn("metrics read failed, continuing without entry",
				"logical_model", logicalModel, "provider_id", pid, "error", err)
			continue
		}
		if !found {
			continue
		}

		var m Metrics
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			r.logger.Warn("discarding malformed metrics entry",
				"logical_model", logicalModel, "provider_id", pid, "error", err)
			continue
		}
		m.LogicalModel = logicalModel
		m.ProviderID = pid
		out[pid] = m
	}
	return out
}

// HealthFor returns the cached health snapshots for the given providers.
// Missing or unreadable entries are absent from the result.
func (r *StateReader) HealthFor(ctx context.Context, providerIDs []string) map[string]health.Snapshot {
	out := make(map[string]health.Snapshot, len(providerIDs))
	for _, pid := range providerIDs {
		raw, found, err := r.kv.Get(ctx, HealthKey(pid))
		if err != nil {
			r.logger.Warn("health read failed, continuing without entry",
				"provider_id", pid, "error", err)
			continue
		}
		if !found {
			continue
		}

		var s health.Snapshot
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			r.logger.Warn("discarding malformed health entry",
				"provider_id", pid, "error", err)
			continue
		}
		s.ProviderID = pid
		out[pid] = s
	}
	return out
}
