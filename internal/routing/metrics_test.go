// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package routing_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/helmgate-dev/helmgate/internal/catalog"
	"github.com/helmgate-dev/helmgate/internal/routing"
	"github.com/helmgate-dev/helmgate/internal/statestore"
	"github.com/helmgate-dev/helmgate/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenKV fails every operation, for exercising best-effort reads.
type brokenKV struct{}

func (brokenKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("store down")
}
func (brokenKV) SetWithTTL(context.Context, string, string, time.Duration) error {
	return errors.New("store down")
}
func (brokenKV) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("store down")
}
func (brokenKV) Delete(context.Context, string) error { return errors.New("store down") }
func (brokenKV) Close() error                         { return nil }

func seedMetrics(t *testing.T, kv statestore.KV, logical, provider string, m routing.Metrics) {
	t.Helper()
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, kv.SetWithTTL(context.Background(),
		routing.MetricsKey(logical, provider), string(raw), 0))
}

func seedHealth(t *testing.T, kv statestore.KV, provider string, s health.Snapshot) {
	t.Helper()
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, kv.SetWithTTL(context.Background(),
		routing.HealthKey(provider), string(raw), 0))
}

func TestStateReader_MetricsFor(t *testing.T) {
	kv := statestore.NewMemory()
	seedMetrics(t, kv, "gpt-large", "openai", routing.Metrics{
		LatencyP95MS: 350, LatencyP99MS: 500, ErrorRate: 0.02,
		Status: health.StatusHealthy, LastUpdated: time.Now().UTC(),
	})
	require.NoError(t, kv.SetWithTTL(context.Background(),
		routing.MetricsKey("gpt-large", "broken"), "{not json", 0))

	r := routing.NewStateReader(kv, nil)
	got := r.MetricsFor(context.Background(), "gpt-large", []string{"openai", "broken", "absent"})

	require.Len(t, got, 1)
	m := got["openai"]
	assert.Equal(t, "gpt-large", m.LogicalModel)
	assert.Equal(t, "openai", m.ProviderID)
	assert.InDelta(t, 350, m.LatencyP95MS, 0.001)
}

func TestStateReader_HealthFor(t *testing.T) {
	kv := statestore.NewMemory()
	seedHealth(t, kv, "openai", health.Snapshot{Status: health.StatusDegraded, ResponseTimeMS: 800})

	r := routing.NewStateReader(kv, nil)
	got := r.HealthFor(context.Background(), []string{"openai", "absent"})

	require.Len(t, got, 1)
	assert.Equal(t, health.StatusDegraded, got["openai"].Status)
	assert.Equal(t, "openai", got["openai"].ProviderID)
}

func TestStateReader_DynamicWeights(t *testing.T) {
	kv := statestore.NewMemory()
	ctx := context.Background()
	require.NoError(t, kv.SetWithTTL(ctx, routing.WeightKey("gpt-large", "openai"), "0.35", 0))
	require.NoError(t, kv.SetWithTTL(ctx, routing.WeightKey("gpt-large", "garbage"), "x", 0))
	require.NoError(t, kv.SetWithTTL(ctx, routing.WeightKey("gpt-large", "negative"), "-2", 0))

	candidates := []catalog.PhysicalModel{
		{ProviderID: "openai"}, {ProviderID: "garbage"}, {ProviderID: "negative"}, {ProviderID: "absent"},
	}

	r := routing.NewStateReader(kv, nil)
	got := r.DynamicWeights(ctx, "gpt-large", candidates)

	assert.InDelta(t, 0.35, got["openai"], 0.001)
	assert.InDelta(t, 1.0, got["garbage"], 0.001)
	assert.InDelta(t, 1.0, got["negative"], 0.001)
	assert.InDelta(t, 1.0, got["absent"], 0.001)
}

func TestStateReader_BestEffortOnStoreFailure(t *testing.T) {
	r := routing.NewStateReader(brokenKV{}, nil)
	ctx := context.Background()

	assert.Empty(t, r.MetricsFor(ctx, "m", []string{"p"}))
	assert.Empty(t, r.HealthFor(ctx, []string{"p"}))

	weights := r.DynamicWeights(ctx, "m", []catalog.PhysicalModel{{ProviderID: "p"}})
	assert.InDelta(t, 1.0, weights["p"], 0.001)
}
