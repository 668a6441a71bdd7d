// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package feedback_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmgate-dev/helmgate/internal/catalog"
	"github.com/helmgate-dev/helmgate/internal/feedback"
	"github.com/helmgate-dev/helmgate/internal/routing"
	"github.com/helmgate-dev/helmgate/internal/statestore"
)

func storedWeight(t *testing.T, kv statestore.KV, model, provider string) float64 {
	t.Helper()
	raw, found, err := kv.Get(context.Background(), routing.WeightKey(model, provider))
	require.NoError(t, err)
	require.True(t, found)
	w, err := strconv.ParseFloat(raw, 64)
	require.NoError(t, err)
	return w
}

func TestRecorderFailureDragsWeightDown(t *testing.T) {
	kv := statestore.NewMemory()
	rec := feedback.NewRecorder(kv, feedback.Config{Alpha: 0.5}, nil)
	ctx := context.Background()

	// From neutral 1.0: failure -> 0.5, failure -> 0.25.
	rec.RecordFailure(ctx, "gpt-4", "openai")
	assert.InDelta(t, 0.5, storedWeight(t, kv, "gpt-4", "openai"), 1e-9)

	rec.RecordFailure(ctx, "gpt-4", "openai")
	assert.InDelta(t, 0.25, storedWeight(t, kv, "gpt-4", "openai"), 1e-9)
}

func TestRecorderSuccessPullsWeightBackUp(t *testing.T) {
	kv := statestore.NewMemory()
	rec := feedback.NewRecorder(kv, feedback.Config{Alpha: 0.5}, nil)
	ctx := context.Background()

	rec.RecordFailure(ctx, "gpt-4", "openai")
	rec.RecordFailure(ctx, "gpt-4", "openai")
	rec.RecordSuccess(ctx, "gpt-4", "openai", 120*time.Millisecond)
	// 0.25 -> 0.5*1 + 0.5*0.25 = 0.625
	assert.InDelta(t, 0.625, storedWeight(t, kv, "gpt-4", "openai"), 1e-9)
}

func TestRecorderWeightsAreReadBackByLoader(t *testing.T) {
	kv := statestore.NewMemory()
	rec := feedback.NewRecorder(kv, feedback.Config{Alpha: 0.5}, nil)
	ctx := context.Background()

	rec.RecordFailure(ctx, "gpt-4", "flaky")

	reader := routing.NewStateReader(kv, nil)
	weights := reader.DynamicWeights(ctx, "gpt-4", []catalog.PhysicalModel{
		{ProviderID: "flaky"},
		{ProviderID: "steady"},
	})
	assert.InDelta(t, 0.5, weights["flaky"], 1e-9)
	assert.InDelta(t, 1.0, weights["steady"], 1e-9)
}

func TestRecorderIsolatesModelsAndProviders(t *testing.T) {
	kv := statestore.NewMemory()
	rec := feedback.NewRecorder(kv, feedback.Config{Alpha: 0.5}, nil)
	ctx := context.Background()

	rec.RecordFailure(ctx, "gpt-4", "openai")

	_, found, err := kv.Get(ctx, routing.WeightKey("gpt-4", "anthropic"))
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = kv.Get(ctx, routing.WeightKey("claude-big", "openai"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecorderLearnedWeightsExpire(t *testing.T) {
	kv := statestore.NewMemory()
	now := time.Now()
	kv.SetNowFunc(func() time.Time { return now })

	rec := feedback.NewRecorder(kv, feedback.Config{Alpha: 0.5, TTL: time.Minute}, nil)
	ctx := context.Background()

	rec.RecordFailure(ctx, "gpt-4", "openai")
	_, found, err := kv.Get(ctx, routing.WeightKey("gpt-4", "openai"))
	require.NoError(t, err)
	require.True(t, found)

	now = now.Add(2 * time.Minute)
	_, found, err = kv.Get(ctx, routing.WeightKey("gpt-4", "openai"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecorderClampsBadConfig(t *testing.T) {
	kv := statestore.NewMemory()
	rec := feedback.NewRecorder(kv, feedback.Config{Alpha: -3}, nil)
	ctx := context.Background()

	rec.RecordFailure(ctx, "gpt-4", "openai")
	// DefaultAlpha 0.3: 0.3*0 + 0.7*1.0
	assert.InDelta(t, 0.7, storedWeight(t, kv, "gpt-4", "openai"), 1e-9)
}
