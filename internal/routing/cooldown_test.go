// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package routing_test

import (
	"context"
	"testing"
	"time"

	"github.com/helmgate-dev/helmgate/internal/routing"
	"github.com/helmgate-dev/helmgate/internal/statestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCooldown_SkipAfterThreshold(t *testing.T) {
	kv := statestore.NewMemory()
	cd := routing.NewCooldown(kv, routing.CooldownConfig{Threshold: 3, Window: time.Minute}, nil)
	ctx := context.Background()

	// Exactly threshold consecutive failures flips the skip decision.
	for i := 1; i <= 3; i++ {
		st := cd.Status(ctx, "openai")
		assert.Equal(t, int64(i-1), st.Count)
		assert.Equal(t, i-1 >= 3, st.ShouldSkip)
		cd.RecordFailure(ctx, "openai")
	}

	st := cd.Status(ctx, "openai")
	assert.Equal(t, int64(3), st.Count)
	assert.True(t, st.ShouldSkip)
	assert.Equal(t, 3, st.Threshold)
	assert.Equal(t, 60, st.CooldownSeconds)
}

func TestCooldown_ClearOnSuccess(t *testing.T) {
	kv := statestore.NewMemory()
	cd := routing.NewCooldown(kv, routing.CooldownConfig{Threshold: 2, Window: time.Minute}, nil)
	ctx := context.Background()

	cd.RecordFailure(ctx, "openai")
	cd.RecordFailure(ctx, "openai")
	require.True(t, cd.Status(ctx, "openai").ShouldSkip)

	cd.Clear(ctx, "openai")
	st := cd.Status(ctx, "openai")
	assert.Equal(t, int64(0), st.Count)
	assert.False(t, st.ShouldSkip)
}

func TestCooldown_WindowDecay(t *testing.T) {
	kv := statestore.NewMemory()
	now := time.Now()
	kv.SetNowFunc(func() time.Time { return now })

	cd := routing.NewCooldown(kv, routing.CooldownConfig{Threshold: 2, Window: 30 * time.Second}, nil)
	ctx := context.Background()

	cd.RecordFailure(ctx, "openai")
	cd.RecordFailure(ctx, "openai")
	require.True(t, cd.Status(ctx, "openai").ShouldSkip)

	// No explicit reset: the counter self-heals once the window elapses.
	now = now.Add(31 * time.Second)
	st := cd.Status(ctx, "openai")
	assert.Equal(t, int64(0), st.Count)
	assert.False(t, st.ShouldSkip)
}

func TestCooldown_IsolatedPerProvider(t *testing.T) {
	kv := statestore.NewMemory()
	cd := routing.NewCooldown(kv, routing.CooldownConfig{Threshold: 1, Window: time.Minute}, nil)
	ctx := context.Background()

	cd.RecordFailure(ctx, "openai")
	assert.True(t, cd.Status(ctx, "openai").ShouldSkip)
	assert.False(t, cd.Status(ctx, "anthropic").ShouldSkip)
}

func TestCooldown_DefaultsApplied(t *testing.T) {
	cd := routing.NewCooldown(statestore.NewMemory(), routing.CooldownConfig{}, nil)
	st := cd.Status(context.Background(), "p")
	assert.Equal(t, 3, st.Threshold)
	assert.Equal(t, 60, st.CooldownSeconds)
}

func TestPenalizable(t *testing.T) {
	for _, code := range []int{500, 502, 503, 504, 429} {
		assert.True(t, routing.Penalizable(code), "status %d", code)
	}
	for _, code := range []int{200, 201, 400, 401, 403, 404, 422, 501} {
		assert.False(t, routing.Penalizable(code), "status %d", code)
	}
}
