// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package routing_test

import (
	"testing"

	"github.com/helmgate-dev/helmgate/internal/catalog"
	"github.com/helmgate-dev/helmgate/internal/routing"
	"github.com/helmgate-dev/helmgate/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterCandidates() []catalog.PhysicalModel {
	return []catalog.PhysicalModel{
		{ProviderID: "a", ModelID: "m"},
		{ProviderID: "b", ModelID: "m"},
		{ProviderID: "c", ModelID: "m"},
	}
}

func TestFilterDown_RemovesDownProviders(t *testing.T) {
	snaps := map[string]health.Snapshot{
		"b": {Status: health.StatusDown},
		"c": {Status: health.StatusDegraded},
	}

	got := routing.FilterDown(filterCandidates(), snaps, true)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ProviderID)
	assert.Equal(t, "c", got[1].ProviderID)
}

func TestFilterDown_NeverStarvesTheRequest(t *testing.T) {
	snaps := map[string]health.Snapshot{
		"a": {Status: health.StatusDown},
		"b": {Status: health.StatusDown},
		"c": {Status: health.StatusDown},
	}

	// Everything down: the original list survives untouched.
	got := routing.FilterDown(filterCandidates(), snaps, true)
	assert.Len(t, got, 3)
}

func TestFilterDown_DisabledIsNoOp(t *testing.T) {
	snaps := map[string]health.Snapshot{
		"a": {Status: health.StatusDown},
	}

	got := routing.FilterDown(filterCandidates(), snaps, false)
	assert.Len(t, got, 3)
}

func TestFilterDown_MissingSnapshotsKeepCandidate(t *testing.T) {
	got := routing.FilterDown(filterCandidates(), nil, true)
	assert.Len(t, got, 3)
}
