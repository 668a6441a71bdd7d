// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package routing

import (
	"github.com/helmgate-dev/helmgate/internal/catalog"
	"github.com/helmgate-dev/helmgate/pkg/health"
)

// FilterDown removes candidates whose cached health is down, unless
// doing so would empty the set — stale or flapping health data must
// never starve a request entirely. With health checking disabled the
// input is returned unchanged regardless of cache contents.
func FilterDown(candidates []catalog.PhysicalModel, snapshots map[string]health.Snapshot, healthCheckEnabled bool) []catalog.PhysicalModel {
	if !healthCheckEnabled || len(candidates) == 0 {
		return candidates
	}

	kept := make([]catalog.PhysicalModel, 0, len(candidates))
	for _, c := range candidates {
		if s, ok := snapshots[c.ProviderID]; ok && s.Down() {
			continue
		}
		kept = append(kept, c)
	}

	if len(kept) == 0 {
		return candidates
	}
	return kept
}
