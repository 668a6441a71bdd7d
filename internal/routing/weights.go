// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package routing

import (
	"context"
	"strconv"

	"github.com/helmgate-dev/helmgate/internal/catalog"
)

// neutralDynamicWeight is assumed for providers without recorded
// feedback.
const neutralDynamicWeight = 1.0

// DynamicWeights loads the adaptive per-provider weights the feedback
// recorder maintains for a logical model. Missing, unreadable or
// malformed entries default to neutral; a slow provider is penalized by
// its own feedback, never by a cache hiccup.
func (r *StateReader) DynamicWeights(ctx context.Context, logicalModel string, candidates []catalog.PhysicalModel) map[string]float64 {
	out := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		out[c.ProviderID] = neutralDynamicWeight

		raw, found, err := r.kv.Get(ctx, WeightKey(logicalModel, c.ProviderID))
		if err != nil {
			r.logger.Warn("dynamic weight read failed, using neutral",
				"logical_model", logicalModel, "provider_id", c.ProviderID, "error", err)
			continue
		}
		if !found {
			continue
		}

		w, err := strconv.ParseFloat(raw, 64)
		if err != nil || w < 0 {
			r.logger.Warn("discarding malformed dynamic weight",
				"logical_model", logicalModel, "provider_id", c.ProviderID, "value", raw)
			continue
		}
		out[c.ProviderID] = w
	}
	return out
}
