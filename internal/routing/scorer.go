// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package routing

import (
	"fmt"
	"sort"

	"github.com/helmgate-dev/helmgate/internal/catalog"
	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
	"github.com/helmgate-dev/helmgate/pkg/health"
)

// CandidateScore is one candidate's final score plus the inputs that
// produced it. Every candidate surviving the health filter appears
// exactly once in the scored output.
type CandidateScore struct {
	Upstream catalog.PhysicalModel `json:"upstream"`
	Score    float64               `json:"score"`
	Metrics  Metrics               `json:"metrics"`

	// Breakdown holds the normalized per-dimension components, keyed
	// latency/reliability/cost/dynamic, before strategy weighting.
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
}

// ChooseInput carries everything the scorer needs for one decision.
type ChooseInput struct {
	Model              *catalog.LogicalModel
	Candidates         []catalog.PhysicalModel
	Metrics            map[string]Metrics         // by provider id
	Health             map[string]health.Snapshot // by provider id
	DynamicWeights     map[string]float64         // by provider id
	Strategy           Strategy
	HealthCheckEnabled bool
}

// ChooseUpstream scores every candidate under the strategy and returns
// the winner plus the full descending order. Ties break by provider id
// ascending so identical inputs always produce identical decisions.
func ChooseUpstream(in ChooseInput) (CandidateScore, []CandidateScore, error) {
	if len(in.Candidates) == 0 {
		modelID := ""
		if in.Model != nil {
			modelID = in.Model.ID
		}
		return CandidateScore{}, nil, helmerr.New(helmerr.CodeRoutingNoCandidates,
			"no candidates available for logical model",
			helmerr.FieldModel(modelID))
	}

	metrics := make([]Metrics, len(in.Candidates))
	for i, c := range in.Candidates {
		metrics[i] = resolveMetrics(c, in)
	}

	lat := make([]float64, len(in.Candidates))
	rel := make([]float64, len(in.Candidates))
	cost := make([]float64, len(in.Candidates))
	dyn := make([]float64, len(in.Candidates))
	for i, c := range in.Candidates {
		lat[i] = metrics[i].LatencyP95MS
		rel[i] = metrics[i].ErrorRate
		cost[i] = c.Weight
		dyn[i] = dynamicWeightFor(in.DynamicWeights, c.ProviderID)
	}

	// Min-max per dimension. Latency, error rate and cost are inverted:
	// the lowest raw value earns the highest component.
	latScore := normalize(lat, true)
	relScore := normalize(rel, true)
	costScore := normalize(cost, true)
	dynScore := normalize(dyn, false)

	scored := make([]CandidateScore, len(in.Candidates))
	for i, c := range in.Candidates {
		s := in.Strategy
		score := s.Alpha*latScore[i] + s.Beta*relScore[i] + s.Gamma*costScore[i] + s.Delta*dynScore[i]
		scored[i] = CandidateScore{
			Upstream: c,
			Score:    score,
			Metrics:  metrics[i],
			Breakdown: map[string]float64{
				"latency":     latScore[i],
				"reliability": relScore[i],
				"cost":        costScore[i],
				"dynamic":     dynScore[i],
			},
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Upstream.ProviderID < scored[j].Upstream.ProviderID
	})

	return scored[0], scored, nil
}

// resolveMetrics returns the pipeline snapshot for the candidate, or
// synthesizes one from cached health, or falls back to neutral
// defaults. When two sources disagree on status the worse one wins.
func resolveMetrics(c catalog.PhysicalModel, in ChooseInput) Metrics {
	snap, haveHealth := in.Health[c.ProviderID]
	if !in.HealthCheckEnabled {
		haveHealth = false
	}

	if m, ok := in.Metrics[c.ProviderID]; ok {
		if haveHealth && snap.Status.Valid() {
			m.Status = health.WorseOf(m.Status, snap.Status)
		}
		return m
	}

	m := Metrics{
		LogicalModel: logicalID(in.Model),
		ProviderID:   c.ProviderID,
		LatencyP95MS: neutralLatencyMS,
		Status:       health.StatusHealthy,
		Synthesized:  true,
	}
	if haveHealth {
		if snap.ResponseTimeMS > 0 {
			m.LatencyP95MS = snap.ResponseTimeMS
		}
		if snap.Status.Valid() {
			m.Status = snap.Status
		}
	}
	m.LatencyP99MS = m.LatencyP95MS * 1.25
	return m
}

func dynamicWeightFor(weights map[string]float64, providerID string) float64 {
	if w, ok := weights[providerID]; ok {
		return w
	}
	return neutralDynamicWeight
}

// normalize min-max scales values into [0,1]. With invert set the
// lowest raw value maps to 1. When all values are equal the dimension
// carries no signal and every candidate gets a neutral 1.
func normalize(values []float64, invert bool) []float64 {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	out := make([]float64, len(values))
	if hi == lo {
		for i := range out {
			out[i] = 1
		}
		return out
	}

	for i, v := range values {
		n := (v - lo) / (hi - lo)
		if invert {
			n = 1 - n
		}
		out[i] = n
	}
	return out
}

func logicalID(m *catalog.LogicalModel) string {
	if m == nil {
		return ""
	}
	return m.ID
}

// Reasoning renders a short operator-facing explanation of why the
// winner won under the given strategy.
func Reasoning(winner CandidateScore, strategy Strategy, total int) string {
	return fmt.Sprintf("selected %s (score %.3f) out of %d candidates under %s strategy (p95 %.0fms, error rate %.2f%%, cost weight %.2f)",
		winner.Upstream.Ref(), winner.Score, total, strategy.Name,
		winner.Metrics.LatencyP95MS, winner.Metrics.ErrorRate*100, winner.Upstream.Weight)
}
