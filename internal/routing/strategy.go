// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package routing

// Strategy weights the four scoring dimensions. All weights are
// non-negative; they need not sum to one.
type Strategy struct {
	Name  string  `json:"name"`
	Alpha float64 `json:"alpha"` // latency
	Beta  float64 `json:"beta"`  // reliability
	Gamma float64 `json:"gamma"` // cost
	Delta float64 `json:"delta"` // dynamic/adaptive
}

// Named strategy presets.
const (
	StrategyBalanced         = "balanced"
	StrategyLatencyFirst     = "latency_first"
	StrategyCostFirst        = "cost_first"
	StrategyReliabilityFirst = "reliability_first"
)

var presets = map[string]Strategy{
	StrategyBalanced:         {Name: StrategyBalanced, Alpha: 0.25, Beta: 0.25, Gamma: 0.25, Delta: 0.25},
	StrategyLatencyFirst:     {Name: StrategyLatencyFirst, Alpha: 0.6, Beta: 0.2, Gamma: 0.1, Delta: 0.1},
	StrategyCostFirst:        {Name: StrategyCostFirst, Alpha: 0.2, Beta: 0.2, Gamma: 0.5, Delta: 0.1},
	StrategyReliabilityFirst: {Name: StrategyReliabilityFirst, Alpha: 0.3, Beta: 0.5, Gamma: 0.1, Delta: 0.1},
}

// StrategyByName resolves a preset by name. Unknown or empty names fall
// back to balanced so a misconfigured caller still gets a usable order.
func StrategyByName(name string) Strategy {
	if s, ok := presets[name]; ok {
		return s
	}
	return presets[StrategyBalanced]
}

// KnownStrategy reports whether name is a recognized preset.
func KnownStrategy(name string) bool {
	_, ok := presets[name]
	return ok
}
