// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package routing

import (
	"context"
	"log/slog"
	"time"

	"github.com/helmgate-dev/helmgate/internal/catalog"
	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
)

// Request asks for a routing decision for one logical model.
type Request struct {
	LogicalModel     string
	PreferredRegion  string
	ExcludeProviders []string
	Strategy         string // preset name; empty or unknown falls back to the default
}

// Decision is the outcome of a full mapper → filter → scorer pass.
type Decision struct {
	LogicalModel string           `json:"logical_model"`
	Selected     CandidateScore   `json:"selected"`
	Scored       []CandidateScore `json:"scored"`
	Strategy     Strategy         `json:"strategy"`
	Reasoning    string           `json:"reasoning"`
	DecisionTime time.Duration    `json:"-"`
}

// Decider wires the candidate mapper, health filter, weight loader and
// scorer over the shared state. It is safe for concurrent use; all
// mutable state lives in the store.
type Decider struct {
	catalog            *catalog.Catalog
	state              *StateReader
	cooldown           *Cooldown
	defaultStrategy    string
	healthCheckEnabled bool
	logger             *slog.Logger
	nowFunc            func() time.Time // for testing
}

// DeciderConfig configures a Decider.
type DeciderConfig struct {
	DefaultStrategy    string
	HealthCheckEnabled bool
}

// NewDecider creates a Decider over the given catalog and state reader.
// A nil cooldown disables cooldown filtering of candidates.
func NewDecider(cat *catalog.Catalog, state *StateReader, cooldown *Cooldown, cfg DeciderConfig, logger *slog.Logger) *Decider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = StrategyBalanced
	}
	return &Decider{
		catalog:            cat,
		state:              state,
		cooldown:           cooldown,
		defaultStrategy:    cfg.DefaultStrategy,
		healthCheckEnabled: cfg.HealthCheckEnabled,
		logger:             logger,
		nowFunc:            time.Now,
	}
}

// SetNowFunc overrides the time source (for testing).
func (d *Decider) SetNowFunc(fn func() time.Time) { d.nowFunc = fn }

// HealthCheckEnabled reports whether health filtering is active.
func (d *Decider) HealthCheckEnabled() bool { return d.healthCheckEnabled }

// Decide runs one complete routing decision. It fails with NotFound for
// unknown models, and with the ServiceUnavailable taxonomy for disabled
// models and empty candidate sets.
func (d *Decider) Decide(ctx context.Context, req Request) (*Decision, error) {
	start := d.nowFunc()

	model, err := d.catalog.Get(req.LogicalModel)
	if err != nil {
		return nil, err
	}
	if !model.Enabled {
		return nil, helmerr.New(helmerr.CodeRoutingModelDisabled,
			"logical model is disabled: "+model.ID, helmerr.FieldModel(model.ID))
	}

	candidates := catalog.Candidates(model, catalog.MapperOpts{
		PreferredRegion:  req.PreferredRegion,
		ExcludeProviders: req.ExcludeProviders,
	})
	if len(candidates) == 0 {
		return nil, helmerr.New(helmerr.CodeRoutingNoCandidates,
			"no candidates available for logical model: "+model.ID,
			helmerr.FieldModel(model.ID))
	}

	providerIDs := make([]string, len(candidates))
	for i, c := range candidates {
		providerIDs[i] = c.ProviderID
	}

	healthSnaps := d.state.HealthFor(ctx, providerIDs)
	candidates = FilterDown(candidates, healthSnaps, d.healthCheckEnabled)

	// Providers in cooldown never win a decision. Unlike the health
	// filter this one may empty the set: an all-cooled-down model is
	// unavailable, with the skip count in the failure detail.
	if d.cooldown != nil {
		kept := candidates[:0:len(candidates)]
		for _, c := range candidates {
			if d.cooldown.Status(ctx, c.ProviderID).ShouldSkip {
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == 0 {
			return nil, helmerr.New(helmerr.CodeRoutingNoCandidates,
				"all candidates cooling down for logical model: "+model.ID,
				helmerr.FieldModel(model.ID),
				helmerr.Field("skipped", len(candidates)))
		}
		candidates = kept
	}

	strategyName := req.Strategy
	if strategyName == "" {
		strategyName = d.defaultStrategy
	}
	if !KnownStrategy(strategyName) {
		d.logger.Warn("unknown strategy, falling back to balanced", "strategy", strategyName)
		strategyName = StrategyBalanced
	}
	strategy := StrategyByName(strategyName)

	selected, scored, err := ChooseUpstream(ChooseInput{
		Model:              model,
		Candidates:         candidates,
		Metrics:            d.state.MetricsFor(ctx, model.ID, providerIDs),
		Health:             healthSnaps,
		DynamicWeights:     d.state.DynamicWeights(ctx, model.ID, candidates),
		Strategy:           strategy,
		HealthCheckEnabled: d.healthCheckEnabled,
	})
	if err != nil {
		return nil, err
	}

	dec := &Decision{
		LogicalModel: model.ID,
		Selected:     selected,
		Scored:       scored,
		Strategy:     strategy,
		Reasoning:    Reasoning(selected, strategy, len(scored)),
		DecisionTime: d.nowFunc().Sub(start),
	}

	d.logger.Debug("routing decision",
		"logical_model", model.ID,
		"selected", selected.Upstream.Ref(),
		"strategy", strategy.Name,
		"candidates", len(scored),
		"decision_ms", dec.DecisionTime.Milliseconds(),
	)
	return dec, nil
}
