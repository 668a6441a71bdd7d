// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package server

import (
	"context"

	"github.com/google/uuid"

	"github.com/helmgate-dev/helmgate/internal/obs"
	"github.com/helmgate-dev/helmgate/internal/routing"
)

type decideInput struct {
	RequestID string `header:"X-Request-ID" doc:"Client-supplied request id; generated when absent"`
	Body      struct {
		LogicalModel     string   `json:"logical_model" minLength:"1" doc:"Logical model to route"`
		Strategy         string   `json:"strategy,omitempty" doc:"Strategy preset; falls back to the configured default"`
		PreferredRegion  string   `json:"preferred_region,omitempty" doc:"Region to prefer when ranking"`
		ExcludeProviders []string `json:"exclude_providers,omitempty" doc:"Provider ids to leave out"`
	}
}

// DecisionBody is the JSON body of a routing decision response.
type DecisionBody struct {
	RequestID            string                   `json:"request_id"`
	LogicalModel         string                   `json:"logical_model"`
	SelectedUpstream     routing.CandidateScore   `json:"selected_upstream"`
	AlternativeUpstreams []string                 `json:"alternative_upstreams,omitempty" doc:"Failover order after the winner, as provider/model refs"`
	AllCandidates        []routing.CandidateScore `json:"all_candidates"`
	StrategyUsed         string                   `json:"strategy_used"`
	Reasoning            string                   `json:"reasoning"`
	DecisionTimeMS       float64                  `json:"decision_time_ms"`
}

type decideOutput struct {
	Body DecisionBody
}

func (s *Server) handleDecide(ctx context.Context, input *decideInput) (*decideOutput, error) {
	requestID := input.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	dec, err := s.services.Decider.Decide(ctx, routing.Request{
		LogicalModel:     input.Body.LogicalModel,
		PreferredRegion:  input.Body.PreferredRegion,
		ExcludeProviders: input.Body.ExcludeProviders,
		Strategy:         input.Body.Strategy,
	})
	if err != nil {
		s.logger.Warn("routing decision failed",
			"logical_model", input.Body.LogicalModel,
			"request_id", requestID,
			"error", err)
		return nil, humaError(err)
	}
	obs.ObserveDecision(dec.DecisionTime)

	alternatives := make([]string, 0, len(dec.Scored))
	for _, c := range dec.Scored[1:] {
		alternatives = append(alternatives, c.Upstream.Ref())
	}

	return &decideOutput{Body: DecisionBody{
		RequestID:            requestID,
		LogicalModel:         dec.LogicalModel,
		SelectedUpstream:     dec.Selected,
		AlternativeUpstreams: alternatives,
		AllCandidates:        dec.Scored,
		StrategyUsed:         dec.Strategy.Name,
		Reasoning:            dec.Reasoning,
		DecisionTimeMS:       float64(dec.DecisionTime.Microseconds()) / 1000.0,
	}}, nil
}
