// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/helmgate-dev/helmgate/internal/routing"
	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
)

// registerRoutes registers the decision and cooldown inspection
// operations. Skipped when the corresponding service is absent so
// partial wiring in tests stays possible.
func (s *Server) registerRoutes() {
	if s.services.Decider != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "routing-decide",
			Method:      http.MethodPost,
			Path:        "/routing/decide",
			Summary:     "Produce a routing decision",
			Description: "Scores every eligible upstream for a logical model and returns the winner plus the full ranking. No upstream call is made.",
			Tags:        []string{"routing"},
		}, s.handleDecide)
	}

	if s.services.Cooldown != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "provider-cooldown",
			Method:      http.MethodGet,
			Path:        "/providers/{id}/cooldown",
			Summary:     "Inspect a provider's cooldown state",
			Tags:        []string{"providers"},
		}, s.handleCooldown)
	}
}

type cooldownInput struct {
	ID string `path:"id" doc:"Provider id"`
}

type cooldownOutput struct {
	Body routing.CooldownStatus
}

func (s *Server) handleCooldown(ctx context.Context, input *cooldownInput) (*cooldownOutput, error) {
	return &cooldownOutput{Body: s.services.Cooldown.Status(ctx, input.ID)}, nil
}

// humaError converts an engine error into a huma status error using
// the taxonomy's HTTP mapping. The dotted code travels in the detail so
// clients can branch without parsing messages.
func humaError(err error) error {
	return huma.NewError(helmerr.HTTPStatus(err), err.Error(),
		&huma.ErrorDetail{Message: string(helmerr.CodeOf(err)), Location: "code"})
}
