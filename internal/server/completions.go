// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/helmgate-dev/helmgate/internal/catalog"
	"github.com/helmgate-dev/helmgate/internal/executor"
	"github.com/helmgate-dev/helmgate/internal/obs"
	"github.com/helmgate-dev/helmgate/internal/routing"
	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
)

const maxBodyBytes = 10 << 20

// upstreamHeader names the provider/model that served a completion.
const upstreamHeader = "X-Helmgate-Upstream"

func (s *Server) registerCompletionsRoute() {
	if s.services.Decider == nil || s.services.Executor == nil {
		return
	}
	s.router.Post("/v1/chat/completions", s.handleCompletions)

	// The streaming handler needs raw http.ResponseWriter access, so it
	// cannot use Huma's standard handler signature. The chi route above
	// does the work; this entry documents it in the OpenAPI spec.
	s.api.OpenAPI().AddOperation(&huma.Operation{
		OperationID: "chat-completions",
		Method:      http.MethodPost,
		Path:        "/v1/chat/completions",
		Summary:     "Execute a chat completion with automatic failover",
		Description: "Routes the request across the logical model's upstreams, retrying retryable failures in scored order. Set stream=true in the body for SSE.",
		Tags:        []string{"chat"},
		RequestBody: &huma.RequestBody{
			Required: true,
			Content: map[string]*huma.MediaType{
				"application/json": {
					Schema: &huma.Schema{
						Type:     "object",
						Required: []string{"model", "messages"},
						Properties: map[string]*huma.Schema{
							"model": {
								Type:        "string",
								Description: "Logical model name",
							},
							"messages": {
								Type:        "array",
								Description: "Chat messages",
								Items:       &huma.Schema{Type: "object"},
							},
							"stream": {
								Type:        "boolean",
								Description: "Stream the response via SSE",
							},
						},
					},
				},
			},
		},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Upstream response (JSON, or SSE when stream=true)",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Type: "object"},
					},
					"text/event-stream": {
						Schema: &huma.Schema{
							Type:        "string",
							Description: "Server-sent event stream of upstream chunks",
						},
					},
				},
			},
			"400": {Description: "Malformed request body"},
			"404": {Description: "Unknown logical model"},
			"502": {Description: "Upstream rejected the request"},
			"503": {Description: "No upstream could serve the request"},
		},
	})
}

// completionHead is the slice of the client payload the gateway reads.
// The rest of the body passes through to the winning upstream untouched.
type completionHead struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Attempts []executor.Attempt `json:"attempts,omitempty"`
}

func (s *Server) handleCompletions(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, helmerr.Wrap(err, helmerr.CodeServerRequestInvalid, "reading request body"), nil)
		return
	}

	var head completionHead
	if err := json.Unmarshal(body, &head); err != nil {
		s.writeError(w, helmerr.Wrap(err, helmerr.CodeServerRequestInvalid, "invalid request body"), nil)
		return
	}
	if head.Model == "" {
		s.writeError(w, helmerr.New(helmerr.CodeServerRequestInvalid, "model is required"), nil)
		return
	}

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)

	dec, err := s.services.Decider.Decide(r.Context(), routing.Request{LogicalModel: head.Model})
	if err != nil {
		s.logger.Warn("completion routing failed",
			"logical_model", head.Model, "request_id", requestID, "error", err)
		s.writeError(w, err, nil)
		return
	}
	obs.ObserveDecision(dec.DecisionTime)

	req := executor.Request{
		LogicalModel: dec.LogicalModel,
		Payload:      body,
		RequestID:    requestID,
	}
	candidates := upstreamsOf(dec.Scored)

	if head.Stream {
		s.streamCompletion(w, r, req, candidates)
		return
	}

	resp, attempts, err := s.services.Executor.Do(r.Context(), req, candidates)
	if err != nil {
		s.logger.Warn("completion failed",
			"logical_model", head.Model, "request_id", requestID,
			"attempts", len(attempts), "error", err)
		s.writeError(w, err, attempts)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(upstreamHeader, resp.ProviderID+"/"+resp.ModelID)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// upstreamsOf flattens the scored ranking into the executor's failover
// order: winner first, then the remaining candidates by score.
func upstreamsOf(scored []routing.CandidateScore) []catalog.PhysicalModel {
	out := make([]catalog.PhysicalModel, len(scored))
	for i, c := range scored {
		out[i] = c.Upstream
	}
	return out
}

func (s *Server) writeError(w http.ResponseWriter, err error, attempts []executor.Attempt) {
	var body errorBody
	body.Error.Code = string(helmerr.CodeOf(err))
	body.Error.Message = err.Error()
	body.Attempts = attempts

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(helmerr.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(body)
}
