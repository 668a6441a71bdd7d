// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/helmgate-dev/helmgate/internal/catalog"
	"github.com/helmgate-dev/helmgate/internal/executor"
	"github.com/helmgate-dev/helmgate/internal/transport"
)

// sseDone is the terminal frame, matching the convention clients of the
// OpenAI streaming format already handle.
const sseDone = "[DONE]"

// streamCompletion drives the streaming executor and forwards upstream
// chunks as SSE data frames. Failover has finished by the time the
// first frame is written; errors after that arrive as a single
// event: error frame followed by the done marker.
func (s *Server) streamCompletion(w http.ResponseWriter, r *http.Request, req executor.Request, candidates []catalog.PhysicalModel) {
	resp, attempts, err := s.services.Executor.DoStream(r.Context(), req, candidates)
	if err != nil {
		s.logger.Warn("streaming completion failed",
			"logical_model", req.LogicalModel, "request_id", req.RequestID,
			"attempts", len(attempts), "error", err)
		s.writeError(w, err, attempts)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set(upstreamHeader, resp.ProviderID+"/"+resp.ModelID)

	// httptest.ResponseRecorder doesn't implement Flusher, but we still
	// write the frames for testability.
	flusher, _ := w.(http.Flusher)

	for ev := range resp.Events {
		if ev.Err != nil {
			writeSSEError(w, ev.Err)
			break
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", ev.Data); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	_, _ = fmt.Fprintf(w, "data: %s\n\n", sseDone)
	if flusher != nil {
		flusher.Flush()
	}
}

func writeSSEError(w http.ResponseWriter, res *transport.Result) {
	payload, _ := json.Marshal(struct {
		Category   transport.Category `json:"category"`
		StatusCode int                `json:"status_code,omitempty"`
		Message    string             `json:"message"`
	}{
		Category:   res.Category,
		StatusCode: res.StatusCode,
		Message:    res.ErrorText,
	})
	_, _ = fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
}
