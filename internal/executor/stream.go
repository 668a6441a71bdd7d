// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package executor

import (
	"context"

	"github.com/helmgate-dev/helmgate/internal/catalog"
	"github.com/helmgate-dev/helmgate/internal/transport"
	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
)

// StreamResponse is a started stream. Events carries the winning
// candidate's chunks and at most one terminal error frame; failover is
// finished by the time a StreamResponse exists.
type StreamResponse struct {
	ProviderID string
	ModelID    string
	Events     <-chan transport.StreamEvent
	Attempts   []Attempt
}

const forwardBuffer = 64

// DoStream executes req against candidates in order, treating the
// first delivered chunk as success. Failures before the first chunk
// follow the same retry and cooldown rules as non-streaming; once a
// chunk has been forwarded the candidate is committed and any later
// upstream error arrives as a single terminal frame on Events.
func (e *Executor) DoStream(ctx context.Context, req Request, candidates []catalog.PhysicalModel) (*StreamResponse, []Attempt, error) {
	var attempts []Attempt
	trail := &failureTrail{}

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, attempts, helmerr.Wrap(err, helmerr.CodeRoutingCancelled,
				"request cancelled before attempting "+cand.ProviderID,
				helmerr.FieldRequestID(req.RequestID))
		}

		if att, skip := e.skipCandidate(ctx, cand, trail); skip {
			attempts = append(attempts, att)
			continue
		}

		tr, ok := e.registry.For(cand.ProviderID)
		if !ok {
			attempts = append(attempts, notConfiguredAttempt(cand.ProviderID, cand.ModelID))
			trail.lastProvider = cand.ProviderID
			trail.lastError = "provider not configured"
			e.logger.Warn("candidate has no transport configuration", "provider", cand.ProviderID)
			continue
		}

		start := e.nowFunc()
		events, res := tr.Stream(ctx, e.transportRequest(req, cand))
		if !res.Success {
			d := e.nowFunc().Sub(start)
			attempts = append(attempts, attemptFromResult(cand.ProviderID, cand.ModelID, res, d))
			if err := e.settle(ctx, req, cand, res, d, trail); err != nil {
				return nil, attempts, err
			}
			continue
		}

		// The transport has accepted the call; wait for the first frame
		// to decide whether this candidate actually delivers.
		first, ok, failure := e.awaitFirstFrame(ctx, events)
		d := e.nowFunc().Sub(start)

		if failure != nil {
			attempts = append(attempts, attemptFromResult(cand.ProviderID, cand.ModelID, *failure, d))
			if err := e.settle(ctx, req, cand, *failure, d, trail); err != nil {
				return nil, attempts, err
			}
			continue
		}

		attempts = append(attempts, attemptFromResult(cand.ProviderID, cand.ModelID, transport.Succeed(res.StatusCode, nil), d))
		e.succeed(ctx, req, cand, d)
		e.logger.Debug("stream established",
			"provider", cand.ProviderID,
			"model", cand.ModelID,
			"time_to_first_chunk", d)

		out := events
		if ok {
			out = e.forward(ctx, first, events)
		}
		return &StreamResponse{
			ProviderID: cand.ProviderID,
			ModelID:    cand.ModelID,
			Events:     out,
			Attempts:   attempts,
		}, attempts, nil
	}

	return nil, attempts, trail.exhausted(req)
}

// awaitFirstFrame blocks until the stream produces something. Returns
// the first data frame (ok=false for a stream that closed empty, which
// still counts as success), or a failure Result when the stream died
// before producing any data.
func (e *Executor) awaitFirstFrame(ctx context.Context, events <-chan transport.StreamEvent) (transport.StreamEvent, bool, *transport.Result) {
	select {
	case ev, open := <-events:
		if !open {
			return transport.StreamEvent{}, false, nil
		}
		if ev.Err != nil {
			return transport.StreamEvent{}, false, ev.Err
		}
		return ev, true, nil
	case <-ctx.Done():
		r := transport.ClassifyError(ctx.Err())
		return transport.StreamEvent{}, false, &r
	}
}

// forward replays the already-consumed first frame and pipes the rest,
// stopping when the caller goes away.
func (e *Executor) forward(ctx context.Context, first transport.StreamEvent, events <-chan transport.StreamEvent) <-chan transport.StreamEvent {
	out := make(chan transport.StreamEvent, forwardBuffer)
	go func() {
		defer close(out)
		select {
		case out <- first:
		case <-ctx.Done():
			return
		}
		for ev := range events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
