// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

// Package executor walks scored candidates in order, dispatching each
// through its provider's transport until one succeeds or the set is
// exhausted. Candidates run strictly sequentially; a successful attempt
// is the only one that produces billable upstream work.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/helmgate-dev/helmgate/internal/catalog"
	"github.com/helmgate-dev/helmgate/internal/obs"
	"github.com/helmgate-dev/helmgate/internal/routing"
	"github.com/helmgate-dev/helmgate/internal/transport"
	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
)

// Request is one client call to execute against the scored candidates.
type Request struct {
	LogicalModel string
	Payload      []byte
	RequestID    string
}

// Response is the winning attempt's payload plus the full attempt
// trail, including skips and failures that preceded the success.
type Response struct {
	ProviderID string
	ModelID    string
	StatusCode int
	Body       []byte
	Attempts   []Attempt
}

// Resolver maps a provider id to its transport. *transport.Registry is
// the production implementation.
type Resolver interface {
	For(providerID string) (transport.Transport, bool)
}

// Executor drives the retry loop. Safe for concurrent use; all mutable
// state lives in the shared stores behind cooldown and feedback.
type Executor struct {
	registry Resolver
	cooldown *routing.Cooldown
	feedback Feedback
	logger   *slog.Logger
	nowFunc  func() time.Time
}

func New(registry Resolver, cooldown *routing.Cooldown, feedback Feedback, logger *slog.Logger) *Executor {
	if feedback == nil {
		feedback = NopFeedback{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry: registry,
		cooldown: cooldown,
		feedback: feedback,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// SetNowFunc overrides the clock. Test hook.
func (e *Executor) SetNowFunc(fn func() time.Time) { e.nowFunc = fn }

// failureTrail aggregates what the loop has seen so far, for the
// exhaustion error.
type failureTrail struct {
	skipped      int
	lastProvider string
	lastStatus   int
	lastError    string
}

func (t *failureTrail) observe(providerID string, res transport.Result) {
	t.lastProvider = providerID
	t.lastStatus = res.StatusCode
	t.lastError = res.ErrorText
}

func (t *failureTrail) exhausted(req Request) error {
	return helmerr.New(helmerr.CodeRoutingAllFailed,
		"all providers failed for model "+req.LogicalModel,
		helmerr.FieldModel(req.LogicalModel),
		helmerr.FieldRequestID(req.RequestID),
		helmerr.Field("skipped", t.skipped),
		helmerr.Field("last_provider", t.lastProvider),
		helmerr.Field("last_status", t.lastStatus),
		helmerr.Field("last_error", t.lastError),
	)
}

// skipCandidate returns a non-empty reason when the candidate must not
// be dialled, recording metrics and the attempt bookkeeping.
func (e *Executor) skipCandidate(ctx context.Context, cand catalog.PhysicalModel, trail *failureTrail) (Attempt, bool) {
	status := e.cooldown.Status(ctx, cand.ProviderID)
	if status.ShouldSkip {
		trail.skipped++
		obs.ObserveCooldownSkip(cand.ProviderID)
		e.logger.Debug("skipping candidate in cooldown",
			"provider", cand.ProviderID,
			"failure_count", status.Count,
			"threshold", status.Threshold)
		return skippedAttempt(cand.ProviderID, cand.ModelID, "provider cooling down"), true
	}
	return Attempt{}, false
}

func (e *Executor) transportRequest(req Request, cand catalog.PhysicalModel) transport.Request {
	return transport.Request{
		ProviderID: cand.ProviderID,
		ModelID:    cand.ModelID,
		Endpoint:   cand.Endpoint,
		APIStyle:   cand.APIStyle,
		Payload:    req.Payload,
		RequestID:  req.RequestID,
	}
}

// settle applies the shared post-attempt rules: cooldown bookkeeping,
// feedback callbacks, and the retry-vs-abort verdict. A nil returned
// error means the loop may move on to the next candidate.
func (e *Executor) settle(ctx context.Context, req Request, cand catalog.PhysicalModel, res transport.Result, d time.Duration, trail *failureTrail) error {
	trail.observe(cand.ProviderID, res)

	if res.Penalize {
		e.feedback.RecordFailure(ctx, req.LogicalModel, cand.ProviderID)
		e.cooldown.RecordFailure(ctx, cand.ProviderID)
	}

	if res.Category == transport.CategoryCancelled {
		obs.ObserveAttempt(cand.ProviderID, obs.OutcomeCancelled, d)
		return helmerr.New(helmerr.CodeRoutingCancelled,
			"request cancelled during upstream attempt",
			helmerr.FieldProvider(cand.ProviderID),
			helmerr.FieldModel(req.LogicalModel),
			helmerr.FieldRequestID(req.RequestID),
		)
	}

	if !res.Retryable {
		obs.ObserveAttempt(cand.ProviderID, obs.OutcomeFatal, d)
		e.logger.Warn("fatal upstream failure, aborting request",
			"provider", cand.ProviderID,
			"status", res.StatusCode,
			"category", res.Category)
		return helmerr.New(helmerr.CodeTransportFatal,
			"upstream rejected the request: "+res.ErrorText,
			helmerr.FieldProvider(cand.ProviderID),
			helmerr.FieldModel(req.LogicalModel),
			helmerr.FieldStatus(res.StatusCode),
			helmerr.FieldRequestID(req.RequestID),
			helmerr.Field("category", string(res.Category)),
		)
	}

	obs.ObserveAttempt(cand.ProviderID, obs.OutcomeRetryable, d)
	e.logger.Warn("retryable upstream failure, trying next candidate",
		"provider", cand.ProviderID,
		"status", res.StatusCode,
		"category", res.Category)
	return nil
}

func (e *Executor) succeed(ctx context.Context, req Request, cand catalog.PhysicalModel, d time.Duration) {
	e.cooldown.Clear(ctx, cand.ProviderID)
	e.feedback.RecordSuccess(ctx, req.LogicalModel, cand.ProviderID, d)
	obs.ObserveAttempt(cand.ProviderID, obs.OutcomeSuccess, d)
}

// Do executes req against candidates in order and returns the first
// successful response. The attempt trail is returned on every path so
// callers can log and surface what was tried.
func (e *Executor) Do(ctx context.Context, req Request, candidates []catalog.PhysicalModel) (*Response, []Attempt, error) {
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
			obs.ObserveAttempt(cand.ProviderID, obs.OutcomeNotConfigured, 0)
			e.logger.Warn("candidate has no transport configuration", "provider", cand.ProviderID)
			continue
		}

		start := e.nowFunc()
		res := tr.Execute(ctx, e.transportRequest(req, cand))
		d := e.nowFunc().Sub(start)
		attempts = append(attempts, attemptFromResult(cand.ProviderID, cand.ModelID, res, d))

		if res.Success {
			e.succeed(ctx, req, cand, d)
			e.logger.Debug("upstream attempt succeeded",
				"provider", cand.ProviderID,
				"model", cand.ModelID,
				"status", res.StatusCode,
				"duration", d)
			return &Response{
				ProviderID: cand.ProviderID,
				ModelID:    cand.ModelID,
				StatusCode: res.StatusCode,
				Body:       res.Body,
				Attempts:   attempts,
			}, attempts, nil
		}

		if err := e.settle(ctx, req, cand, res, d, trail); err != nil {
			return nil, attempts, err
		}
	}

	return nil, attempts, trail.exhausted(req)
}
