// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package executor

import (
	"context"
	"time"
)

// Feedback receives per-attempt outcomes so adaptive weights can learn
// from them. Implementations must be best-effort and non-blocking
// beyond their store round-trip; the retry loop does not wait on
// anything else.
type Feedback interface {
	RecordSuccess(ctx context.Context, logicalModel, providerID string, latency time.Duration)
	RecordFailure(ctx context.Context, logicalModel, providerID string)
}

// NopFeedback discards all outcomes.
type NopFeedback struct{}

func (NopFeedback) RecordSuccess(context.Context, string, string, time.Duration) {}
func (NopFeedback) RecordFailure(context.Context, string, string)                {}
