// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

// Package transport abstracts how a physical upstream is called. The
// set of kinds is closed: plain HTTP, vendor SDK, and the claude CLI
// bridge. A kind is resolved once per candidate through the Registry;
// nothing re-evaluates transport strings per call.
package transport

import (
	"context"

	"github.com/helmgate-dev/helmgate/internal/catalog"
)

// Request is one upstream attempt. Payload is the raw request body in
// the dialect the upstream endpoint expects; the gateway does not
// translate between vendor dialects.
type Request struct {
	ProviderID string
	ModelID    string
	Endpoint   string // overrides the provider's configured base URL when set
	APIStyle   catalog.APIStyle
	Payload    []byte
	RequestID  string
}

// StreamEvent is one frame of a streaming attempt. Exactly one of Data
// and Err is set; an Err frame is terminal and the channel closes after
// it.
type StreamEvent struct {
	Data []byte
	Err  *Result
}

// Transport calls one provider. Implementations are safe for concurrent
// use.
type Transport interface {
	Kind() catalog.TransportKind

	// Execute performs a non-streaming call and classifies the outcome.
	// It never returns a Go error; everything is folded into Result so
	// the retry loop can pattern-match on one shape.
	Execute(ctx context.Context, req Request) Result

	// Stream performs a streaming call. A failure before the stream is
	// established is reported through the returned Result with a nil
	// channel. Once the channel is returned, chunks and at most one
	// terminal Err frame arrive on it; the channel closes when the
	// upstream is done or the context is cancelled.
	Stream(ctx context.Context, req Request) (<-chan StreamEvent, Result)
}

// streamBuffer is the channel depth used by all transports; large
// enough to decouple upstream reads from the consumer without
// unbounded buffering.
const streamBuffer = 64
