// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmgate-dev/helmgate/internal/executor"
	"github.com/helmgate-dev/helmgate/internal/transport"
	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
)

func dataFrame(s string) transport.StreamEvent {
	return transport.StreamEvent{Data: []byte(s)}
}

func errFrame(r transport.Result) transport.StreamEvent {
	return transport.StreamEvent{Err: &r}
}

func collect(t *testing.T, events <-chan transport.StreamEvent) []transport.StreamEvent {
	t.Helper()
	var out []transport.StreamEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestDoStreamDeliversChunks(t *testing.T) {
	resolver := fakeResolver{
		"alpha": {streams: []streamScript{{
			result: transport.Result{Success: true, StatusCode: 200},
			frames: []transport.StreamEvent{dataFrame("data: one\n\n"), dataFrame("data: two\n\n")},
		}}},
	}
	fb := &recordingFeedback{}
	cd := newCooldown(t)
	exec := newExecutor(t, resolver, cd, fb)

	resp, attempts, err := exec.DoStream(context.Background(), executor.Request{LogicalModel: "gpt-4"},
		candidates("alpha"))

	require.NoError(t, err)
	assert.Equal(t, "alpha", resp.ProviderID)
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Success)

	frames := collect(t, resp.Events)
	require.Len(t, frames, 2)
	assert.Equal(t, "data: one\n\n", string(frames[0].Data))
	assert.Equal(t, "data: two\n\n", string(frames[1].Data))

	assert.Equal(t, []string{"alpha"}, fb.successes)
}

func TestDoStreamFailsOverBeforeFirstChunk(t *testing.T) {
	// alpha dies at dial time, beta dies with an error frame before
	// producing data, gamma streams. Both failures follow retry rules.
	resolver := fakeResolver{
		"alpha": {streams: []streamScript{{
			result: transport.ClassifyStatus(503, "overloaded"),
		}}},
		"beta": {streams: []streamScript{{
			result: transport.Result{Success: true},
			frames: []transport.StreamEvent{errFrame(transport.ClassifyStatus(502, "upstream reset"))},
		}}},
		"gamma": {streams: []streamScript{{
			result: transport.Result{Success: true, StatusCode: 200},
			frames: []transport.StreamEvent{dataFrame("hello")},
		}}},
	}
	fb := &recordingFeedback{}
	cd := newCooldown(t)
	exec := newExecutor(t, resolver, cd, fb)

	resp, attempts, err := exec.DoStream(context.Background(), executor.Request{LogicalModel: "gpt-4"},
		candidates("alpha", "beta", "gamma"))

	require.NoError(t, err)
	assert.Equal(t, "gamma", resp.ProviderID)
	require.Len(t, attempts, 3)
	assert.False(t, attempts[0].Success)
	assert.False(t, attempts[1].Success)
	assert.True(t, attempts[2].Success)

	frames := collect(t, resp.Events)
	require.Len(t, frames, 1)
	assert.Equal(t, "hello", string(frames[0].Data))

	assert.Equal(t, []string{"alpha", "beta"}, fb.failures)
	assert.Equal(t, int64(1), cd.Status(context.Background(), "alpha").Count)
	assert.Equal(t, int64(1), cd.Status(context.Background(), "beta").Count)
}

func TestDoStreamMidStreamErrorPassesThrough(t *testing.T) {
	// Once data has flowed the candidate is committed: the error
	// arrives as a terminal frame rather than a failover.
	streamErr := transport.ClassifyStatus(500, "connection lost")
	streamErr.Category = transport.CategoryStream
	resolver := fakeResolver{
		"alpha": {streams: []streamScript{{
			result: transport.Result{Success: true, StatusCode: 200},
			frames: []transport.StreamEvent{dataFrame("partial"), errFrame(streamErr)},
		}}},
		"beta": {streams: []streamScript{{
			result: transport.Result{Success: true, StatusCode: 200},
			frames: []transport.StreamEvent{dataFrame("unused")},
		}}},
	}
	cd := newCooldown(t)
	exec := newExecutor(t, resolver, cd, &recordingFeedback{})

	resp, _, err := exec.DoStream(context.Background(), executor.Request{LogicalModel: "gpt-4"},
		candidates("alpha", "beta"))

	require.NoError(t, err)
	assert.Equal(t, "alpha", resp.ProviderID)

	frames := collect(t, resp.Events)
	require.Len(t, frames, 2)
	assert.Equal(t, "partial", string(frames[0].Data))
	require.NotNil(t, frames[1].Err)
	assert.Equal(t, transport.CategoryStream, frames[1].Err.Category)

	assert.Equal(t, 0, resolver["beta"].callCount())
	// Success was declared at first chunk; the counter stays cleared.
	assert.Equal(t, int64(0), cd.Status(context.Background(), "alpha").Count)
}

func TestDoStreamEmptyStreamCountsAsSuccess(t *testing.T) {
	resolver := fakeResolver{
		"alpha": {streams: []streamScript{{
			result: transport.Result{Success: true, StatusCode: 200},
		}}},
	}
	exec := newExecutor(t, resolver, nil, &recordingFeedback{})

	resp, _, err := exec.DoStream(context.Background(), executor.Request{LogicalModel: "gpt-4"},
		candidates("alpha"))

	require.NoError(t, err)
	frames := collect(t, resp.Events)
	assert.Empty(t, frames)
}

func TestDoStreamFatalPreStreamFailureAborts(t *testing.T) {
	resolver := fakeResolver{
		"alpha": {streams: []streamScript{{
			result: transport.ClassifyStatus(401, "bad key"),
		}}},
		"beta": {streams: []streamScript{{
			result: transport.Result{Success: true, StatusCode: 200},
			frames: []transport.StreamEvent{dataFrame("unused")},
		}}},
	}
	exec := newExecutor(t, resolver, nil, &recordingFeedback{})

	_, attempts, err := exec.DoStream(context.Background(), executor.Request{LogicalModel: "gpt-4"},
		candidates("alpha", "beta"))

	require.Error(t, err)
	assert.Equal(t, helmerr.CodeTransportFatal, helmerr.CodeOf(err))
	require.Len(t, attempts, 1)
	assert.Equal(t, 0, resolver["beta"].callCount())
}

func TestDoStreamAllCandidatesInCooldown(t *testing.T) {
	cd := newCooldown(t)
	ctx := context.Background()
	for range 3 {
		cd.RecordFailure(ctx, "alpha")
		cd.RecordFailure(ctx, "beta")
	}
	resolver := fakeResolver{
		"alpha": {streams: []streamScript{{result: transport.Result{Success: true}}}},
		"beta":  {streams: []streamScript{{result: transport.Result{Success: true}}}},
	}
	exec := newExecutor(t, resolver, cd, &recordingFeedback{})

	_, attempts, err := exec.DoStream(ctx, executor.Request{LogicalModel: "gpt-4"},
		candidates("alpha", "beta"))

	require.Error(t, err)
	assert.Equal(t, helmerr.CodeRoutingAllFailed, helmerr.CodeOf(err))
	assert.Equal(t, 2, helmerr.FieldsOf(err)["skipped"])
	require.Len(t, attempts, 2)
	assert.Equal(t, 0, resolver["alpha"].callCount())
}

func TestDoStreamCancellationStopsEnumeration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := fakeResolver{
		"alpha": {streams: []streamScript{{result: transport.Result{Success: true}}}},
	}
	exec := newExecutor(t, resolver, nil, &recordingFeedback{})

	_, _, err := exec.DoStream(ctx, executor.Request{LogicalModel: "gpt-4"}, candidates("alpha"))

	require.Error(t, err)
	assert.Equal(t, helmerr.CodeRoutingCancelled, helmerr.CodeOf(err))
	assert.Equal(t, 0, resolver["alpha"].callCount())
}
