// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	err := helmerr.New(helmerr.CodeRoutingModelNotFound, "no such model")
	assert.Equal(t, helmerr.CodeRoutingModelNotFound, helmerr.CodeOf(err))

	assert.Equal(t, helmerr.Code(""), helmerr.CodeOf(nil))
	assert.Equal(t, helmerr.Code(""), helmerr.CodeOf(stderrors.New("plain")))
}

func TestFieldsOf(t *testing.T) {
	err := helmerr.New(helmerr.CodeProviderCooldown, "provider cooling down",
		helmerr.FieldProvider("openai"),
		helmerr.FieldStatus(503),
	)

	fields := helmerr.FieldsOf(err)
	require.NotNil(t, fields)
	assert.Equal(t, "openai", fields["provider_id"])
	assert.Equal(t, 503, fields["upstream_status"])
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, helmerr.Wrap(nil, helmerr.CodeStateStoreFailure, "ignored"))
	assert.NoError(t, helmerr.Wrapf(nil, helmerr.CodeStateStoreFailure, "ignored"))
	assert.NoError(t, helmerr.With(nil))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := helmerr.Wrap(cause, helmerr.CodeTransportRetryable, "dialing upstream",
		helmerr.FieldProvider("anthropic"))

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, helmerr.CodeTransportRetryable, helmerr.CodeOf(err))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"not found", helmerr.New(helmerr.CodeRoutingModelNotFound, "x"), helmerr.IsNotFound},
		{"unavailable disabled", helmerr.New(helmerr.CodeRoutingModelDisabled, "x"), helmerr.IsUnavailable},
		{"unavailable no candidates", helmerr.New(helmerr.CodeRoutingNoCandidates, "x"), helmerr.IsUnavailable},
		{"unavailable exhausted", helmerr.New(helmerr.CodeRoutingAllFailed, "x"), helmerr.IsUnavailable},
		{"invalid input", helmerr.New(helmerr.CodeServerRequestInvalid, "x"), helmerr.IsInvalidInput},
		{"timeout", helmerr.New(helmerr.CodeTransportTimeout, "x"), helmerr.IsTimeout},
		{"cancelled", helmerr.New(helmerr.CodeRoutingCancelled, "x"), helmerr.IsCancelled},
		{"upstream", helmerr.New(helmerr.CodeTransportRetryable, "x"), helmerr.IsUpstreamFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.pred(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown model", helmerr.New(helmerr.CodeRoutingModelNotFound, "x"), http.StatusNotFound},
		{"disabled model", helmerr.New(helmerr.CodeRoutingModelDisabled, "x"), http.StatusServiceUnavailable},
		{"no candidates", helmerr.New(helmerr.CodeRoutingNoCandidates, "x"), http.StatusServiceUnavailable},
		{"all failed", helmerr.New(helmerr.CodeRoutingAllFailed, "x"), http.StatusServiceUnavailable},
		{"fatal upstream", helmerr.New(helmerr.CodeTransportFatal, "x"), http.StatusBadGateway},
		{"retryable upstream", helmerr.New(helmerr.CodeTransportRetryable, "x"), http.StatusBadGateway},
		{"timeout", helmerr.New(helmerr.CodeTransportTimeout, "x"), http.StatusGatewayTimeout},
		{"bad request", helmerr.New(helmerr.CodeServerRequestInvalid, "x"), http.StatusBadRequest},
		{"cancelled", helmerr.New(helmerr.CodeRoutingCancelled, "x"), helmerr.StatusClientClosedRequest},
		{"internal", helmerr.New(helmerr.CodeServerInternalFailure, "x"), http.StatusInternalServerError},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, helmerr.HTTPStatus(tt.err))
		})
	}
}

func TestJoin(t *testing.T) {
	a := stderrors.New("a")
	b := stderrors.New("b")

	err := helmerr.Join(a, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, a)
	assert.ErrorIs(t, err, b)
}
