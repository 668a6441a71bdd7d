// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeRoutingModelNotFound   Code = "routing.model.not_found"
	CodeRoutingModelDisabled   Code = "routing.model.unavailable"
	CodeRoutingNoCandidates    Code = "routing.candidates.unavailable"
	CodeRoutingStrategyInvalid Code = "routing.strategy.invalid_value"
	CodeRoutingAllFailed       Code = "routing.attempts.unavailable"
	CodeRoutingCancelled       Code = "routing.request.cancelled"

	CodeProviderNotConfigured Code = "provider.transport.not_configured"
	CodeProviderCooldown      Code = "provider.cooldown.active"

	CodeTransportRetryable    Code = "transport.upstream.failure"
	CodeTransportFatal        Code = "transport.upstream.rejected"
	CodeTransportTimeout      Code = "transport.upstream.timeout"
	CodeTransportStreamBroken Code = "transport.stream.failure"

	CodeCatalogLoadFailure  Code = "catalog.load.failure"
	CodeCatalogParseInvalid Code = "catalog.parse.invalid_format"
	CodeCatalogInvalidValue Code = "catalog.validate.invalid_value"

	CodeConfigLoadFailure  Code = "config.load.failure"
	CodeConfigInvalidValue Code = "config.validate.invalid_value"

	CodeStateStoreFailure     Code = "statestore.backend.failure"
	CodeStateStoreUnsupported Code = "statestore.backend.unsupported"

	CodeSecretInvalidInput   Code = "secret.uri.invalid_input"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	CodeServerRequestInvalid  Code = "server.request.invalid_input"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldProvider(value string) Attr {
	return Field("provider_id", value)
}

func FieldModel(value string) Attr {
	return Field("logical_model", value)
}

func FieldRequestID(value string) Attr {
	return Field("request_id", value)
}

func FieldStatus(value int) Attr {
	return Field("upstream_status", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsUnavailable(err error) bool {
	return reason(CodeOf(err)) == "unavailable"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.HasPrefix(string(code), "transport.")
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func IsCancelled(err error) bool {
	return reason(CodeOf(err)) == "cancelled"
}

// StatusClientClosedRequest is the nginx-style status reported when the
// caller disconnected before a decision completed.
const StatusClientClosedRequest = 499

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsCancelled(err):
		return StatusClientClosedRequest
	case HasCode(err, CodeTransportFatal):
		return http.StatusBadGateway
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	case IsUnavailable(err):
		return http.StatusServiceUnavailable
	case IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
