// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"unicode/utf8"

	"github.com/helmgate-dev/helmgate/internal/routing"
)

// Category classifies a failed attempt for logging and error surfaces.
type Category string

const (
	CategoryNone        Category = ""
	CategoryNetwork     Category = "network_error"
	CategoryTimeout     Category = "timeout"
	CategoryServerError Category = "server_error"
	CategoryRateLimited Category = "rate_limited"
	CategoryClientError Category = "client_error"
	CategoryCancelled   Category = "cancelled"
	CategoryStream      Category = "stream_error"
)

// Result is the classified outcome of one attempt. Ephemeral: one per
// attempt, never stored.
type Result struct {
	Success    bool
	StatusCode int    // 0 when no HTTP status applies
	Body       []byte // response payload on success
	ErrorText  string

	// Retryable means the retry loop may advance to the next candidate.
	Retryable bool

	// Penalize means the outcome should count toward cooldown and
	// adaptive weights. Cancellation, for example, is nobody's fault.
	Penalize bool

	Category Category
}

// Succeed builds a success result.
func Succeed(statusCode int, body []byte) Result {
	return Result{Success: true, StatusCode: statusCode, Body: body}
}

// ClassifyStatus folds an upstream HTTP status into a Result. Transient
// server statuses and 429 are retryable and penalizable; other 4xx are
// fatal for the whole request.
func ClassifyStatus(statusCode int, errorText string) Result {
	r := Result{
		StatusCode: statusCode,
		ErrorText:  truncate(errorText),
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		r.Retryable = true
		r.Penalize = true
		r.Category = CategoryRateLimited
	case statusCode >= 500:
		r.Retryable = true
		r.Penalize = routing.Penalizable(statusCode)
		r.Category = CategoryServerError
	default:
		r.Category = CategoryClientError
	}
	return r
}

// ClassifyError folds a Go-level call failure (no usable HTTP status)
// into a Result. Timeouts and network errors are retryable with no
// status code; they do not count toward cooldown unless the upstream
// said so explicitly. Cancellation is terminal and never penalized.
func ClassifyError(err error) Result {
	r := Result{ErrorText: truncate(err.Error())}

	switch {
	case errors.Is(err, context.Canceled):
		r.Category = CategoryCancelled
	case errors.Is(err, context.DeadlineExceeded):
		r.Retryable = true
		r.Category = CategoryTimeout
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			r.Retryable = true
			r.Category = CategoryTimeout
			return r
		}
		r.Retryable = true
		r.Category = CategoryNetwork
	}
	return r
}

// maxErrorText caps upstream error text so aggregated failures stay
// readable and never leak whole response bodies.
const maxErrorText = 300

func truncate(s string) string {
	if len(s) <= maxErrorText {
		return s
	}
	// Back up to a rune boundary so the cut never leaves invalid UTF-8.
	cut := maxErrorText
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
