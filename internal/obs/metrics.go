// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

// Package obs exposes the gateway's Prometheus metrics.
package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helmgate_upstream_attempts_total",
			Help: "Upstream attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	cooldownSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helmgate_cooldown_skips_total",
			Help: "Candidates skipped because their provider was cooling down",
		},
		[]string{"provider"},
	)

	decisionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "helmgate_routing_decision_duration_seconds",
			Help: "Time spent producing a routing decision",
		},
	)

	attemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "helmgate_upstream_attempt_duration_seconds",
			Help: "Duration of individual upstream attempts",
		},
		[]string{"provider"},
	)
)

// Attempt outcomes as recorded on helmgate_upstream_attempts_total.
const (
	OutcomeSuccess       = "success"
	OutcomeRetryable     = "retryable_failure"
	OutcomeFatal         = "fatal_failure"
	OutcomeNotConfigured = "not_configured"
	OutcomeCancelled     = "cancelled"
)

func ObserveAttempt(provider, outcome string, d time.Duration) {
	attemptsTotal.WithLabelValues(provider, outcome).Inc()
	attemptDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func ObserveCooldownSkip(provider string) {
	cooldownSkipsTotal.WithLabelValues(provider).Inc()
}

func ObserveDecision(d time.Duration) {
	decisionDuration.Observe(d.Seconds())
}
