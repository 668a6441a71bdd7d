// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package health

import "time"

// Status is the coarse health classification of a provider.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// severity orders statuses from best to worst. Unknown statuses rank
// worst so that garbage in a shared cache never makes a provider look
// healthier than a known-bad reading.
func severity(s Status) int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	case StatusDown:
		return 2
	default:
		return 3
	}
}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	return s == StatusHealthy || s == StatusDegraded || s == StatusDown
}

// WorseOf returns the worse of two statuses (healthy < degraded < down).
// When two sources disagree about the same provider, the pessimistic
// reading wins.
func WorseOf(a, b Status) Status {
	if severity(a) >= severity(b) {
		return a
	}
	return b
}

// Snapshot is the last-known health of a provider as cached by the
// out-of-band health checker. All fields are point-in-time values safe
// to serialize to JSON.
type Snapshot struct {
	ProviderID     string    `json:"provider_id"`
	Status         Status    `json:"status"`
	ResponseTimeMS float64   `json:"response_time_ms,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}

// Down reports whether the snapshot marks the provider as down.
func (s Snapshot) Down() bool { return s.Status == StatusDown }
