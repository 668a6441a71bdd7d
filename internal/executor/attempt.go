// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package executor

import (
	"time"

	"github.com/helmgate-dev/helmgate/internal/transport"
)

// Attempt is the record of one candidate in the retry loop, including
// candidates skipped without a transport call.
type Attempt struct {
	ProviderID string             `json:"provider_id"`
	ModelID    string             `json:"model_id"`
	Success    bool               `json:"success"`
	Skipped    bool               `json:"skipped,omitempty"`
	StatusCode int                `json:"status_code,omitempty"`
	Retryable  bool               `json:"retryable,omitempty"`
	Category   transport.Category `json:"category,omitempty"`
	Error      string             `json:"error,omitempty"`
	Duration   time.Duration      `json:"duration_ms"`
}

func skippedAttempt(providerID, modelID string, reason string) Attempt {
	return Attempt{
		ProviderID: providerID,
		ModelID:    modelID,
		Skipped:    true,
		Error:      reason,
	}
}

// notConfiguredAttempt marks a candidate that cannot serve at all:
// fatal for the candidate, but the loop moves on.
func notConfiguredAttempt(providerID, modelID string) Attempt {
	return Attempt{
		ProviderID: providerID,
		ModelID:    modelID,
		Error:      "provider not configured",
	}
}

func attemptFromResult(providerID, modelID string, res transport.Result, d time.Duration) Attempt {
	return Attempt{
		ProviderID: providerID,
		ModelID:    modelID,
		Success:    res.Success,
		StatusCode: res.StatusCode,
		Retryable:  res.Retryable,
		Category:   res.Category,
		Error:      res.ErrorText,
		Duration:   d,
	}
}
