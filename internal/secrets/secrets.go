// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

// Package secrets resolves keyring:// URIs in provider credentials so
// API keys never have to live in config files.
package secrets

// Store reads secrets from secure storage. Implementations may use OS
// keyrings or, in tests, an in-memory map.
type Store interface {
	// Retrieve fetches the secret value for the given service and key.
	Retrieve(service, key string) (string, error)
}
