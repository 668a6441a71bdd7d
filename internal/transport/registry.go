// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package transport

import (
	"time"

	"github.com/helmgate-dev/helmgate/internal/catalog"
	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
)

// ProviderConfig is the runtime transport configuration for one
// provider.
type ProviderConfig struct {
	Kind    catalog.TransportKind `mapstructure:"kind"`
	BaseURL string                `mapstructure:"base_url"`
	APIKey  string                `mapstructure:"api_key"`

	// CLIPath is the claude binary for claude_cli providers; defaults
	// to "claude" on PATH.
	CLIPath string `mapstructure:"cli_path"`

	// Timeout bounds a single attempt. Zero means DefaultTimeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultTimeout bounds one upstream attempt when the provider does not
// configure its own.
const DefaultTimeout = 120 * time.Second

// Registry resolves provider ids to their Transport. Built once at
// startup from configuration; read-only afterwards, so it is safe for
// concurrent use.
type Registry struct {
	transports map[string]Transport
}

// NewRegistry constructs one Transport per configured provider.
func NewRegistry(providers map[string]ProviderConfig) (*Registry, error) {
	r := &Registry{transports: make(map[string]Transport, len(providers))}

	for id, cfg := range providers {
		if cfg.Timeout <= 0 {
			cfg.Timeout = DefaultTimeout
		}

		switch cfg.Kind {
		case catalog.TransportHTTP:
			r.transports[id] = newHTTPTransport(cfg)
		case catalog.TransportSDK:
			r.transports[id] = newSDKTransport(cfg)
		case catalog.TransportClaudeCLI:
			r.transports[id] = newCLITransport(cfg)
		default:
			return nil, helmerr.Errorf(helmerr.CodeConfigInvalidValue,
				"provider %q: transport kind must be one of [http, sdk, claude_cli], got %q", id, cfg.Kind)
		}
	}
	return r, nil
}

// For returns the transport for a provider id. A false return means the
// provider has no resolvable transport configuration and cannot serve.
func (r *Registry) For(providerID string) (Transport, bool) {
	t, ok := r.transports[providerID]
	return t, ok
}
