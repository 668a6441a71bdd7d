// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package catalog

// TransportKind selects how a provider is called.
type TransportKind string

const (
	TransportHTTP      TransportKind = "http"
	TransportSDK       TransportKind = "sdk"
	TransportClaudeCLI TransportKind = "claude_cli"
)

// Valid reports whether k is one of the three supported kinds.
func (k TransportKind) Valid() bool {
	return k == TransportHTTP || k == TransportSDK || k == TransportClaudeCLI
}

// APIStyle identifies the wire dialect an upstream endpoint speaks.
type APIStyle string

const (
	APIStyleOpenAI APIStyle = "openai"
	APIStyleClaude APIStyle = "claude"
	APIStyleGemini APIStyle = "gemini"
)

// Valid reports whether s is a known API style.
func (s APIStyle) Valid() bool {
	return s == APIStyleOpenAI || s == APIStyleClaude || s == APIStyleGemini
}

// PhysicalModel is one concrete (provider, upstream model) pairing able
// to serve a logical model. The static Weight is a relative cost proxy:
// higher means pricier.
type PhysicalModel struct {
	ProviderID string   `yaml:"provider_id" json:"provider_id"`
	ModelID    string   `yaml:"model_id" json:"model_id"`
	Endpoint   string   `yaml:"endpoint" json:"endpoint,omitempty"`
	APIStyle   APIStyle `yaml:"api_style" json:"api_style"`
	Region     string   `yaml:"region" json:"region,omitempty"`
	Weight     float64  `yaml:"weight" json:"weight"`
}

// Ref returns the canonical "provider/model" reference for logs and errors.
func (p PhysicalModel) Ref() string {
	return p.ProviderID + "/" + p.ModelID
}

// LogicalModel is a client-facing model name backed by one or more
// physical upstreams. The Upstreams order is the source order the
// candidate mapper preserves. Read-only to the scheduler.
type LogicalModel struct {
	ID           string          `yaml:"id" json:"id"`
	Enabled      bool            `yaml:"enabled" json:"enabled"`
	Capabilities []string        `yaml:"capabilities" json:"capabilities,omitempty"`
	Upstreams    []PhysicalModel `yaml:"upstreams" json:"upstreams"`
}

// HasCapability reports whether the logical model carries the given tag.
func (m *LogicalModel) HasCapability(tag string) bool {
	for _, c := range m.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}
