// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package catalog

import "slices"

// MapperOpts narrows the candidate set for one routing request.
type MapperOpts struct {
	// PreferredRegion keeps only upstreams in the given region when set.
	PreferredRegion string

	// ExcludeProviders removes upstreams whose provider is listed.
	ExcludeProviders []string

	// RequireCapabilities yields no candidates unless the logical model
	// carries every listed tag.
	RequireCapabilities []string
}

// Candidates enumerates the physical upstreams eligible to serve the
// logical model, preserving the catalog's source order. An empty result
// is valid and means "no candidates"; the caller decides how to surface
// that.
func Candidates(m *LogicalModel, opts MapperOpts) []PhysicalModel {
	for _, tag := range opts.RequireCapabilities {
		if !m.HasCapability(tag) {
			return nil
		}
	}

	out := make([]PhysicalModel, 0, len(m.Upstreams))
	for _, u := range m.Upstreams {
		if slices.Contains(opts.ExcludeProviders, u.ProviderID) {
			continue
		}
		if opts.PreferredRegion != "" && u.Region != "" && u.Region != opts.PreferredRegion {
			continue
		}
		out = append(out, u)
	}
	return out
}
