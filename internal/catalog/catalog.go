// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

// Package catalog holds the logical→physical model mappings and the
// candidate mapper that turns a routing request into an ordered list of
// physical upstreams.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
)

// Catalog is the immutable set of logical models loaded at startup.
type Catalog struct {
	models map[string]*LogicalModel
}

// catalogFile is the YAML document shape of the model catalog.
type catalogFile struct {
	Models []LogicalModel `yaml:"models"`
}

// Load reads and validates a model catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, helmerr.Wrapf(err, helmerr.CodeCatalogLoadFailure, "reading catalog %s", path)
	}
	return Parse(data)
}

// Parse builds a catalog from raw YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, helmerr.Wrapf(err, helmerr.CodeCatalogParseInvalid, "parsing catalog")
	}

	c := &Catalog{models: make(map[string]*LogicalModel, len(file.Models))}
	for i := range file.Models {
		m := &file.Models[i]
		if errs := validateModel(m); len(errs) > 0 {
			return nil, helmerr.Wrap(errors.Join(errs...), helmerr.CodeCatalogInvalidValue,
				"validating catalog", helmerr.FieldModel(m.ID))
		}
		if _, dup := c.models[m.ID]; dup {
			return nil, helmerr.Errorf(helmerr.CodeCatalogInvalidValue,
				"catalog: duplicate logical model %q", m.ID)
		}
		c.models[m.ID] = m
	}
	return c, nil
}

// Get returns the logical model for id. Unknown ids map onto the
// NotFound taxonomy so handlers surface a 404 unchanged.
func (c *Catalog) Get(id string) (*LogicalModel, error) {
	m, ok := c.models[id]
	if !ok {
		return nil, helmerr.New(helmerr.CodeRoutingModelNotFound,
			"unknown logical model: "+id, helmerr.FieldModel(id))
	}
	return m, nil
}

// IDs returns all logical model ids in lexical order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.models))
	for id := range c.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// validateModel collects all problems with a single logical model
// rather than stopping at the first one.
func validateModel(m *LogicalModel) []error {
	var errs []error

	if m.ID == "" {
		errs = append(errs, fmt.Errorf("catalog: model id must not be empty"))
	}
	if len(m.Upstreams) == 0 {
		errs = append(errs, fmt.Errorf("catalog: model %q has no upstreams", m.ID))
	}

	for i, u := range m.Upstreams {
		if u.ProviderID == "" {
			errs = append(errs, fmt.Errorf("catalog: model %q upstream[%d] missing provider_id", m.ID, i))
		}
		if u.ModelID == "" {
			errs = append(errs, fmt.Errorf("catalog: model %q upstream[%d] missing model_id", m.ID, i))
		}
		if !u.APIStyle.Valid() {
			errs = append(errs, fmt.Errorf("catalog: model %q upstream[%d] api_style must be one of [openai, claude, gemini], got %q", m.ID, i, u.APIStyle))
		}
		if u.Weight < 0 {
			errs = append(errs, fmt.Errorf("catalog: model %q upstream[%d] weight must be non-negative, got %g", m.ID, i, u.Weight))
		}
	}

	return errs
}
