// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package secrets

import (
	"strings"

	"github.com/helmgate-dev/helmgate/internal/transport"
	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
)

const keyringScheme = "keyring://"

// IsKeyringURI reports whether value uses the keyring:// URI scheme.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringURI extracts service and key from a keyring://service/key
// URI.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", helmerr.Errorf(helmerr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}

	path := strings.TrimPrefix(uri, keyringScheme)
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", helmerr.Errorf(helmerr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}

	return parts[0], parts[1], nil
}

// Resolve resolves a single keyring:// URI to its secret value. Values
// that are not keyring URIs pass through unchanged.
func Resolve(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}

	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}

	secret, err := store.Retrieve(service, key)
	if err != nil {
		return "", helmerr.Wrapf(err, helmerr.CodeSecretResolveFailure,
			"resolving keyring URI %q", value)
	}
	return secret, nil
}

// ResolveProviderKeys replaces keyring:// API keys in the provider map
// with their stored secrets. Post-load step, run once before the
// transport registry is built.
func ResolveProviderKeys(providers map[string]transport.ProviderConfig, store Store) error {
	for id, p := range providers {
		resolved, err := Resolve(store, p.APIKey)
		if err != nil {
			return helmerr.With(err, helmerr.FieldProvider(id))
		}
		p.APIKey = resolved
		providers[id] = p
	}
	return nil
}
