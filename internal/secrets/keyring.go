// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package secrets

import (
	"github.com/zalando/go-keyring"

	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
)

// KeyringStore implements Store using the OS keyring via
// zalando/go-keyring. On macOS it uses Keychain, on Linux
// secret-service (D-Bus), and on Windows the Credential Manager.
type KeyringStore struct{}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if service == "" {
		return "", helmerr.New(helmerr.CodeSecretInvalidInput, "secret retrieve: service must not be empty")
	}
	if key == "" {
		return "", helmerr.New(helmerr.CodeSecretInvalidInput, "secret retrieve: key must not be empty")
	}

	val, err := keyring.Get(service, key)
	if err != nil {
		return "", helmerr.Wrapf(err, helmerr.CodeSecretResolveFailure,
			"retrieving secret %s/%s", service, key)
	}
	return val, nil
}
