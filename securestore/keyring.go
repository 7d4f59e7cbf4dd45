// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package securestore

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// Keyring is a Backend on top of the OS secure store.  Records are stored
// base64 encoded since some platforms only accept text secrets.
type Keyring struct {
	service string
}

// NewKeyring returns a Keyring backend that stores records under service.
// Apps that need to share state use the same service name.
func NewKeyring(service string) (*Keyring, error) {
	const op = "securestore.NewKeyring"
	if service == "" {
		return nil, fmt.Errorf("%s: service is empty: %w", op, ErrInvalidKey)
	}
	return &Keyring{service: service}, nil
}

// Read implements Backend.
func (k *Keyring) Read(key string) ([]byte, error) {
	const op = "Keyring.Read"
	if err := validKey(key); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	secret, err := keyring.Get(k.service, key)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return nil, fmt.Errorf("%s: %q: %w", op, key, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	data, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("%s: record is not base64: %w", op, err)
	}
	return data, nil
}

// Write implements Backend.
func (k *Keyring) Write(key string, data []byte) error {
	const op = "Keyring.Write"
	if err := validKey(key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := keyring.Set(k.service, key, base64.StdEncoding.EncodeToString(data)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Delete implements Backend.
func (k *Keyring) Delete(key string) error {
	const op = "Keyring.Delete"
	if err := validKey(key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := keyring.Delete(k.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
