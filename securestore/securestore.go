// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package securestore

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Read when no record is stored under the key.
	ErrNotFound = errors.New("record not found")

	ErrInvalidKey = errors.New("invalid key")
)

// Backend stores opaque records by key.
type Backend interface {
	// Read returns the record stored under key or ErrNotFound.
	Read(key string) ([]byte, error)

	// Write replaces the record stored under key.  A failed Write leaves the
	// previous record untouched.
	Write(key string, data []byte) error

	// Delete removes the record stored under key.  Deleting a missing record
	// succeeds.
	Delete(key string) error
}

// validKey rejects keys that cannot be used as a file name on every
// supported platform.
func validKey(key string) error {
	const op = "securestore.validKey"
	switch {
	case strings.TrimSpace(key) == "":
		return fmt.Errorf("%s: key is empty: %w", op, ErrInvalidKey)
	case strings.ContainsAny(key, `/\:*?"<>|`), key == ".", key == "..", strings.HasPrefix(key, "."):
		return fmt.Errorf("%s: key %q contains reserved characters: %w", op, key, ErrInvalidKey)
	}
	return nil
}
