// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-secure-stdlib/base62"
	"github.com/hashicorp/go-uuid"
)

// DefaultLen is the length of the random portion of an id returned by New.
const DefaultLen = 20

// MinVerifierLen and MaxVerifierLen bound a PKCE code_verifier (RFC 7636 4.1).
const (
	MinVerifierLen = 43
	MaxVerifierLen = 128
)

// ErrInvalidLength is returned when a requested length is out of range.
var ErrInvalidLength = errors.New("invalid length")

// New generates an ID with an optional prefix.
func New(optionalPrefix string) (string, error) {
	id, err := base62.Random(DefaultLen)
	if err != nil {
		return "", fmt.Errorf("unable to generate id: %w", err)
	}
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}

// NewNonce generates a random UUID suitable for an oidc nonce.
func NewNonce() (string, error) {
	n, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("unable to generate nonce: %w", err)
	}
	return n, nil
}

// NewVerifier generates a base62 string of the given length.  Base62 is a
// subset of the unreserved characters allowed in a PKCE code_verifier.
func NewVerifier(length int) (string, error) {
	if length < MinVerifierLen || length > MaxVerifierLen {
		return "", fmt.Errorf("verifier length %d must be between %d and %d: %w", length, MinVerifierLen, MaxVerifierLen, ErrInvalidLength)
	}
	v, err := base62.Random(length)
	if err != nil {
		return "", fmt.Errorf("unable to generate verifier: %w", err)
	}
	return v, nil
}
