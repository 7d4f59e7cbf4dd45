// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// AccessToken is an oauth access_token
type AccessToken string

// RedactedAccessToken is the redacted string or json for an oauth access_token
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// MarshalJSON will redact the token
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAccessToken)
}

// AuthCode is an oauth authorization code
type AuthCode string

// RedactedAuthCode is the redacted string or json for an oauth authorization code
const RedactedAuthCode = "[REDACTED: code]"

// String will redact the code
func (c AuthCode) String() string {
	return RedactedAuthCode
}

// MarshalJSON will redact the code
func (c AuthCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAuthCode)
}

// UnmarshalClaims will retrieve the claims from the provided raw JWT token
// without verifying its signature.
func UnmarshalClaims(rawToken string, claims interface{}) error {
	const op = "UnmarshalClaims"
	if rawToken == "" {
		return fmt.Errorf("%s: token is empty: %w", op, ErrInvalidParameter)
	}
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	parts := strings.Split(rawToken, ".")
	if len(parts) != 3 {
		return fmt.Errorf("%s: malformed jwt, expected 3 parts got %d: %w", op, len(parts), ErrInvalidParameter)
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return fmt.Errorf("%s: malformed jwt payload: %v: %w", op, err, ErrInvalidParameter)
	}
	if err := json.Unmarshal(raw, claims); err != nil {
		return fmt.Errorf("%s: unable to marshal jwt JSON: %w", op, err)
	}
	return nil
}
