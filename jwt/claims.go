// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-jose/go-jose/v4/jwt"
)

var (
	// ErrMalformedToken is returned when a token cannot be decoded into a
	// claim set that carries resource_access.
	ErrMalformedToken = errors.New("malformed token")

	// ErrMissingRole is returned when a structurally valid token does not
	// grant every required role to the client.
	ErrMissingRole = errors.New("missing required role")
)

// ResourceAccess is the set of roles granted to one client.
type ResourceAccess struct {
	Roles []string `json:"roles"`
}

// Claims is the subset of access token claims needed to authorize a user
// for a client.
type Claims struct {
	Subject         string                    `json:"sub,omitempty"`
	AuthorizedParty string                    `json:"azp,omitempty"`
	Issuer          string                    `json:"iss,omitempty"`
	Expiry          *jwt.NumericDate          `json:"exp,omitempty"`
	ResourceAccess  map[string]ResourceAccess `json:"resource_access"`
}

// Roles returns the roles granted to clientID.  The second return is false
// when resource_access has no entry for the client.
func (c *Claims) Roles(clientID string) ([]string, bool) {
	if c == nil || c.ResourceAccess == nil {
		return nil, false
	}
	ra, ok := c.ResourceAccess[clientID]
	if !ok {
		return nil, false
	}
	return ra.Roles, true
}

// ParseClaims decodes the payload of a compact JWS without verifying its
// signature.  Any alg header is accepted, including HS256 and none.  Use a
// KeySet when the signature must be checked.
func ParseClaims(token string) (*Claims, error) {
	const op = "jwt.ParseClaims"
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%s: token is empty: %w", op, ErrMalformedToken)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%s: token has %d segments, expected 3: %w", op, len(parts), ErrMalformedToken)
	}
	var hdr map[string]interface{}
	if err := decodeSegment(parts[0], &hdr); err != nil || hdr == nil {
		return nil, fmt.Errorf("%s: header is not a json object: %v: %w", op, err, ErrMalformedToken)
	}
	var raw map[string]interface{}
	if err := decodeSegment(parts[1], &raw); err != nil || raw == nil {
		return nil, fmt.Errorf("%s: claims are not a json object: %v: %w", op, err, ErrMalformedToken)
	}
	ra, ok := raw["resource_access"]
	if !ok || ra == nil {
		return nil, fmt.Errorf("%s: resource_access claim is missing: %w", op, ErrMalformedToken)
	}
	var claims Claims
	if err := decodeSegment(parts[1], &claims); err != nil {
		return nil, fmt.Errorf("%s: unable to decode claims: %v: %w", op, err, ErrMalformedToken)
	}
	return &claims, nil
}

func decodeSegment(seg string, v interface{}) error {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(seg, "="))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// VerifyRoles checks that the token grants clientID every role in
// requiredRoles via its resource_access claim.  A partial grant fails.
//
// The signature is not checked: VerifyRoles is a pure function over the
// token's payload.
func VerifyRoles(token string, requiredRoles []string, clientID string) error {
	const op = "jwt.VerifyRoles"
	claims, err := ParseClaims(token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(requiredRoles) == 0 {
		return nil
	}
	granted, ok := claims.Roles(clientID)
	if !ok {
		return fmt.Errorf("%s: no roles granted to client %q: %w", op, clientID, ErrMissingRole)
	}
	if missing := missingRoles(requiredRoles, granted); len(missing) > 0 {
		return fmt.Errorf("%s: client %q is missing roles %s: %w", op, clientID, strings.Join(missing, ", "), ErrMissingRole)
	}
	return nil
}

func missingRoles(required, granted []string) []string {
	have := make(map[string]struct{}, len(granted))
	for _, r := range granted {
		have[r] = struct{}{}
	}
	var missing []string
	seen := map[string]struct{}{}
	for _, r := range required {
		if _, ok := have[r]; ok {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		missing = append(missing, r)
	}
	sort.Strings(missing)
	return missing
}
