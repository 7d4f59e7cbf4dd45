// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/communityapp/authsession/sdk/id"
)

// ChallengeMethod represents PKCE code challenge methods as defined by RFC
// 7636.
type ChallengeMethod string

const (
	// S256 is the only challenge method this package sends.
	//
	// See: https://tools.ietf.org/html/rfc7636#section-4.3
	S256 ChallengeMethod = "S256"
)

// verifierLen is the length of a generated code_verifier.
const verifierLen = 64

// CodeVerifier holds a PKCE code_verifier and its derived challenge.  See
// https://tools.ietf.org/html/rfc7636#section-4.1
type CodeVerifier struct {
	verifier  string
	challenge string
	method    ChallengeMethod
}

// NewCodeVerifier creates a new CodeVerifier using the S256 challenge method.
func NewCodeVerifier() (*CodeVerifier, error) {
	const op = "NewCodeVerifier"
	data, err := id.NewVerifier(verifierLen)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create verifier data: %w", op, err)
	}
	v := &CodeVerifier{
		verifier: data,
		method:   S256,
	}
	if v.challenge, err = CreateCodeChallenge(v.method, v); err != nil {
		return nil, fmt.Errorf("%s: unable to create code challenge: %w", op, err)
	}
	return v, nil
}

func (v *CodeVerifier) Verifier() string        { return v.verifier }  // Verifier returns the code_verifier
func (v *CodeVerifier) Challenge() string       { return v.challenge } // Challenge returns the code_challenge
func (v *CodeVerifier) Method() ChallengeMethod { return v.method }    // Method returns the code_challenge_method

// CreateCodeChallenge creates a code challenge from the verifier.
func CreateCodeChallenge(method ChallengeMethod, v *CodeVerifier) (string, error) {
	const op = "CreateCodeChallenge"
	if v == nil {
		return "", fmt.Errorf("%s: code verifier is nil: %w", op, ErrNilParameter)
	}
	switch method {
	case S256:
		h := sha256.New()
		_, _ = h.Write([]byte(v.verifier)) // hash documents that Write will never return an Error
		sum := h.Sum(nil)
		return base64.RawURLEncoding.EncodeToString(sum), nil
	default:
		return "", fmt.Errorf("%s: %s is not a supported challenge method: %w", op, method, ErrUnsupportedChallengeMethod)
	}
}
