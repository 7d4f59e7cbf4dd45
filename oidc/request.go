// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"time"

	"github.com/communityapp/authsession/sdk/id"
)

// DefaultRequestExpiry bounds how long an interactive flow may wait for the
// provider's redirect.
const DefaultRequestExpiry = 10 * time.Minute

// DefaultRequestExpirySkew defines a default time skew when checking a
// Request's expiration.
const DefaultRequestExpirySkew = 1 * time.Second

// Request represents one interactive flow with the provider: an
// authorization request or an end-session request.  State() is passed to
// the provider and must come back unchanged on the redirect.  State() and
// Nonce() are never equal.
type Request struct {
	// state is a unique identifier and an opaque value used to maintain
	// state between the request and the redirect.
	state string

	// nonce is a unique nonce and suitable for use as an oidc nonce.
	nonce string

	// redirectURL is where the provider sends the user agent back to.
	redirectURL string

	// verifier is the PKCE code verifier; nil for end-session requests.
	verifier *CodeVerifier

	expiration time.Time
	nowFunc    func() time.Time
}

// NewRequest creates a new Request that expires in expireIn.
// Supported options: WithNow, WithPKCE
func NewRequest(expireIn time.Duration, redirectURL string, opt ...Option) (*Request, error) {
	const op = "oidc.NewRequest"
	opts := getReqOpts(opt...)
	if expireIn <= 0 {
		return nil, fmt.Errorf("%s: expireIn not greater than zero: %w", op, ErrInvalidParameter)
	}
	if redirectURL == "" {
		return nil, fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter)
	}
	nonce, err := id.NewNonce()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a request's nonce: %v: %w", op, err, ErrIdGeneratorFailed)
	}
	state, err := id.New("st")
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a request's state: %v: %w", op, err, ErrIdGeneratorFailed)
	}
	r := &Request{
		state:       state,
		nonce:       nonce,
		redirectURL: redirectURL,
		nowFunc:     opts.withNowFunc,
	}
	r.expiration = r.now().Add(expireIn)
	if opts.withPKCE {
		if r.verifier, err = NewCodeVerifier(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return r, nil
}

func (r *Request) State() string               { return r.state }       // State returns the request's state parameter
func (r *Request) Nonce() string               { return r.nonce }       // Nonce returns the request's nonce
func (r *Request) RedirectURL() string         { return r.redirectURL } // RedirectURL returns the request's redirect_uri
func (r *Request) PKCEVerifier() *CodeVerifier { return r.verifier }    // PKCEVerifier returns the optional PKCE verifier
func (r *Request) ExpiresAt() time.Time        { return r.expiration }  // ExpiresAt returns the request's expiration

// IsExpired returns true if the request has expired, allowing for
// DefaultRequestExpirySkew.
func (r *Request) IsExpired() bool {
	return r.expiration.Before(r.now().Add(DefaultRequestExpirySkew))
}

// now returns the current time using the optional nowFunc.
func (r *Request) now() time.Time {
	if r.nowFunc != nil {
		return r.nowFunc()
	}
	return time.Now() // fallback to this default
}

// reqOptions is the set of available options for Request functions
type reqOptions struct {
	withNowFunc func() time.Time
	withPKCE    bool
}

// reqDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func reqDefaults() reqOptions {
	return reqOptions{}
}

// getReqOpts gets the request defaults and applies the opt overrides passed in
func getReqOpts(opt ...Option) reqOptions {
	opts := reqDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithPKCE attaches a PKCE code verifier to a Request.
func WithPKCE() Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withPKCE = true
		}
	}
}
