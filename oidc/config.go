// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/communityapp/authsession/jwt"
	"github.com/communityapp/authsession/oidc/internal/strutils"
	sdkHttp "github.com/communityapp/authsession/sdk/http"
	"github.com/hashicorp/go-multierror"
)

const (
	// ScopeOpenID is the mandatory scope for all OpenID Connect OAuth2 requests.
	ScopeOpenID = "openid"
	// ScopeProfile requests the default profile claims.
	ScopeProfile = "profile"
	// ScopeRoles requests the client role mappings in resource_access.
	ScopeRoles = "roles"

	// RoleAccessGranted is the role a user needs to use the app.
	RoleAccessGranted = "ACCESS_GRANTED"

	// DefaultCancelErrorCode is the authorization error code a provider
	// returns when the user declines or cancels the login.
	DefaultCancelErrorCode = "access_denied"
)

// ClientSecret is an oauth client secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Config represents the configuration for the app's OIDC client
// registration.  It is built once, from the environment the app was built
// for, and handed to a Session.
type Config struct {
	// Issuer is a case-sensitive URL string using the https scheme that
	// contains scheme, host, and optionally, port number and path components
	// and no query or fragment components.  Discovery is performed against
	// {Issuer}/.well-known/openid-configuration.
	Issuer string

	// ClientID is the relying party id
	ClientID string

	// ClientSecret is the optional relying party secret.  Native apps are
	// public clients and leave it empty.
	ClientSecret ClientSecret

	// RedirectURL is where the provider returns after login.
	RedirectURL string

	// EndSessionRedirectURL is the post_logout_redirect_uri.
	EndSessionRedirectURL string

	// Scopes requested in addition to the required "openid" scope.
	Scopes []string

	// RequiredRoles must all be granted to ClientID in the access token's
	// resource_access claim.
	RequiredRoles []string

	// SupportedSigningAlgs is a list of supported signing algorithms for the
	// id_token and access_token.
	SupportedSigningAlgs []jwt.Alg

	// Audiences is an optional list of case-sensitive strings used when
	// verifying an id_token's "aud" claim.
	Audiences []string

	// ProviderCA is an optional CA cert to use when sending requests to the provider.
	ProviderCA string

	// SkipAccessTokenSignature disables verifying the access_token signature
	// against the provider's JWKS before its roles are checked.
	SkipAccessTokenSignature bool

	// CancelErrorCodes are authorization error codes treated as the user
	// canceling the flow.
	CancelErrorCodes []string
}

// NewConfig composes a new config for the app's client registration.
// Supported options:
//
//	WithClientSecret
//	WithScopes
//	WithRequiredRoles
//	WithSupportedSigningAlgs
//	WithAudiences
//	WithProviderCA
//	WithSkipAccessTokenSignature
//	WithCancelErrorCodes
func NewConfig(issuer, clientID, redirectURL, endSessionRedirectURL string, opt ...Option) (*Config, error) {
	const op = "NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		Issuer:                   issuer,
		ClientID:                 clientID,
		ClientSecret:             opts.withClientSecret,
		RedirectURL:              redirectURL,
		EndSessionRedirectURL:    endSessionRedirectURL,
		Scopes:                   opts.withScopes,
		RequiredRoles:            opts.withRequiredRoles,
		SupportedSigningAlgs:     opts.withSupportedSigningAlgs,
		Audiences:                opts.withAudiences,
		ProviderCA:               opts.withProviderCA,
		SkipAccessTokenSignature: opts.withSkipAccessTokenSignature,
		CancelErrorCodes:         opts.withCancelErrorCodes,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid provider config: %w", op, err)
	}
	return c, nil
}

// Validate the provider configuration.  Among other validations, it verifies
// the issuer is not empty, but it doesn't verify the Issuer is discoverable via
// an http request.  Every problem found is reported.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if c.Issuer == "" {
		result = multierror.Append(result, fmt.Errorf("discovery URL is empty: %w", ErrInvalidParameter))
	} else {
		u, err := url.Parse(c.Issuer)
		switch {
		case err != nil:
			result = multierror.Append(result, fmt.Errorf("issuer %s is invalid: %v: %w", c.Issuer, err, ErrInvalidIssuer))
		case !strutils.StrListContains([]string{"https", "http"}, u.Scheme):
			result = multierror.Append(result, fmt.Errorf("issuer %s scheme is not http or https: %w", c.Issuer, ErrInvalidIssuer))
		case u.RawQuery != "" || u.Fragment != "":
			result = multierror.Append(result, fmt.Errorf("issuer %s has a query or fragment: %w", c.Issuer, ErrInvalidIssuer))
		}
	}
	for name, v := range map[string]string{"redirect URL": c.RedirectURL, "end session redirect URL": c.EndSessionRedirectURL} {
		if v == "" {
			result = multierror.Append(result, fmt.Errorf("%s is empty: %w", name, ErrInvalidParameter))
			continue
		}
		if u, err := url.Parse(v); err != nil || u.Scheme == "" {
			result = multierror.Append(result, fmt.Errorf("%s %s is not an absolute URL: %w", name, v, ErrInvalidParameter))
		}
	}
	if len(c.SupportedSigningAlgs) == 0 {
		result = multierror.Append(result, fmt.Errorf("supported algorithms is empty: %w", ErrInvalidParameter))
	}
	if err := jwt.SupportedSigningAlgorithm(c.SupportedSigningAlgs...); err != nil {
		result = multierror.Append(result, fmt.Errorf("%v: %w", err, ErrInvalidParameter))
	}
	if c.ProviderCA != "" {
		if _, err := c.HttpClient(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// scopes returns the scopes to request, always starting with "openid".
func (c *Config) scopes() []string {
	return strutils.RemoveDuplicatesStable(append([]string{ScopeOpenID}, c.Scopes...), false)
}

// isCancelCode reports whether an authorization error code means the user
// canceled.
func (c *Config) isCancelCode(code string) bool {
	return strutils.StrListContains(c.CancelErrorCodes, code)
}

// algs returns the supported signing algs as strings for go-oidc.
func (c *Config) algs() []string {
	algs := make([]string, 0, len(c.SupportedSigningAlgs))
	for _, a := range c.SupportedSigningAlgs {
		algs = append(algs, string(a))
	}
	return algs
}

// HttpClient is a helper function that creates a new http client for the
// provider configured
func (c *Config) HttpClient() (*http.Client, error) {
	const op = "Config.HttpClient"
	client, err := sdkHttp.NewClient(c.ProviderCA)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value successfully: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// configOptions is the set of available options
type configOptions struct {
	withClientSecret             ClientSecret
	withScopes                   []string
	withRequiredRoles            []string
	withSupportedSigningAlgs     []jwt.Alg
	withAudiences                []string
	withProviderCA               string
	withSkipAccessTokenSignature bool
	withCancelErrorCodes         []string
}

// configDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func configDefaults() configOptions {
	return configOptions{
		withScopes:               []string{ScopeProfile, ScopeRoles},
		withRequiredRoles:        []string{RoleAccessGranted},
		withSupportedSigningAlgs: []jwt.Alg{jwt.RS256, jwt.ES256},
		withCancelErrorCodes:     []string{DefaultCancelErrorCode},
	}
}

// getConfigOpts gets the defaults and applies the opt overrides passed
// in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithClientSecret provides an optional client secret for confidential clients.
func WithClientSecret(secret ClientSecret) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withClientSecret = secret
		}
	}
}

// WithScopes provides an optional list of scopes which replace the default
// "profile roles".  "openid" is always requested.
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithRequiredRoles replaces the default ACCESS_GRANTED required role set.
func WithRequiredRoles(roles ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withRequiredRoles = roles
		}
	}
}

// WithSupportedSigningAlgs replaces the default RS256 and ES256 algs.
func WithSupportedSigningAlgs(algs ...jwt.Alg) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withSupportedSigningAlgs = algs
		}
	}
}

// WithAudiences provides an optional list of audiences for the provider's config
func WithAudiences(auds ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withAudiences = auds
		}
	}
}

// WithProviderCA provides an optional CA cert for the provider's config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithSkipAccessTokenSignature disables access_token signature verification.
// Only use it when the token endpoint is already trusted to authenticate
// the token.
func WithSkipAccessTokenSignature() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withSkipAccessTokenSignature = true
		}
	}
}

// WithCancelErrorCodes replaces the authorization error codes treated as a
// user cancellation.
func WithCancelErrorCodes(codes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withCancelErrorCodes = codes
		}
	}
}
