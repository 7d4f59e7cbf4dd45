// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"time"
)

// expirySkew is subtracted from an access token's expiry when deciding
// whether it is still usable.
const expirySkew = 10 * time.Second

// ProviderMetadata is the subset of a provider's discovery document a
// session needs after the initial login.  It is persisted with the state so
// refresh, userinfo and end session work without rediscovery.
type ProviderMetadata struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserInfoEndpoint      string `json:"userinfo_endpoint,omitempty"`
	EndSessionEndpoint    string `json:"end_session_endpoint,omitempty"`
	JWKSURI               string `json:"jwks_uri"`
}

// AuthorizationResponse records the result of the last authorization
// request.
type AuthorizationResponse struct {
	ClientID    string   `json:"client_id"`
	Scopes      []string `json:"scopes,omitempty"`
	Code        AuthCode `json:"code,omitempty"`
	State       string   `json:"state,omitempty"`
	RedirectURL string   `json:"redirect_url,omitempty"`
}

// TokenResponse records the result of the last token request, whether it
// exchanged an authorization code or a refresh token.
type TokenResponse struct {
	ClientID     string       `json:"client_id"`
	AccessToken  AccessToken  `json:"access_token,omitempty"`
	RefreshToken RefreshToken `json:"refresh_token,omitempty"`
	IdToken      IdToken      `json:"id_token,omitempty"`
	TokenType    string       `json:"token_type,omitempty"`
	Expiry       time.Time    `json:"expiry,omitempty"`
	Scopes       []string     `json:"scopes,omitempty"`
}

// AuthState is the persisted authentication state of the app.  At most one
// exists at a time.  A nil *AuthState means the user is logged out.
type AuthState struct {
	Provider                  *ProviderMetadata      `json:"provider,omitempty"`
	LastAuthorizationResponse *AuthorizationResponse `json:"last_authorization_response,omitempty"`
	LastTokenResponse         *TokenResponse         `json:"last_token_response,omitempty"`
}

// ClientID returns the client the state was issued to, preferring the most
// recent token response over the authorization response.  An empty string
// means neither recorded one.
func (s *AuthState) ClientID() string {
	if s == nil {
		return ""
	}
	if s.LastTokenResponse != nil && s.LastTokenResponse.ClientID != "" {
		return s.LastTokenResponse.ClientID
	}
	if s.LastAuthorizationResponse != nil {
		return s.LastAuthorizationResponse.ClientID
	}
	return ""
}

// clientIDConflict reports whether both responses name a client and they
// differ.
func (s *AuthState) clientIDConflict() (tokenClientID, authClientID string, conflict bool) {
	if s == nil || s.LastTokenResponse == nil || s.LastAuthorizationResponse == nil {
		return "", "", false
	}
	tokenClientID, authClientID = s.LastTokenResponse.ClientID, s.LastAuthorizationResponse.ClientID
	return tokenClientID, authClientID, tokenClientID != "" && authClientID != "" && tokenClientID != authClientID
}

// IsAuthorized reports whether the state holds an unexpired access token or
// a refresh token to obtain a new one.
func (s *AuthState) IsAuthorized() bool {
	return s.isAuthorizedAt(time.Now())
}

func (s *AuthState) isAuthorizedAt(now time.Time) bool {
	if s == nil || s.LastTokenResponse == nil {
		return false
	}
	return s.LastTokenResponse.validAccessToken(now) || s.LastTokenResponse.RefreshToken != ""
}

// validAccessToken reports whether the access token can be used at now.  A
// token without an expiry is treated as valid.
func (t *TokenResponse) validAccessToken(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	if t.Expiry.IsZero() {
		return true
	}
	return now.Add(expirySkew).Before(t.Expiry)
}

// Clone returns a deep copy of the state.
func (s *AuthState) Clone() *AuthState {
	if s == nil {
		return nil
	}
	c := &AuthState{}
	if s.Provider != nil {
		p := *s.Provider
		c.Provider = &p
	}
	if s.LastAuthorizationResponse != nil {
		a := *s.LastAuthorizationResponse
		a.Scopes = cloneStrings(a.Scopes)
		c.LastAuthorizationResponse = &a
	}
	if s.LastTokenResponse != nil {
		t := *s.LastTokenResponse
		t.Scopes = cloneStrings(t.Scopes)
		c.LastTokenResponse = &t
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}

// UserInfo is the profile returned by the provider's userinfo endpoint.
type UserInfo struct {
	Name       string `json:"name,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Email      string `json:"email,omitempty"`
}
