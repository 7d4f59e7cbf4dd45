// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthState_ClientID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		state *AuthState
		want  string
	}{
		{name: "nil", state: nil, want: ""},
		{name: "empty", state: &AuthState{}, want: ""},
		{
			name:  "auth-only",
			state: &AuthState{LastAuthorizationResponse: &AuthorizationResponse{ClientID: "auth"}},
			want:  "auth",
		},
		{
			name:  "token-only",
			state: &AuthState{LastTokenResponse: &TokenResponse{ClientID: "token"}},
			want:  "token",
		},
		{
			name: "token-preferred",
			state: &AuthState{
				LastAuthorizationResponse: &AuthorizationResponse{ClientID: "auth"},
				LastTokenResponse:         &TokenResponse{ClientID: "token"},
			},
			want: "token",
		},
		{
			name: "empty-token-client-falls-back",
			state: &AuthState{
				LastAuthorizationResponse: &AuthorizationResponse{ClientID: "auth"},
				LastTokenResponse:         &TokenResponse{},
			},
			want: "auth",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.state.ClientID())
		})
	}
}

func TestAuthState_isAuthorizedAt(t *testing.T) {
	t.Parallel()
	now := time.Now()
	tests := []struct {
		name  string
		state *AuthState
		want  bool
	}{
		{name: "nil", want: false},
		{name: "no-token-response", state: &AuthState{}, want: false},
		{
			name:  "valid-access-token",
			state: &AuthState{LastTokenResponse: &TokenResponse{AccessToken: "at", Expiry: now.Add(time.Hour)}},
			want:  true,
		},
		{
			name:  "no-expiry",
			state: &AuthState{LastTokenResponse: &TokenResponse{AccessToken: "at"}},
			want:  true,
		},
		{
			name:  "within-skew",
			state: &AuthState{LastTokenResponse: &TokenResponse{AccessToken: "at", Expiry: now.Add(5 * time.Second)}},
			want:  false,
		},
		{
			name:  "expired-with-refresh",
			state: &AuthState{LastTokenResponse: &TokenResponse{AccessToken: "at", RefreshToken: "rt", Expiry: now.Add(-time.Hour)}},
			want:  true,
		},
		{
			name:  "refresh-only",
			state: &AuthState{LastTokenResponse: &TokenResponse{RefreshToken: "rt"}},
			want:  true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.state.isAuthorizedAt(now))
		})
	}
}

func TestAuthState_Clone(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	assert.Nil((*AuthState)(nil).Clone())

	orig := testAuthState("client", time.Now().Add(time.Hour))
	c := orig.Clone()
	require.Equal(orig, c)

	c.Provider.TokenEndpoint = "changed"
	c.LastAuthorizationResponse.Scopes[0] = "changed"
	c.LastTokenResponse.Scopes[0] = "changed"
	c.LastTokenResponse.AccessToken = "changed"

	assert.NotEqual("changed", orig.Provider.TokenEndpoint)
	assert.NotEqual("changed", orig.LastAuthorizationResponse.Scopes[0])
	assert.NotEqual("changed", orig.LastTokenResponse.Scopes[0])
	assert.NotEqual(AccessToken("changed"), orig.LastTokenResponse.AccessToken)
}

// testAuthState returns a fully populated state for clientID.
func testAuthState(clientID string, expiry time.Time) *AuthState {
	return &AuthState{
		Provider: &ProviderMetadata{
			Issuer:                "https://auth.example.com/realms/community",
			AuthorizationEndpoint: "https://auth.example.com/realms/community/auth",
			TokenEndpoint:         "https://auth.example.com/realms/community/token",
			UserInfoEndpoint:      "https://auth.example.com/realms/community/userinfo",
			EndSessionEndpoint:    "https://auth.example.com/realms/community/logout",
			JWKSURI:               "https://auth.example.com/realms/community/certs",
		},
		LastAuthorizationResponse: &AuthorizationResponse{
			ClientID:    clientID,
			Scopes:      []string{"openid", "profile", "roles"},
			Code:        "code",
			State:       "st_state",
			RedirectURL: "communityapp://callback",
		},
		LastTokenResponse: &TokenResponse{
			ClientID:     clientID,
			AccessToken:  "access",
			RefreshToken: "refresh",
			IdToken:      "id",
			TokenType:    "Bearer",
			Expiry:       expiry.UTC().Truncate(time.Second),
			Scopes:       []string{"openid", "profile", "roles"},
		},
	}
}
