// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWKSServer(t *testing.T, keys ...jose.JSONWebKey) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/certs" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jose.JSONWebKeySet{Keys: keys})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestJSONWebKeySet_VerifySignature(t *testing.T) {
	t.Parallel()
	priv := testGenerateKey(t)
	other := testGenerateKey(t)
	srv := testJWKSServer(t, jose.JSONWebKey{
		Key:       priv.Public(),
		KeyID:     testKeyID,
		Algorithm: string(jose.ES256),
		Use:       "sig",
	})
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		ks, err := NewJSONWebKeySet(ctx, srv.URL+"/certs", srv.Client())
		require.NoError(err)
		claims, err := ks.VerifySignature(ctx, testSignJWT(t, priv, testRoleClaims(testClientID, "ACCESS_GRANTED")))
		require.NoError(err)
		assert.Equal("alice", claims["sub"])
	})
	t.Run("wrong-key", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		ks, err := NewJSONWebKeySet(ctx, srv.URL+"/certs", nil)
		require.NoError(err)
		_, err = ks.VerifySignature(ctx, testSignJWT(t, other, testRoleClaims(testClientID)))
		require.Error(err)
		assert.Truef(errors.Is(err, ErrInvalidSignature), "wanted \"%s\" but got \"%s\"", ErrInvalidSignature, err)
	})
	t.Run("empty-url", func(t *testing.T) {
		assert := assert.New(t)
		ks, err := NewJSONWebKeySet(ctx, "", nil)
		assert.Error(err)
		assert.Nil(ks)
	})
}

func TestStaticKeySet_VerifySignature(t *testing.T) {
	t.Parallel()
	priv := testGenerateKey(t)
	other := testGenerateKey(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		keys      []string
		token     string
		wantErr   bool
		wantIsErr error
	}{
		{
			name:  "valid",
			keys:  []string{testPublicKeyPEM(t, other.Public()), testPublicKeyPEM(t, priv.Public())},
			token: testSignJWT(t, priv, testRoleClaims(testClientID)),
		},
		{
			name:      "no-matching-key",
			keys:      []string{testPublicKeyPEM(t, other.Public())},
			token:     testSignJWT(t, priv, testRoleClaims(testClientID)),
			wantErr:   true,
			wantIsErr: ErrInvalidSignature,
		},
		{
			name:      "malformed",
			keys:      []string{testPublicKeyPEM(t, priv.Public())},
			token:     "not-a-jwt",
			wantErr:   true,
			wantIsErr: ErrMalformedToken,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			ks, err := NewStaticKeySet(tt.keys)
			require.NoError(err)
			claims, err := ks.VerifySignature(ctx, tt.token)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			assert.Equal("alice", claims["sub"])
		})
	}
}

func TestNewStaticKeySet_InvalidPEM(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	ks, err := NewStaticKeySet([]string{"not a pem"})
	assert.Error(err)
	assert.Nil(ks)
}
