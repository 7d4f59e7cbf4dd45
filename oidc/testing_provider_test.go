// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_StartTestProvider(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tp := StartTestProvider(t)

	resp, err := tp.HTTPClient().Get(tp.Addr() + "/.well-known/openid-configuration")
	require.NoError(err)
	defer resp.Body.Close()
	assert.Equal(http.StatusOK, resp.StatusCode)

	var md ProviderMetadata
	require.NoError(json.NewDecoder(resp.Body).Decode(&md))
	assert.Equal(ProviderMetadata{
		Issuer:                tp.Addr(),
		AuthorizationEndpoint: tp.Addr() + "/auth",
		TokenEndpoint:         tp.Addr() + "/token",
		UserInfoEndpoint:      tp.Addr() + "/userinfo",
		EndSessionEndpoint:    tp.Addr() + "/logout",
		JWKSURI:               tp.Addr() + "/certs",
	}, md)
}

func TestTestProvider_DisableEndpoints(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tp := StartTestProvider(t)
	tp.DisableUserInfo()
	tp.DisableEndSession()

	resp, err := tp.HTTPClient().Get(tp.Addr() + "/.well-known/openid-configuration")
	require.NoError(err)
	defer resp.Body.Close()
	var md ProviderMetadata
	require.NoError(json.NewDecoder(resp.Body).Decode(&md))
	assert.Empty(md.UserInfoEndpoint)
	assert.Empty(md.EndSessionEndpoint)

	for _, path := range []string{"/userinfo", "/logout"} {
		resp, err := tp.HTTPClient().Get(tp.Addr() + path)
		require.NoError(err)
		resp.Body.Close()
		assert.Equal(http.StatusNotFound, resp.StatusCode)
	}
}

func TestTestProvider_writeJSON(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		data := map[string]string{
			"FirstName": "jane",
			"LastName":  "doe",
		}
		rr := httptest.NewRecorder()
		err := tp.writeJSON(rr, data)
		require.NoError(err)
		// Check the response body is what we expect.
		expected := `{"FirstName":"jane","LastName":"doe"}`
		got := strings.TrimSuffix(rr.Body.String(), "\n")
		assert.Equal(expected, got)
	})
}

func TestTestProvider_writeAuthErrorResponse(t *testing.T) {
	tp := StartTestProvider(t)
	t.Run("simple", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		rr := httptest.NewRecorder()
		u, err := url.Parse("https://example.com/auth?redirect_uri=communityapp%3A%2F%2Fcallback&state=st_1")
		require.NoError(err)
		tp.writeAuthErrorResponse(rr, &http.Request{Method: "GET", URL: u}, "error_code", "error_message")
		assert.Equal(http.StatusFound, rr.Result().StatusCode)

		location, err := rr.Result().Location()
		require.NoError(err)
		assert.Equal("communityapp", location.Scheme)
		assert.Equal("callback", location.Host)
		assert.Equal("st_1", location.Query().Get("state"))
		assert.Equal("error_code", location.Query().Get("error"))
		assert.Equal("error_message", location.Query().Get("error_description"))
	})
}

func TestTestProvider_writeTokenErrorResponse(t *testing.T) {
	tp := StartTestProvider(t)
	type body struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}
	t.Run("include-desc", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		rr := httptest.NewRecorder()
		err := tp.writeTokenErrorResponse(rr, nil, 401, "error_code", "error_message")
		require.NoError(err)
		var errBody body
		err = json.Unmarshal(rr.Body.Bytes(), &errBody)
		require.NoError(err)
		assert.Equal(401, rr.Code)
		assert.Equal("error_code", errBody.Code)
		assert.Equal("error_message", errBody.Desc)
	})
	t.Run("no-desc", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		rr := httptest.NewRecorder()
		err := tp.writeTokenErrorResponse(rr, nil, 401, "error_code", "")
		require.NoError(err)
		var errBody body
		err = json.Unmarshal(rr.Body.Bytes(), &errBody)
		require.NoError(err)
		assert.Equal("error_code", errBody.Code)
		assert.Empty(errBody.Desc)
	})
}

func Test_testVerifyChallenge(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	verifier := strings.Repeat("v", 64)
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	assert.True(testVerifyChallenge(challenge, verifier))
	assert.False(testVerifyChallenge(challenge, verifier+"x"))
	assert.False(testVerifyChallenge("", verifier))
	assert.False(testVerifyChallenge(challenge, ""))
}
