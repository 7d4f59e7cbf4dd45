// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_TokenSource(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	env := testNewSession(t, nil)

	tok, err := env.session.TokenSource(ctx).Token()
	require.NoError(err)
	issued, _, _ := env.provider.Tokens()
	assert.Equal(issued, tok.AccessToken)
	assert.Equal("Bearer", tok.Type())
	assert.False(tok.Expiry.IsZero())

	// second call is served from the store
	_, err = env.session.TokenSource(ctx).Token()
	require.NoError(err)
	assert.Equal(1, env.provider.TokenRequests("authorization_code"))
}

func TestSession_Client(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	env := testNewSession(t, nil)

	resp, err := env.session.Client(ctx).Get(env.provider.Addr() + "/userinfo")
	require.NoError(err)
	defer resp.Body.Close()
	assert.Equal(http.StatusOK, resp.StatusCode)

	issued, _, _ := env.provider.Tokens()
	assert.Equal("Bearer "+issued, env.provider.LastUserInfoHeader().Get("Authorization"))
}

func TestSession_TokenSource_canceled(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	env := testNewSession(t, nil)
	env.presenter.SetDismiss(true)

	_, err := env.session.TokenSource(context.Background()).Token()
	require.Error(err)
	assert.ErrorIs(err, ErrUserCanceledAuthorizationFlow)
}
