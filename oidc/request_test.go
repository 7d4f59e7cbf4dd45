// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	t.Parallel()
	skew := 250 * time.Millisecond
	defaultExpireIn := 1 * time.Minute
	redirect := "http://127.0.0.1:9999/callback"
	testNow := func() time.Time {
		return time.Now().Add(-1 * time.Minute)
	}
	tests := []struct {
		name         string
		expireIn     time.Duration
		redirect     string
		opts         []Option
		wantNowFunc  bool
		wantVerifier bool
		wantErr      bool
		wantIsErr    error
	}{
		{
			name:        "valid-WithNow",
			expireIn:    defaultExpireIn,
			redirect:    redirect,
			opts:        []Option{WithNow(testNow)},
			wantNowFunc: true,
		},
		{
			name:     "valid-no-opt",
			expireIn: defaultExpireIn,
			redirect: redirect,
		},
		{
			name:         "valid-WithPKCE",
			expireIn:     defaultExpireIn,
			redirect:     redirect,
			opts:         []Option{WithPKCE()},
			wantVerifier: true,
		},
		{
			name:      "zero-expireIn",
			expireIn:  0,
			redirect:  redirect,
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "empty-redirect",
			expireIn:  defaultExpireIn,
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewRequest(tt.expireIn, tt.redirect, tt.opts...)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			tExp := got.now().Add(tt.expireIn)
			assert.True(got.ExpiresAt().Before(tExp.Add(skew)))
			assert.True(got.ExpiresAt().After(tExp.Add(-skew)))
			assert.NotEqualf(got.State(), got.Nonce(), "%s state should not equal %s nonce", got.State(), got.Nonce())
			assert.NotEmpty(got.State())
			assert.NotEmpty(got.Nonce())
			assert.Equal(tt.redirect, got.RedirectURL())
			assert.Equal(tt.wantNowFunc, got.nowFunc != nil)
			if tt.wantVerifier {
				require.NotNil(got.PKCEVerifier())
				assert.Equal(S256, got.PKCEVerifier().Method())
			} else {
				assert.Nil(got.PKCEVerifier())
			}
		})
	}
}

func TestRequest_IsExpired(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	now := time.Now()
	clock := func() time.Time { return now }
	r, err := NewRequest(time.Minute, "http://127.0.0.1/callback", WithNow(clock))
	require.NoError(err)
	assert.False(r.IsExpired())

	now = now.Add(2 * time.Minute)
	assert.True(r.IsExpired())
}
