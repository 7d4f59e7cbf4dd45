// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// sessionTokenSource adapts a Session to an oauth2.TokenSource.
type sessionTokenSource struct {
	ctx     context.Context
	session *Session
}

// Token implements oauth2.TokenSource.
func (ts *sessionTokenSource) Token() (*oauth2.Token, error) {
	const op = "sessionTokenSource.Token"
	access, err := ts.session.AccessToken(ts.ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if state := ts.session.store.Get(); state != nil && state.LastTokenResponse != nil &&
		string(state.LastTokenResponse.AccessToken) == access {
		if state.LastTokenResponse.TokenType != "" {
			tok.TokenType = state.LastTokenResponse.TokenType
		}
		tok.Expiry = state.LastTokenResponse.Expiry
	}
	return tok, nil
}

// TokenSource returns an oauth2.TokenSource backed by the session.  Tokens
// are acquired with AccessToken, which already caches them, so an
// interactive login may happen while a token is requested.
func (s *Session) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &sessionTokenSource{ctx: ctx, session: s}
}

// Client returns an http.Client that authorizes every request with the
// session's access token.
func (s *Session) Client(ctx context.Context) *http.Client {
	return oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, s.client), s.TokenSource(ctx))
}
