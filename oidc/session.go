// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/communityapp/authsession/jwt"
	"github.com/communityapp/authsession/oidc/internal/strutils"
	"github.com/communityapp/authsession/sdk/id"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// SessionStatus is the lifecycle status of a Session.
type SessionStatus int

const (
	StatusUnauthenticated SessionStatus = iota
	StatusAuthenticating
	StatusAuthenticated
	StatusRefreshing
	StatusEndingSession
)

// String returns the status name.
func (s SessionStatus) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusRefreshing:
		return "refreshing"
	case StatusEndingSession:
		return "ending_session"
	default:
		return "unknown"
	}
}

// Session owns the app's authentication lifecycle with one provider: login
// with the authorization code flow and PKCE, silent refresh, userinfo and
// end session.  State is persisted through a StateStore.  A Session is safe
// for concurrent use; at most one interactive flow is pending at a time.
type Session struct {
	cfg       *Config
	store     *StateStore
	presenter Presenter
	client    *http.Client
	logger    hclog.Logger
	nowFunc   func() time.Time
	onChange  func(Event)

	group  singleflight.Group
	events *broadcaster

	acqMu  sync.Mutex
	acq    *acquisition
	acqGen uint64

	mu      sync.Mutex
	pending *flow
	status  SessionStatus

	keysMu       sync.Mutex
	keySetsURI   string
	idKeySet     gooidc.KeySet
	accessKeySet jwt.KeySet
}

// NewSession creates a session for cfg persisting to store.  The presenter
// is used for every interactive flow.
// Supported options: WithLogger, WithNow, WithStateChangeFunc
func NewSession(cfg *Config, store *StateStore, presenter Presenter, opt ...Option) (*Session, error) {
	const op = "NewSession"
	switch {
	case cfg == nil:
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	case store == nil:
		return nil, fmt.Errorf("%s: store is nil: %w", op, ErrNilParameter)
	case presenter == nil:
		return nil, fmt.Errorf("%s: presenter is nil: %w", op, ErrNilParameter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	client, err := cfg.HttpClient()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts := getSessionOpts(opt...)
	s := &Session{
		cfg:       cfg,
		store:     store,
		presenter: presenter,
		client:    client,
		logger:    opts.withLogger.Named("session"),
		nowFunc:   opts.withNowFunc,
		onChange:  opts.withStateChangeFunc,
		events:    newBroadcaster(),
	}
	if store.Get().isAuthorizedAt(s.now()) {
		s.status = StatusAuthenticated
	}
	return s, nil
}

func (s *Session) now() time.Time {
	if s.nowFunc != nil {
		return s.nowFunc()
	}
	return time.Now()
}

// Status returns the session's current status.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) setStatus(st SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
}

// settleStatus derives the idle status from the stored state.
func (s *Session) settleStatus() {
	st := StatusUnauthenticated
	if s.store.Get().isAuthorizedAt(s.now()) {
		st = StatusAuthenticated
	}
	s.setStatus(st)
}

// IsAuthorized reports whether the stored state holds a usable access token
// or a refresh token.
func (s *Session) IsAuthorized() bool {
	return s.store.Get().isAuthorizedAt(s.now())
}

// Subscribe returns a channel of session events and a func to unsubscribe,
// which closes the channel.  Events are dropped for a subscriber that does
// not keep up.
func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.events.subscribe()
}

func (s *Session) publish(t EventType, clientID string) {
	e := Event{Type: t, ClientID: clientID}
	if s.onChange != nil {
		s.onChange(e)
	}
	if dropped := s.events.publish(e); dropped > 0 {
		s.logger.Warn("event dropped for slow subscribers", "event", t.String(), "subscribers", dropped)
	}
}

// AccessToken returns an access token for the configured client.  A stored
// token that is still valid is returned as is, an expired one is refreshed,
// and when there is no state or the refresh fails the user is sent through
// an interactive login.  Concurrent callers share a single acquisition;
// canceling ctx only abandons this caller's wait, and the shared
// acquisition is canceled once every caller has left.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	const op = "Session.AccessToken"
	a := s.joinAcquisition(ctx)
	ch := s.group.DoChan(a.key, func() (interface{}, error) {
		return s.acquire(a.ctx)
	})
	select {
	case r := <-ch:
		s.leaveAcquisition(a)
		if r.Err != nil {
			return "", fmt.Errorf("%s: %w", op, r.Err)
		}
		if r.Shared {
			s.logger.Trace("shared access token acquisition")
		}
		return r.Val.(string), nil
	case <-ctx.Done():
		s.leaveAcquisition(a)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s: %w", op, ctx.Err())
		}
		return "", fmt.Errorf("%s: %v: %w", op, ctx.Err(), ErrUserCanceledAuthorizationFlow)
	}
}

// acquisition is one shared AccessToken run and the callers waiting on it.
type acquisition struct {
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// joinAcquisition returns the running acquisition, starting a new one
// detached from ctx's cancellation when there is none.
func (s *Session) joinAcquisition(ctx context.Context) *acquisition {
	s.acqMu.Lock()
	defer s.acqMu.Unlock()
	if s.acq == nil {
		s.acqGen++
		actx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.acq = &acquisition{
			key:    fmt.Sprintf("access_token/%d", s.acqGen),
			ctx:    actx,
			cancel: cancel,
		}
	}
	s.acq.waiters++
	return s.acq
}

// leaveAcquisition drops a waiter.  The last one out cancels the shared
// context, which ends a pending interactive flow nobody waits for.
func (s *Session) leaveAcquisition(a *acquisition) {
	s.acqMu.Lock()
	defer s.acqMu.Unlock()
	a.waiters--
	if a.waiters > 0 {
		return
	}
	a.cancel()
	if s.acq == a {
		s.acq = nil
	}
}

func (s *Session) acquire(ctx context.Context) (string, error) {
	state, err := s.Refresh(ctx)
	if err == nil {
		return string(state.LastTokenResponse.AccessToken), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return "", ctxErr
		}
		return "", fmt.Errorf("%v: %w", ctxErr, ErrUserCanceledAuthorizationFlow)
	}
	s.logger.Debug("silent refresh failed, starting interactive login", "error", err)
	state, err = s.Authorize(ctx)
	if err != nil {
		return "", err
	}
	return string(state.LastTokenResponse.AccessToken), nil
}

// Refresh returns the stored state when its access token is still valid
// and otherwise exchanges its refresh token.  When the provider rejects the
// refresh token the stored state is cleared, EventLoggedOut is published
// and ErrInvalidGrant is returned.
func (s *Session) Refresh(ctx context.Context) (*AuthState, error) {
	const op = "Session.Refresh"
	state := s.store.Get()
	if state == nil || state.LastTokenResponse == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNoPreviousState)
	}
	prev := state.LastTokenResponse
	if prev.validAccessToken(s.now()) {
		return state, nil
	}
	if prev.RefreshToken == "" {
		return nil, fmt.Errorf("%s: no refresh token: %w", op, ErrNoPreviousState)
	}
	if state.Provider == nil || state.Provider.TokenEndpoint == "" {
		return nil, fmt.Errorf("%s: no stored token endpoint: %w", op, ErrMissingDiscovery)
	}

	s.setStatus(StatusRefreshing)
	defer s.settleStatus()

	clientCtx := gooidc.ClientContext(ctx, s.client)
	oc := s.oauth2Config(state.Provider)
	tok, err := oc.TokenSource(clientCtx, &oauth2.Token{RefreshToken: string(prev.RefreshToken)}).Token()
	if err != nil {
		err = tokenEndpointError(err)
		if errors.Is(err, ErrInvalidGrant) {
			s.logger.Info("refresh token rejected, clearing auth state")
			if clearErr := s.store.Set(nil); clearErr != nil {
				s.logger.Error("unable to clear auth state", "error", clearErr)
			}
			s.publish(EventLoggedOut, state.ClientID())
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp := s.tokenResponse(tok, prev.Scopes)
	if resp.IdToken != "" {
		if _, err := s.verifyIdToken(ctx, state.Provider, resp.IdToken, ""); err != nil {
			s.logger.Warn("refreshed id_token failed verification, discarding refresh response",
				"error", err, "refresh_token_rotated", resp.RefreshToken != prev.RefreshToken)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		// providers may omit the id_token on refresh; keep the previous one
		// as the end session hint
		resp.IdToken = prev.IdToken
	}
	next := state.Clone()
	next.LastTokenResponse = resp
	if err := s.store.Set(next); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Debug("access token refreshed", "expiry", resp.Expiry)
	s.publish(EventStateChanged, next.ClientID())
	return next.Clone(), nil
}

// Authorize sends the user through an interactive login, verifies the
// result and persists it.  A user without the required roles gets
// ErrInvalidUserRole and nothing is persisted.
func (s *Session) Authorize(ctx context.Context) (*AuthState, error) {
	const op = "Session.Authorize"
	s.setStatus(StatusAuthenticating)
	defer s.settleStatus()

	md, err := s.discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req, err := NewRequest(DefaultRequestExpiry, s.cfg.RedirectURL, WithPKCE(), WithNow(s.nowFunc))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	oc := s.oauth2Config(md)
	authURL := oc.AuthCodeURL(req.State(),
		gooidc.Nonce(req.Nonce()),
		oauth2.SetAuthURLParam("prompt", "login"),
		oauth2.SetAuthURLParam("code_challenge", req.PKCEVerifier().Challenge()),
		oauth2.SetAuthURLParam("code_challenge_method", string(req.PKCEVerifier().Method())),
	)

	f, err := s.beginFlow(req.RedirectURL())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer s.endFlow(f)
	s.logger.Debug("starting authorization flow", "issuer", md.Issuer)
	callback, err := s.awaitFlow(ctx, f, authURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q := callback.Query()
	if err := s.responseError(q); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if q.Get("state") != req.State() {
		return nil, fmt.Errorf("%s: authorization state does not match: %w", op, ErrResponseStateInvalid)
	}
	if req.IsExpired() {
		return nil, fmt.Errorf("%s: authorization request expired at %s: %w", op, req.ExpiresAt(), ErrExpiredRequest)
	}
	code := AuthCode(q.Get("code"))
	if code == "" {
		return nil, fmt.Errorf("%s: redirect has no code: %w", op, ErrInvalidParameter)
	}

	tok, err := oc.Exchange(gooidc.ClientContext(ctx, s.client), string(code),
		oauth2.SetAuthURLParam("code_verifier", req.PKCEVerifier().Verifier()),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, tokenEndpointError(err))
	}
	resp := s.tokenResponse(tok, s.cfg.scopes())
	if resp.IdToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingIdToken)
	}
	if _, err := s.verifyIdToken(ctx, md, resp.IdToken, req.Nonce()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.verifyAccessToken(ctx, md, resp.AccessToken); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	state := &AuthState{
		Provider: md,
		LastAuthorizationResponse: &AuthorizationResponse{
			ClientID:    s.cfg.ClientID,
			Scopes:      s.cfg.scopes(),
			Code:        code,
			State:       req.State(),
			RedirectURL: req.RedirectURL(),
		},
		LastTokenResponse: resp,
	}
	if err := s.store.Set(state); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info("user authenticated", "client_id", s.cfg.ClientID)
	s.publish(EventStateChanged, s.cfg.ClientID)
	return state.Clone(), nil
}

// EndSession ends the user's session with the provider and clears the
// stored state.  If the user cancels, or the provider fails, the stored
// state is left untouched.
func (s *Session) EndSession(ctx context.Context) error {
	const op = "Session.EndSession"
	state := s.store.Get()
	if state == nil || state.LastTokenResponse == nil || state.LastTokenResponse.IdToken == "" {
		return fmt.Errorf("%s: no id token to end the session with: %w", op, ErrNoPreviousState)
	}
	if state.Provider == nil || state.Provider.EndSessionEndpoint == "" {
		return fmt.Errorf("%s: no stored end session endpoint: %w", op, ErrMissingDiscovery)
	}
	stateID, err := id.New("st")
	if err != nil {
		return fmt.Errorf("%s: unable to generate state: %v: %w", op, err, ErrIdGeneratorFailed)
	}
	endURL, err := url.Parse(state.Provider.EndSessionEndpoint)
	if err != nil {
		return fmt.Errorf("%s: end session endpoint: %v: %w", op, err, ErrInvalidParameter)
	}
	q := endURL.Query()
	q.Set("id_token_hint", string(state.LastTokenResponse.IdToken))
	q.Set("post_logout_redirect_uri", s.cfg.EndSessionRedirectURL)
	q.Set("state", stateID)
	q.Set("client_id", s.cfg.ClientID)
	endURL.RawQuery = q.Encode()

	s.setStatus(StatusEndingSession)
	defer s.settleStatus()

	f, err := s.beginFlow(s.cfg.EndSessionRedirectURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer s.endFlow(f)
	callback, err := s.awaitFlow(ctx, f, endURL.String())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	cq := callback.Query()
	if err := s.responseError(cq); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if got := cq.Get("state"); got != "" && got != stateID {
		return fmt.Errorf("%s: end session state does not match: %w", op, ErrResponseStateInvalid)
	}
	if err := s.store.Set(nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info("session ended", "client_id", state.ClientID())
	s.publish(EventLoggedOut, state.ClientID())
	return nil
}

// UserInfo returns the user's profile from the provider's userinfo
// endpoint, acquiring an access token first.
func (s *Session) UserInfo(ctx context.Context) (*UserInfo, error) {
	const op = "Session.UserInfo"
	token, err := s.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	state := s.store.Get()
	if state == nil || state.Provider == nil || state.Provider.UserInfoEndpoint == "" {
		return nil, fmt.Errorf("%s: no stored userinfo endpoint: %w", op, ErrMissingDiscovery)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, state.Provider.UserInfoEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %s: %s: %w", op, resp.Status, strings.TrimSpace(string(body)), ErrUserInfoFailed)
	}
	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%s: unable to decode response: %w", op, err)
	}
	return &info, nil
}

// discover fetches the issuer's discovery document.
func (s *Session) discover(ctx context.Context) (*ProviderMetadata, error) {
	const op = "Session.discover"
	p, err := gooidc.NewProvider(gooidc.ClientContext(ctx, s.client), s.cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to discover %s: %w", op, s.cfg.Issuer, err)
	}
	var md ProviderMetadata
	if err := p.Claims(&md); err != nil {
		return nil, fmt.Errorf("%s: unable to decode discovery document: %w", op, err)
	}
	if md.AuthorizationEndpoint == "" || md.TokenEndpoint == "" || md.JWKSURI == "" {
		return nil, fmt.Errorf("%s: discovery document lacks required endpoints: %w", op, ErrMissingDiscovery)
	}
	return &md, nil
}

func (s *Session) oauth2Config(md *ProviderMetadata) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: string(s.cfg.ClientSecret),
		RedirectURL:  s.cfg.RedirectURL,
		Scopes:       s.cfg.scopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:   md.AuthorizationEndpoint,
			TokenURL:  md.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (s *Session) tokenResponse(tok *oauth2.Token, scopes []string) *TokenResponse {
	resp := &TokenResponse{
		ClientID:     s.cfg.ClientID,
		AccessToken:  AccessToken(tok.AccessToken),
		RefreshToken: RefreshToken(tok.RefreshToken),
		TokenType:    tok.TokenType,
		Scopes:       cloneStrings(scopes),
	}
	if !tok.Expiry.IsZero() {
		resp.Expiry = tok.Expiry.UTC()
	}
	if raw, ok := tok.Extra("id_token").(string); ok {
		resp.IdToken = IdToken(raw)
	}
	if granted, ok := tok.Extra("scope").(string); ok && granted != "" {
		resp.Scopes = strings.Fields(granted)
	}
	return resp
}

// keySets returns the key sets for jwksURI, replacing cached ones for
// another URI.
func (s *Session) keySets(jwksURI string) (gooidc.KeySet, jwt.KeySet, error) {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	if s.keySetsURI == jwksURI && s.idKeySet != nil {
		return s.idKeySet, s.accessKeySet, nil
	}
	// the key sets outlive any single call, so they fetch with a background
	// context
	ctx := gooidc.ClientContext(context.Background(), s.client)
	accessKeySet, err := jwt.NewJSONWebKeySet(ctx, jwksURI, s.client)
	if err != nil {
		return nil, nil, err
	}
	s.keySetsURI = jwksURI
	s.idKeySet = gooidc.NewRemoteKeySet(ctx, jwksURI)
	s.accessKeySet = accessKeySet
	return s.idKeySet, s.accessKeySet, nil
}

// verifyIdToken verifies the id_token signature, issuer, audience and
// expiry.  The nonce is checked when not empty.
func (s *Session) verifyIdToken(ctx context.Context, md *ProviderMetadata, raw IdToken, nonce string) (*gooidc.IDToken, error) {
	const op = "Session.verifyIdToken"
	keySet, _, err := s.keySets(md.JWKSURI)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// claims first, they are cheap and need no keys
	claimsVerifier := gooidc.NewVerifier(md.Issuer, keySet, &gooidc.Config{
		SkipClientIDCheck:          true,
		InsecureSkipSignatureCheck: true,
		Now:                        s.now,
	})
	idt, err := claimsVerifier.Verify(ctx, string(raw))
	if err != nil {
		var expired *gooidc.TokenExpiredError
		if errors.As(err, &expired) {
			return nil, fmt.Errorf("%s: id_token expired at %s: %w", op, expired.Expiry, ErrIdTokenVerificationFailed)
		}
		return nil, fmt.Errorf("%s: %v: %w", op, err, ErrIdTokenVerificationFailed)
	}
	if !strutils.StrListContains(idt.Audience, s.cfg.ClientID) {
		return nil, fmt.Errorf("%s: audience %v does not include client %q: %w", op, idt.Audience, s.cfg.ClientID, ErrInvalidAudience)
	}
	if len(s.cfg.Audiences) > 0 && !containsAny(idt.Audience, s.cfg.Audiences) {
		return nil, fmt.Errorf("%s: audience %v not in %v: %w", op, idt.Audience, s.cfg.Audiences, ErrInvalidAudience)
	}
	sigVerifier := gooidc.NewVerifier(md.Issuer, keySet, &gooidc.Config{
		SkipClientIDCheck:    true,
		SkipIssuerCheck:      true,
		SkipExpiryCheck:      true,
		SupportedSigningAlgs: s.cfg.algs(),
	})
	if _, err := sigVerifier.Verify(ctx, string(raw)); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", op, err, ErrInvalidSignature)
	}
	if nonce != "" && idt.Nonce != nonce {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidNonce)
	}
	return idt, nil
}

// verifyAccessToken checks the access_token signature, unless disabled, and
// that it grants the required roles.
func (s *Session) verifyAccessToken(ctx context.Context, md *ProviderMetadata, raw AccessToken) error {
	const op = "Session.verifyAccessToken"
	if !s.cfg.SkipAccessTokenSignature {
		_, keySet, err := s.keySets(md.JWKSURI)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if _, err := keySet.VerifySignature(ctx, string(raw)); err != nil {
			return fmt.Errorf("%s: %v: %w", op, err, ErrInvalidSignature)
		}
	}
	if err := jwt.VerifyRoles(string(raw), s.cfg.RequiredRoles, s.cfg.ClientID); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidUserRole, err)
	}
	return nil
}

// tokenEndpointError maps an error from the token endpoint to the error
// taxonomy.  Transport and decoding errors are returned wrapped.
func tokenEndpointError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return fmt.Errorf("token request failed: %w", err)
	}
	code := re.ErrorCode
	if code == "" && re.Response != nil {
		// some providers answer with a body oauth2 could not parse
		code = http.StatusText(re.Response.StatusCode)
	}
	if code == "invalid_grant" {
		return fmt.Errorf("token endpoint: %s: %w", re.ErrorDescription, ErrInvalidGrant)
	}
	return fmt.Errorf("token endpoint returned %s: %s: %w", code, re.ErrorDescription, ErrUnknownProviderState)
}

func containsAny(have, want []string) bool {
	for _, w := range want {
		if strutils.StrListContains(have, w) {
			return true
		}
	}
	return false
}

// sessionOptions is the set of available options for Session
type sessionOptions struct {
	withNowFunc         func() time.Time
	withLogger          hclog.Logger
	withStateChangeFunc func(Event)
}

// sessionDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func sessionDefaults() sessionOptions {
	return sessionOptions{
		withNowFunc: time.Now,
		withLogger:  hclog.NewNullLogger(),
	}
}

func getSessionOpts(opt ...Option) sessionOptions {
	opts := sessionDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithStateChangeFunc registers fn to be called synchronously with every
// session event, before it is delivered to subscribers.
func WithStateChangeFunc(fn func(Event)) Option {
	return func(o interface{}) {
		if o, ok := o.(*sessionOptions); ok {
			o.withStateChangeFunc = fn
		}
	}
}
