// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// flowResult is the outcome of an interactive flow: the redirect the
// provider sent the user agent to, or an error.
type flowResult struct {
	callback *url.URL
	err      error
}

// flow is the handle of the single pending interactive flow.
type flow struct {
	redirect *url.URL
	result   chan flowResult
	once     sync.Once
}

func newFlow(redirectURL string) (*flow, error) {
	const op = "newFlow"
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("%s: redirect URL %q: %v: %w", op, redirectURL, err, ErrInvalidParameter)
	}
	return &flow{redirect: u, result: make(chan flowResult, 1)}, nil
}

// resolve delivers r unless the flow was already resolved.
func (f *flow) resolve(r flowResult) bool {
	resolved := false
	f.once.Do(func() {
		f.result <- r
		resolved = true
	})
	return resolved
}

// matches reports whether callback was sent to the flow's redirect URI.
// Scheme and host compare case-insensitively, the path exactly.  The query
// is ignored since it carries the response.
func (f *flow) matches(callback *url.URL) bool {
	return strings.EqualFold(callback.Scheme, f.redirect.Scheme) &&
		strings.EqualFold(callback.Host, f.redirect.Host) &&
		callback.Path == f.redirect.Path
}

// beginFlow registers a new pending flow, superseding any existing one.
func (s *Session) beginFlow(redirectURL string) (*flow, error) {
	f, err := newFlow(redirectURL)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.logger.Debug("superseding pending flow")
		s.pending.resolve(flowResult{err: ErrFlowSuperseded})
	}
	s.pending = f
	return f, nil
}

// endFlow unregisters f if it is still the pending flow.
func (s *Session) endFlow(f *flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == f {
		s.pending = nil
	}
}

// ResumeFlow delivers a redirect received by the app (a custom scheme
// launch or a loopback request) to the pending flow.  It returns false,
// and does nothing else, when no flow is pending or callbackURL was not sent
// to the pending flow's redirect URI.
func (s *Session) ResumeFlow(callbackURL string) bool {
	u, err := url.Parse(callbackURL)
	if err != nil {
		s.logger.Warn("ignoring unparsable redirect", "error", err)
		return false
	}
	s.mu.Lock()
	f := s.pending
	s.mu.Unlock()
	switch {
	case f == nil:
		s.logger.Debug("ignoring redirect, no flow is pending", "redirect", redactQuery(u))
		return false
	case !f.matches(u):
		s.logger.Debug("ignoring redirect for another URI", "redirect", redactQuery(u), "expected", f.redirect.String())
		return false
	}
	return f.resolve(flowResult{callback: u})
}

// CancelFlow resolves the pending flow as canceled by the user.  It returns
// false when no flow is pending.
func (s *Session) CancelFlow() bool {
	s.mu.Lock()
	f := s.pending
	s.mu.Unlock()
	if f == nil {
		return false
	}
	return f.resolve(flowResult{err: ErrUserCanceledAuthorizationFlow})
}

// awaitFlow presents u and waits for f to be resolved.
func (s *Session) awaitFlow(ctx context.Context, f *flow, u string) (*url.URL, error) {
	const op = "Session.awaitFlow"
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	presented := make(chan error, 1)
	go func() {
		presented <- s.presenter.Present(ctx, u)
	}()
	for {
		select {
		case r := <-f.result:
			if r.err != nil {
				return nil, fmt.Errorf("%s: %w", op, r.err)
			}
			return r.callback, nil
		case err := <-presented:
			presented = nil
			switch {
			case err == nil:
				// wait for the redirect
			case errors.Is(err, ErrPresentationDismissed):
				return nil, fmt.Errorf("%s: %v: %w", op, err, ErrUserCanceledAuthorizationFlow)
			case errors.Is(err, context.Canceled) && ctx.Err() != nil:
				// reported by the ctx case
			default:
				return nil, fmt.Errorf("%s: unable to present %s: %w", op, redactQueryString(u), err)
			}
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%s: %w", op, ctx.Err())
			}
			return nil, fmt.Errorf("%s: %v: %w", op, ctx.Err(), ErrUserCanceledAuthorizationFlow)
		}
	}
}

// responseError maps an error returned in a redirect to the error taxonomy.
func (s *Session) responseError(q url.Values) error {
	code := q.Get("error")
	if code == "" {
		return nil
	}
	desc := q.Get("error_description")
	if s.cfg.isCancelCode(code) {
		return fmt.Errorf("provider returned %s: %s: %w", code, desc, ErrUserCanceledAuthorizationFlow)
	}
	return fmt.Errorf("provider returned %s: %s: %w", code, desc, ErrUnknownProviderState)
}

// redactQuery drops the query of u since it may carry a code.
func redactQuery(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}

func redactQueryString(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return "[unparsable url]"
	}
	return redactQuery(u)
}
