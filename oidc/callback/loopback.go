// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

var (
	ErrNilParameter = errors.New("nil parameter")

	// ErrNotResumed is passed to the ErrorResponseFunc when no pending flow
	// accepted the redirect.
	ErrNotResumed = errors.New("no login is waiting for this redirect")
)

// Resumer receives provider redirects.  *oidc.Session implements it.
type Resumer interface {
	ResumeFlow(callbackURL string) bool
}

// Loopback creates a handler for a loopback redirect URI such as
// http://127.0.0.1:8250/callback.  It rebuilds the URL the browser was
// redirected to and hands it to r; the session validates the state and
// exchanges the code.
//
// The SuccessResponseFunc is used to create a response when the redirect
// was accepted. The ErrorResponseFunc is to create a response when the
// provider returned an error or no flow was waiting.
func Loopback(r Resumer, sFn SuccessResponseFunc, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.Loopback"
	switch {
	case r == nil:
		return nil, fmt.Errorf("%s: resumer is nil: %w", op, ErrNilParameter)
	case sFn == nil:
		return nil, fmt.Errorf("%s: success response func is nil: %w", op, ErrNilParameter)
	case eFn == nil:
		return nil, fmt.Errorf("%s: error response func is nil: %w", op, ErrNilParameter)
	}
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		resumed := r.ResumeFlow(requestURL(req).String())

		// get parameters from the query; the provider redirects with GET
		if e := req.FormValue("error"); e != "" {
			eFn(&AuthenErrorResponse{
				Error:       e,
				Description: req.FormValue("error_description"),
				Uri:         req.FormValue("error_uri"),
			}, nil, w, req)
			return
		}
		if !resumed {
			eFn(nil, ErrNotResumed, w, req)
			return
		}
		sFn(w, req)
	}, nil
}

// requestURL returns the absolute URL req was sent to.
func requestURL(req *http.Request) *url.URL {
	u := *req.URL
	u.Scheme = "http"
	if req.TLS != nil {
		u.Scheme = "https"
	}
	u.Host = req.Host
	return &u
}
