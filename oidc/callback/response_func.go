// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"fmt"
	"html"
	"net/http"
)

// SuccessResponseFunc is used by Callbacks to create a http response when the
// redirect was handed to the pending flow.
//
// The function should use the http.ResponseWriter to send back whatever
// content (headers, html, JSON, etc) it wishes to the browser that completed
// the flow.  The session still has to exchange the code, so success here
// does not mean the login succeeded.
type SuccessResponseFunc func(w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by Callbacks to create a http response when the
// callback fails.
//
// The function gets the parameters of the oidc authentication error response
// and/or the callback error raised while processing the request.
type ErrorResponseFunc func(respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request)

// AuthenErrorResponse represents Oauth2 error responses.  See:
// https://openid.net/specs/openid-connect-core-1_0.html#AuthError
type AuthenErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Uri         string `json:"error_uri,omitempty"`
}

const pageTemplate = `<!DOCTYPE html><html><head><meta charset="utf-8"><title>%s</title></head>` +
	`<body><h1>%s</h1><p>%s</p></body></html>`

func writePage(w http.ResponseWriter, status int, title, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	t := html.EscapeString(title)
	_, _ = w.Write([]byte(fmt.Sprintf(pageTemplate, t, t, html.EscapeString(msg))))
}

// SuccessPage is a SuccessResponseFunc telling the user to return to the app.
func SuccessPage(w http.ResponseWriter, _ *http.Request) {
	writePage(w, http.StatusOK, "Login complete", "You can close this window and return to the app.")
}

// ErrorPage is an ErrorResponseFunc describing the failure to the user.
func ErrorPage(respErr *AuthenErrorResponse, e error, w http.ResponseWriter, _ *http.Request) {
	switch {
	case respErr != nil:
		msg := respErr.Error
		if respErr.Description != "" {
			msg += ": " + respErr.Description
		}
		writePage(w, http.StatusUnauthorized, "Login failed", msg)
	case e != nil:
		writePage(w, http.StatusBadRequest, "Login failed", e.Error())
	default:
		writePage(w, http.StatusInternalServerError, "Login failed", "unknown error")
	}
}
