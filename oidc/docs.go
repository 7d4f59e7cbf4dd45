// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
oidc is a package for keeping a native app's OIDC session alive: it runs the
interactive authorization code flow (with PKCE), persists the result, and
hands out valid access tokens, refreshing silently whenever it can.

Primary types provided by the package

* Config: the app's client registration for one environment (issuer, client
id, redirect URLs, required roles, supported signing algorithms, etc).

* StateStore: persists the AuthState (provider discovery, last authorization
response and last token response) to a securestore.Backend and caches it in
memory.

* StateValidator: run once at startup; it discards a stored AuthState that was
issued to a different client id, for example after switching from a staging
build to a production build.

* Session: the session controller.  AccessToken returns a valid access token,
refreshing or re-authenticating as needed; concurrent callers share one
acquisition.  EndSession logs the user out at the provider and clears the
stored state.

* Presenter: shows the authorization URL to the user (typically a system
browser).  The redirect back to the app is handed to Session.ResumeFlow.

The oidc.callback package

The callback package includes the ability to create a http.HandlerFunc which
forwards a loopback redirect to Session.ResumeFlow and renders a page to the
user.
*/
package oidc
