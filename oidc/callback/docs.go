// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
callback is a package that provides callbacks (in the form of http.HandlerFunc)
for receiving the provider's redirect on a loopback listener and handing it to
the pending flow of an oidc.Session.

	s, _ := oidc.NewSession(cfg, store, presenter)
	h, _ := callback.Loopback(s, callback.SuccessPage, callback.ErrorPage)
	http.Handle("/callback", h)
*/
package callback
