// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import "context"

// Presenter shows a provider URL to the user, typically by opening the
// system browser.  Present may return as soon as the URL is handed off or
// block until the user is done; either way the session waits for the
// redirect to be delivered with Session.ResumeFlow.
//
// Present should return ErrPresentationDismissed when the user closed the
// browser without finishing.
type Presenter interface {
	Present(ctx context.Context, url string) error
}

// PresenterFunc adapts a func to a Presenter.
type PresenterFunc func(ctx context.Context, url string) error

// Present implements Presenter.
func (f PresenterFunc) Present(ctx context.Context, url string) error {
	return f(ctx, url)
}
