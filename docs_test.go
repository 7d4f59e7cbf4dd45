// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package authsession_test

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/communityapp/authsession/oidc"
	"github.com/communityapp/authsession/oidc/callback"
	"github.com/communityapp/authsession/securestore"
	"github.com/skratchdot/open-golang/open"
)

func Example_session() {
	ctx := context.Background()

	// Create a new Config for the environment the app was built for.
	cfg, err := oidc.NewConfig(
		"https://auth.example.com/realms/community",
		"community-app",
		"http://127.0.0.1:8250/callback",
		"http://127.0.0.1:8250/logout",
	)
	if err != nil {
		// handle error
	}

	// Persist the auth state in the user's config dir.
	backend, err := securestore.NewFile(os.ExpandEnv("$HOME/.config/community-app"), nil)
	if err != nil {
		// handle error
	}
	store, err := oidc.NewStateStore(backend)
	if err != nil {
		// handle error
	}

	// Drop state issued to another client id before anything reads it.
	validator, err := oidc.NewStateValidator(store, cfg.ClientID)
	if err != nil {
		// handle error
	}
	validator.Validate()

	// Present the authorization URL in the system browser.
	presenter := oidc.PresenterFunc(func(_ context.Context, u string) error {
		return open.Run(u)
	})
	s, err := oidc.NewSession(cfg, store, presenter)
	if err != nil {
		// handle error
	}

	// Forward the loopback redirect to the session.
	h, err := callback.Loopback(s, callback.SuccessPage, callback.ErrorPage)
	if err != nil {
		// handle error
	}
	http.Handle("/callback", h)
	go func() { _ = http.ListenAndServe("127.0.0.1:8250", nil) }()

	// AccessToken refreshes or logs in as needed.
	token, err := s.AccessToken(ctx)
	if err != nil {
		fmt.Println(oidc.UserMessage(err))
		return
	}
	_ = token
}
