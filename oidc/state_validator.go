// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// StateValidator discards stored state that was issued to a different
// client than the one the app is configured for, for example after the app
// switched between the production and staging environments.
type StateValidator struct {
	store    *StateStore
	clientID string
	logger   hclog.Logger
}

// NewStateValidator creates a validator for the configured clientID.
// Supported options: WithLogger
func NewStateValidator(store *StateStore, clientID string, opt ...Option) (*StateValidator, error) {
	const op = "NewStateValidator"
	switch {
	case store == nil:
		return nil, fmt.Errorf("%s: store is nil: %w", op, ErrNilParameter)
	case clientID == "":
		return nil, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	}
	opts := getValidatorOpts(opt...)
	return &StateValidator{
		store:    store,
		clientID: clientID,
		logger:   opts.withLogger.Named("validator"),
	}, nil
}

// Validate returns true when there is no stored state or the stored state
// belongs to the configured client.  Otherwise it clears the store and
// returns false, even if clearing failed.
func (v *StateValidator) Validate() bool {
	state := v.store.Get()
	if state == nil {
		return true
	}
	if tokenClientID, authClientID, conflict := state.clientIDConflict(); conflict {
		v.logger.Warn("stored responses name different clients, using the token response",
			"token_client_id", tokenClientID, "authorization_client_id", authClientID)
	}
	stored := state.ClientID()
	if stored == v.clientID {
		return true
	}
	v.logger.Info("stored auth state belongs to another client, clearing it",
		"stored_client_id", stored, "client_id", v.clientID)
	if err := v.store.Set(nil); err != nil {
		v.logger.Error("unable to clear auth state", "error", err)
	}
	return false
}

// validatorOptions is the set of available options for StateValidator
type validatorOptions struct {
	withLogger hclog.Logger
}

func validatorDefaults() validatorOptions {
	return validatorOptions{withLogger: hclog.NewNullLogger()}
}

func getValidatorOpts(opt ...Option) validatorOptions {
	opts := validatorDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
