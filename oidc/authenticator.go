// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"errors"
)

// Authenticator is what the rest of the app needs from authentication:
// a bearer token for API calls, the user's profile and logout.
type Authenticator interface {
	// AccessToken returns a valid access token, refreshing it or sending the
	// user through an interactive login as needed.
	AccessToken(ctx context.Context) (string, error)

	// UserInfo returns the user's profile.
	UserInfo(ctx context.Context) (*UserInfo, error)

	// EndSession logs the user out with the provider and locally.
	EndSession(ctx context.Context) error
}

var _ Authenticator = (*Session)(nil)

// User facing messages returned by UserMessage.
const (
	MessageCanceled       = "The login was canceled."
	MessageNotAuthorized  = "Your account is not authorized to use this app."
	MessageSessionExpired = "Your session has expired. Please log in again."
	MessageLoggedOut      = "You are not logged in."
	MessageUnavailable    = "The login service is currently unavailable. Please try again later."
	MessageGeneric        = "Something went wrong while logging in. Please try again."
)

// UserMessage returns a message suitable for showing to the user for an
// error returned by an Authenticator.  It returns "" for a nil error.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUserCanceledAuthorizationFlow), errors.Is(err, ErrFlowSuperseded):
		return MessageCanceled
	case errors.Is(err, ErrInvalidUserRole):
		return MessageNotAuthorized
	case errors.Is(err, ErrInvalidGrant):
		return MessageSessionExpired
	case errors.Is(err, ErrNoPreviousState):
		return MessageLoggedOut
	case errors.Is(err, ErrUnknownProviderState), errors.Is(err, ErrMissingDiscovery), errors.Is(err, ErrUserInfoFailed):
		return MessageUnavailable
	default:
		return MessageGeneric
	}
}
