// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
)

var (
	ErrInvalidParameter           = errors.New("invalid parameter")
	ErrNilParameter               = errors.New("nil parameter")
	ErrInvalidCACert              = errors.New("invalid CA certificate")
	ErrInvalidIssuer              = errors.New("invalid issuer")
	ErrIdGeneratorFailed          = errors.New("id generation failed")
	ErrExpiredRequest             = errors.New("request is expired")
	ErrResponseStateInvalid       = errors.New("oidc response state")
	ErrMissingIdToken             = errors.New("id_token is missing")
	ErrIdTokenVerificationFailed  = errors.New("id_token verification failed")
	ErrInvalidSignature           = errors.New("invalid signature")
	ErrInvalidAudience            = errors.New("invalid audience")
	ErrInvalidNonce               = errors.New("invalid nonce")
	ErrUnsupportedChallengeMethod = errors.New("unsupported PKCE challenge method")
	ErrMissingDiscovery           = errors.New("provider discovery document is missing")
	ErrUserInfoFailed             = errors.New("user info failed")

	// ErrNoPreviousState is returned when an operation needs a stored
	// authentication state and there is none.
	ErrNoPreviousState = errors.New("no previous authentication state")

	// ErrUserCanceledAuthorizationFlow is returned whenever the user
	// dismissed an interactive flow, regardless of how the provider or
	// presenter reported it.
	ErrUserCanceledAuthorizationFlow = errors.New("user canceled authorization flow")

	// ErrInvalidUserRole is returned when the user authenticated but the
	// access token does not grant the roles this app requires.
	ErrInvalidUserRole = errors.New("invalid user role")

	// ErrInvalidGrant is returned when the provider rejects the stored
	// refresh token.  The user must authenticate again.
	ErrInvalidGrant = errors.New("invalid grant")

	// ErrUnknownProviderState is returned for provider error codes this
	// package does not model.
	ErrUnknownProviderState = errors.New("unknown provider state")

	// ErrFlowSuperseded is returned to the waiter of an interactive flow
	// when a newer flow replaced it.
	ErrFlowSuperseded = errors.New("interactive flow superseded")

	// ErrPresentationDismissed may be returned by a Presenter when the user
	// closed the browser before the provider redirected back.
	ErrPresentationDismissed = errors.New("presentation dismissed")
)
