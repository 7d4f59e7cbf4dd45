// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// authsession provides the authentication session lifecycle for a native app
// that signs users in against an OIDC provider: interactive login, secure
// persistence of the resulting state, silent token refresh and logout.
//
// The oidc package holds the session; securestore holds the persistence
// backends and cmd/community-auth is a command line host for both.
package authsession
