// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package jwt decodes access tokens issued to the community app and checks the
roles they grant.

VerifyRoles is a pure function: it decodes the token's payload and checks
that resource_access[clientID].roles contains every required role.  It does
not check the signature.  When the token did not arrive over a channel that
already authenticates it, verify the signature first with a KeySet:

	ks, err := jwt.NewJSONWebKeySet(ctx, "https://idp.example.com/certs", nil)
	if err != nil {
		// handle error
	}
	if _, err := ks.VerifySignature(ctx, token); err != nil {
		// handle error
	}
	if err := jwt.VerifyRoles(token, []string{"ACCESS_GRANTED"}, "community-app"); err != nil {
		// errors.Is(err, jwt.ErrMissingRole) or errors.Is(err, jwt.ErrMalformedToken)
	}
*/
package jwt
