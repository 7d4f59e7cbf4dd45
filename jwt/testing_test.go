// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
)

const testKeyID = "test-key"

func testGenerateKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return priv
}

func testPublicKeyPEM(t *testing.T, pub crypto.PublicKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func testSigner(t *testing.T, priv *ecdsa.PrivateKey) jose.Signer {
	t.Helper()
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.ES256, Key: priv},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", testKeyID),
	)
	require.NoError(t, err)
	return sig
}

func testSignJWT(t *testing.T, priv *ecdsa.PrivateKey, claims map[string]interface{}) string {
	t.Helper()
	raw, err := jwt.Signed(testSigner(t, priv)).Claims(claims).Serialize()
	require.NoError(t, err)
	return raw
}

func testSignPayload(t *testing.T, priv *ecdsa.PrivateKey, payload []byte) string {
	t.Helper()
	obj, err := testSigner(t, priv).Sign(payload)
	require.NoError(t, err)
	raw, err := obj.CompactSerialize()
	require.NoError(t, err)
	return raw
}

// testUnsignedJWT builds a compact token with the given alg header and an
// opaque signature segment.  Nothing here can verify it.
func testUnsignedJWT(t *testing.T, alg, sig string, claims map[string]interface{}) string {
	t.Helper()
	hdr, err := json.Marshal(map[string]interface{}{"alg": alg, "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString(hdr) + "." + enc.EncodeToString(payload) + "." + sig
}

func testRoleClaims(clientID string, roles ...string) map[string]interface{} {
	r := make([]interface{}, 0, len(roles))
	for _, role := range roles {
		r = append(r, role)
	}
	return map[string]interface{}{
		"sub": "alice",
		"azp": clientID,
		"resource_access": map[string]interface{}{
			clientID: map[string]interface{}{
				"roles": r,
			},
		},
	}
}
