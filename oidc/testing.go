// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
)

// TestGenerateKeys will generate a test ECDSA P-256 pub/priv key pair
func TestGenerateKeys(t *testing.T) (pub, priv string) {
	t.Helper()
	require := require.New(t)
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(err)

	{
		derBytes, err := x509.MarshalECPrivateKey(privateKey)
		require.NoError(err)

		pemBlock := &pem.Block{
			Type:  "EC PRIVATE KEY",
			Bytes: derBytes,
		}
		priv = string(pem.EncodeToMemory(pemBlock))
	}
	{
		derBytes, err := x509.MarshalPKIXPublicKey(privateKey.Public())
		require.NoError(err)

		pemBlock := &pem.Block{
			Type:  "PUBLIC KEY",
			Bytes: derBytes,
		}
		pub = string(pem.EncodeToMemory(pemBlock))
	}

	return pub, priv
}

// TestSignJWT will bundle the provided claims into a test signed JWT. The provided key
// must be ECDSA.
func TestSignJWT(t *testing.T, ecdsaPrivKeyPEM string, claims jwt.Claims, privateClaims interface{}) string {
	t.Helper()
	raw, err := signJWT(ecdsaPrivKeyPEM, "", claims, privateClaims)
	require.NoError(t, err)
	return raw
}

// signJWT signs claims with an ES256 key.  It does not fail a test so it
// can be used from a server's goroutines.
func signJWT(ecdsaPrivKeyPEM, keyID string, claims jwt.Claims, privateClaims interface{}) (string, error) {
	block, _ := pem.Decode([]byte(ecdsaPrivKeyPEM))
	if block == nil {
		return "", errors.New("private key is not PEM encoded")
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return "", err
	}
	opts := (&jose.SignerOptions{}).WithType("JWT")
	if keyID != "" {
		opts = opts.WithHeader(jose.HeaderKey("kid"), keyID)
	}
	sig, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.ES256, Key: key}, opts)
	if err != nil {
		return "", err
	}
	b := jwt.Signed(sig).Claims(claims)
	if privateClaims != nil {
		b = b.Claims(privateClaims)
	}
	return b.Serialize()
}

// TestGenerateCA will generate a test x509 CA cert encoded in a PEM format.
func TestGenerateCA(t *testing.T, hosts []string) string {
	t.Helper()
	require := require.New(t)

	priv, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(err)

	// ECDSA, ED25519 and RSA subject keys should have the DigitalSignature
	// KeyUsage bits set in the x509.Certificate template
	keyUsage := x509.KeyUsageDigitalSignature

	validFor := 2 * time.Minute
	notBefore := time.Now()
	notAfter := notBefore.Add(validFor)

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	require.NoError(err)

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Acme Co"},
		},
		NotBefore: notBefore,
		NotAfter:  notAfter,

		KeyUsage:              keyUsage,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	template.IsCA = true
	template.KeyUsage |= x509.KeyUsageCertSign

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	require.NoError(err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes}))
}

// TestPresenter plays the user agent in tests.  By default it requests the
// presented URL from a TestProvider and delivers the provider's redirect to
// the attached Session, like a user completing the login in a browser.
type TestPresenter struct {
	client *http.Client

	mu        sync.Mutex
	session   *Session
	dismiss   bool
	manual    bool
	presented []string
	notify    chan string
}

// NewTestPresenter returns a presenter talking to p.  Attach must be called
// with the session using it before it presents anything.
func NewTestPresenter(t *testing.T, p *TestProvider) *TestPresenter {
	t.Helper()
	client := p.HTTPClient()
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &TestPresenter{
		client: client,
		notify: make(chan string, 16),
	}
}

// Attach sets the session redirects are delivered to.
func (tp *TestPresenter) Attach(s *Session) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.session = s
}

// SetDismiss makes Present return ErrPresentationDismissed.
func (tp *TestPresenter) SetDismiss(dismiss bool) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.dismiss = dismiss
}

// SetManual makes Present only record the URL and return.  The test then
// drives the flow with ResumeFlow or CancelFlow.
func (tp *TestPresenter) SetManual(manual bool) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.manual = manual
}

// Presented returns a channel receiving every presented URL.
func (tp *TestPresenter) Presented() <-chan string {
	return tp.notify
}

// PresentedURLs returns the URLs presented so far.
func (tp *TestPresenter) PresentedURLs() []string {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return append([]string(nil), tp.presented...)
}

// Follow requests u without following redirects and returns the Location
// the provider redirected to.
func (tp *TestPresenter) Follow(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := tp.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound && resp.StatusCode != http.StatusSeeOther {
		return "", fmt.Errorf("expected a redirect, got %s", resp.Status)
	}
	return resp.Header.Get("Location"), nil
}

// Present implements Presenter.
func (tp *TestPresenter) Present(ctx context.Context, u string) error {
	tp.mu.Lock()
	tp.presented = append(tp.presented, u)
	session, dismiss, manual := tp.session, tp.dismiss, tp.manual
	tp.mu.Unlock()
	select {
	case tp.notify <- u:
	default:
	}

	switch {
	case dismiss:
		return ErrPresentationDismissed
	case manual:
		return nil
	case session == nil:
		return errors.New("test presenter is not attached to a session")
	}
	location, err := tp.Follow(ctx, u)
	if err != nil {
		return err
	}
	if !session.ResumeFlow(location) {
		return fmt.Errorf("session did not accept redirect to %s", location)
	}
	return nil
}
