// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/communityapp/authsession/oidc/internal/strutils"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
)

const testKeyID = "test-key"

// TestProvider is local server that supports test provider capabilities which
// make writing tests much easier.  It plays a Keycloak style realm: discovery,
// authorization with PKCE, code and refresh token grants, client roles in
// the access token's resource_access claim, userinfo and end session.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	jwks                *jose.JSONWebKeySet
	allowedRedirectURIs []string
	replySubject        string
	replyUserinfo       map[string]interface{}

	mu                  sync.Mutex
	clientID            string
	clientSecret        string
	expectedAuthCode    string
	expectedAuthNonce   string
	requiredScopes      []string
	roles               []string
	customClaims        map[string]interface{}
	customAudience      string
	omitIDToken         bool
	omitRefreshIDToken  bool
	disableUserInfo     bool
	disableEndSession   bool
	authError           string
	refreshError        string
	endSessionError     string
	accessTokenTTL      time.Duration
	accessTokenKey      string
	idTokenTTL          time.Duration
	idTokenKey          string
	pendingNonce        string
	pendingChallenge    string
	lastAuthQuery       url.Values
	lastEndSessionQuery url.Values
	lastUserInfoHeader  http.Header
	accessToken         string
	refreshToken        string
	idToken             string
	issued              int
	tokenRequests       map[string]int

	ecdsaPublicKey  string
	ecdsaPrivateKey string
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// StartTestProvider creates a disposable TestProvider listening on a random
// local port.  It is stopped when the test completes.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		allowedRedirectURIs: []string{
			"https://example.com",
		},
		replySubject: "r3qXcK2bix9eFECzsU3Sbmh0K16fatW6@clients",
		replyUserinfo: map[string]interface{}{
			"sub":         "r3qXcK2bix9eFECzsU3Sbmh0K16fatW6@clients",
			"name":        "Alice Doe",
			"given_name":  "Alice",
			"family_name": "Doe",
			"email":       "alice@example.com",
		},
		requiredScopes: []string{ScopeOpenID, ScopeProfile, ScopeRoles},
		roles:          []string{RoleAccessGranted},
		accessTokenTTL: 5 * time.Minute,
		tokenRequests:  map[string]int{},
	}
	p.ecdsaPublicKey, p.ecdsaPrivateKey = TestGenerateKeys(t)

	p.jwks = testJWKS(t, p.ecdsaPublicKey)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	cert := p.httpServer.Certificate()

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// SetClientCreds is for configuring the client information required for the
// OIDC workflows.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetExpectedAuthCode configures the auth code to return from /auth and the
// allowed auth code for /token.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetExpectedAuthNonce configures the nonce value required for /auth.
func (p *TestProvider) SetExpectedAuthNonce(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthNonce = nonce
}

// SetAllowedRedirectURIs allows you to configure the allowed redirect URIs for
// the OIDC workflow. If not configured a sample of "https://example.com" is
// used.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetRoles configures the client roles granted in issued access tokens.
// The default is ACCESS_GRANTED.
func (p *TestProvider) SetRoles(roles ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roles = roles
}

// SetCustomClaims lets you set claims to return in the JWT issued by the OIDC
// workflow.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// SetCustomAudience configures what audience value to embed in the JWT issued
// by the OIDC workflow.
func (p *TestProvider) SetCustomAudience(customAudience string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customAudience = customAudience
}

// SetAccessTokenTTL configures the lifetime of issued access tokens.
func (p *TestProvider) SetAccessTokenTTL(ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessTokenTTL = ttl
}

// SetAccessTokenSigningKey makes the provider sign access tokens with a key
// other than the one it publishes.  An empty key restores the default.
func (p *TestProvider) SetAccessTokenSigningKey(ecdsaPrivKeyPEM string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessTokenKey = ecdsaPrivKeyPEM
}

// SetIDTokenTTL configures the lifetime of issued id tokens.  A negative ttl
// issues tokens that are already expired.  Zero restores the default.
func (p *TestProvider) SetIDTokenTTL(ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idTokenTTL = ttl
}

// SetIDTokenSigningKey makes the provider sign id tokens with a key other
// than the one it publishes.  An empty key restores the default.
func (p *TestProvider) SetIDTokenSigningKey(ecdsaPrivKeyPEM string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idTokenKey = ecdsaPrivKeyPEM
}

// SetAuthError makes /auth redirect back with the error code.
func (p *TestProvider) SetAuthError(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authError = code
}

// SetRefreshError makes the refresh token grant fail with the error code.
func (p *TestProvider) SetRefreshError(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshError = code
}

// SetEndSessionError makes /logout redirect back with the error code.
func (p *TestProvider) SetEndSessionError(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endSessionError = code
}

// OmitIDTokens forces an error state where the /token endpoint does not return
// id_token.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// OmitRefreshIDTokens makes the refresh token grant respond without an
// id_token.
func (p *TestProvider) OmitRefreshIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitRefreshIDToken = true
}

// DisableUserInfo makes the userinfo endpoint return 404 and omits it from the
// discovery config.
func (p *TestProvider) DisableUserInfo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableUserInfo = true
}

// DisableEndSession omits the end session endpoint from the discovery config.
func (p *TestProvider) DisableEndSession() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableEndSession = true
}

// TokenRequests returns the number of /token requests received for
// grantType.
func (p *TestProvider) TokenRequests(grantType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenRequests[grantType]
}

// LastAuthRequest returns the query of the last /auth request.
func (p *TestProvider) LastAuthRequest() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAuthQuery
}

// LastEndSessionRequest returns the query of the last /logout request.
func (p *TestProvider) LastEndSessionRequest() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastEndSessionQuery
}

// LastUserInfoHeader returns the headers of the last /userinfo request.
func (p *TestProvider) LastUserInfoHeader() http.Header {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastUserInfoHeader
}

// Tokens returns the tokens most recently issued by /token.
func (p *TestProvider) Tokens() (accessToken, refreshToken, idToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accessToken, p.refreshToken, p.idToken
}

// Addr returns the current base URL for the test provider's running webserver.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// HTTPClient returns a new http client trusting the provider's certificate.
func (p *TestProvider) HTTPClient() *http.Client {
	c := *p.httpServer.Client()
	return &c
}

// SigningKeys returns the test provider's pem-encoded keys used to sign JWTs.
func (p *TestProvider) SigningKeys() (pub, priv string) {
	return p.ecdsaPublicKey, p.ecdsaPrivateKey
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

// redirectWith redirects to base with params added to its query.
func (p *TestProvider) redirectWith(w http.ResponseWriter, req *http.Request, base string, params url.Values) {
	u, err := url.Parse(base)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	w.Header().Set("Location", u.String())
	w.WriteHeader(http.StatusFound)
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, errorCode, errorMessage string) {
	qv := req.URL.Query()
	params := url.Values{
		"state": {qv.Get("state")},
		"error": {errorCode},
	}
	if errorMessage != "" {
		params.Set("error_description", errorMessage)
	}
	p.redirectWith(w, req, qv.Get("redirect_uri"), params)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, req *http.Request, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}

	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		reply := struct {
			Issuer             string `json:"issuer"`
			AuthEndpoint       string `json:"authorization_endpoint"`
			TokenEndpoint      string `json:"token_endpoint"`
			JWKSURI            string `json:"jwks_uri"`
			UserinfoEndpoint   string `json:"userinfo_endpoint,omitempty"`
			EndSessionEndpoint string `json:"end_session_endpoint,omitempty"`
		}{
			Issuer:             p.Addr(),
			AuthEndpoint:       p.Addr() + "/auth",
			TokenEndpoint:      p.Addr() + "/token",
			JWKSURI:            p.Addr() + "/certs",
			UserinfoEndpoint:   p.Addr() + "/userinfo",
			EndSessionEndpoint: p.Addr() + "/logout",
		}
		if p.disableUserInfo {
			reply.UserinfoEndpoint = ""
		}
		if p.disableEndSession {
			reply.EndSessionEndpoint = ""
		}

		if err := p.writeJSON(w, &reply); err != nil {
			return
		}

	case "/auth":
		p.handleAuth(w, req)

	case "/certs":
		if req.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if err := p.writeJSON(w, p.jwks); err != nil {
			return
		}

	case "/token":
		p.handleToken(w, req)

	case "/userinfo":
		if p.disableUserInfo {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p.lastUserInfoHeader = req.Header.Clone()
		if p.accessToken == "" || req.Header.Get("Authorization") != "Bearer "+p.accessToken {
			w.WriteHeader(http.StatusUnauthorized)
			_ = p.writeJSON(w, map[string]string{"error": "invalid_token"})
			return
		}

		if err := p.writeJSON(w, p.replyUserinfo); err != nil {
			return
		}

	case "/logout":
		if p.disableEndSession {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		qv := req.URL.Query()
		p.lastEndSessionQuery = qv
		redirectURI := qv.Get("post_logout_redirect_uri")
		if redirectURI == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if p.endSessionError != "" {
			p.redirectWith(w, req, redirectURI, url.Values{"state": {qv.Get("state")}, "error": {p.endSessionError}})
			return
		}
		if qv.Get("id_token_hint") == "" || qv.Get("client_id") != p.clientID {
			p.redirectWith(w, req, redirectURI, url.Values{"state": {qv.Get("state")}, "error": {"invalid_request"}})
			return
		}
		p.accessToken, p.refreshToken, p.idToken = "", "", ""
		p.redirectWith(w, req, redirectURI, url.Values{"state": {qv.Get("state")}})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *TestProvider) handleAuth(w http.ResponseWriter, req *http.Request) {
	if req.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	qv := req.URL.Query()
	p.lastAuthQuery = qv

	redirectURI := qv.Get("redirect_uri")
	if redirectURI == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if p.authError != "" {
		p.writeAuthErrorResponse(w, req, p.authError, "configured error")
		return
	}
	if qv.Get("response_type") != "code" {
		p.writeAuthErrorResponse(w, req, "unsupported_response_type", "")
		return
	}
	if qv.Get("client_id") != p.clientID {
		p.writeAuthErrorResponse(w, req, "unauthorized_client", "")
		return
	}
	scopes := strings.Fields(qv.Get("scope"))
	for _, s := range p.requiredScopes {
		if !strutils.StrListContains(scopes, s) {
			p.writeAuthErrorResponse(w, req, "invalid_scope", "missing scope "+s)
			return
		}
	}
	if !strutils.StrListContains(p.allowedRedirectURIs, redirectURI) {
		p.writeAuthErrorResponse(w, req, "invalid_request", "redirect_uri is not allowed")
		return
	}
	if qv.Get("code_challenge_method") != string(S256) || qv.Get("code_challenge") == "" {
		p.writeAuthErrorResponse(w, req, "invalid_request", "PKCE S256 is required")
		return
	}

	if p.expectedAuthCode == "" {
		p.writeAuthErrorResponse(w, req, "access_denied", "")
		return
	}

	nonce := qv.Get("nonce")
	if p.expectedAuthNonce != "" && p.expectedAuthNonce != nonce {
		p.writeAuthErrorResponse(w, req, "access_denied", "")
		return
	}

	state := qv.Get("state")
	if state == "" {
		p.writeAuthErrorResponse(w, req, "invalid_request", "missing state parameter")
		return
	}

	p.pendingNonce = nonce
	p.pendingChallenge = qv.Get("code_challenge")
	p.redirectWith(w, req, redirectURI, url.Values{
		"state": {state},
		"code":  {p.expectedAuthCode},
	})
}

func (p *TestProvider) handleToken(w http.ResponseWriter, req *http.Request) {
	if req.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	grantType := req.FormValue("grant_type")
	p.tokenRequests[grantType]++

	clientID, clientSecret, ok := req.BasicAuth()
	if !ok {
		clientID, clientSecret = req.FormValue("client_id"), req.FormValue("client_secret")
	}
	if clientID != p.clientID || clientSecret != p.clientSecret {
		_ = p.writeTokenErrorResponse(w, req, http.StatusUnauthorized, "invalid_client", "unknown client")
		return
	}

	nonce := ""
	includeIDToken := !p.omitIDToken
	switch grantType {
	case "authorization_code":
		switch {
		case !strutils.StrListContains(p.allowedRedirectURIs, req.FormValue("redirect_uri")):
			_ = p.writeTokenErrorResponse(w, req, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed")
			return
		case p.expectedAuthCode == "" || req.FormValue("code") != p.expectedAuthCode:
			_ = p.writeTokenErrorResponse(w, req, http.StatusBadRequest, "invalid_grant", "unexpected auth code")
			return
		case !testVerifyChallenge(p.pendingChallenge, req.FormValue("code_verifier")):
			_ = p.writeTokenErrorResponse(w, req, http.StatusBadRequest, "invalid_grant", "PKCE verification failed")
			return
		}
		nonce = p.pendingNonce
		p.pendingChallenge = ""
	case "refresh_token":
		switch {
		case p.refreshError != "":
			_ = p.writeTokenErrorResponse(w, req, http.StatusBadRequest, p.refreshError, "configured error")
			return
		case p.refreshToken == "" || req.FormValue("refresh_token") != p.refreshToken:
			_ = p.writeTokenErrorResponse(w, req, http.StatusBadRequest, "invalid_grant", "token is not active")
			return
		}
		includeIDToken = includeIDToken && !p.omitRefreshIDToken
	default:
		_ = p.writeTokenErrorResponse(w, req, http.StatusBadRequest, "unsupported_grant_type", "bad grant_type")
		return
	}

	now := time.Now()
	p.issued++
	accessClaims := jwt.Claims{
		Subject:   p.replySubject,
		Issuer:    p.Addr(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		Expiry:    jwt.NewNumericDate(now.Add(p.accessTokenTTL)),
		Audience:  jwt.Audience{p.clientID},
		ID:        fmt.Sprintf("at-%d", p.issued),
	}
	accessPrivate := map[string]interface{}{
		"azp": p.clientID,
		"resource_access": map[string]interface{}{
			p.clientID: map[string]interface{}{"roles": p.roles},
		},
	}
	for k, v := range p.customClaims {
		accessPrivate[k] = v
	}
	accessKey := p.ecdsaPrivateKey
	if p.accessTokenKey != "" {
		accessKey = p.accessTokenKey
	}
	accessToken, err := signJWT(accessKey, testKeyID, accessClaims, accessPrivate)
	if err != nil {
		_ = p.writeTokenErrorResponse(w, req, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	idTTL := p.idTokenTTL
	if idTTL == 0 {
		idTTL = 5 * time.Minute
	}
	idClaims := jwt.Claims{
		Subject:   p.replySubject,
		Issuer:    p.Addr(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		Expiry:    jwt.NewNumericDate(now.Add(idTTL)),
		Audience:  jwt.Audience{p.clientID},
	}
	if p.customAudience != "" {
		idClaims.Audience = jwt.Audience{p.customAudience}
	}
	idPrivate := map[string]interface{}{
		"azp":   p.clientID,
		"name":  p.replyUserinfo["name"],
		"email": p.replyUserinfo["email"],
	}
	if nonce != "" {
		idPrivate["nonce"] = nonce
	}
	for k, v := range p.customClaims {
		idPrivate[k] = v
	}
	idKey := p.ecdsaPrivateKey
	if p.idTokenKey != "" {
		idKey = p.idTokenKey
	}
	idToken, err := signJWT(idKey, testKeyID, idClaims, idPrivate)
	if err != nil {
		_ = p.writeTokenErrorResponse(w, req, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	p.accessToken = accessToken
	p.refreshToken = fmt.Sprintf("rt-%d", p.issued)
	if includeIDToken {
		p.idToken = idToken
	}

	reply := struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
		RefreshToken string `json:"refresh_token"`
		IDToken      string `json:"id_token,omitempty"`
		Scope        string `json:"scope"`
	}{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(p.accessTokenTTL / time.Second),
		RefreshToken: p.refreshToken,
		Scope:        strings.Join(p.requiredScopes, " "),
	}
	if includeIDToken {
		reply.IDToken = idToken
	}
	if err := p.writeJSON(w, &reply); err != nil {
		return
	}
}

// testVerifyChallenge checks a PKCE S256 code_verifier against its
// challenge.
func testVerifyChallenge(challenge, verifier string) bool {
	if challenge == "" || verifier == "" {
		return false
	}
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:]) == challenge
}

// testJWKS converts a pem-encoded public key into JWKS data suitable for a
// verification endpoint response
func testJWKS(t *testing.T, pubKey string) *jose.JSONWebKeySet {
	t.Helper()
	require := require.New(t)

	block, _ := pem.Decode([]byte(pubKey))
	require.NotNil(block)

	input := block.Bytes

	pub, err := x509.ParsePKIXPublicKey(input)
	require.NoError(err)

	return &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       pub,
				KeyID:     testKeyID,
				Algorithm: string(jose.ES256),
				Use:       "sig",
			},
		},
	}
}
