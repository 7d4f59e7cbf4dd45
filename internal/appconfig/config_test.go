// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package appconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/communityapp/authsession/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
environment: staging
environments:
  production:
    issuer: https://auth.communityapp.example/realms/community
    client_id: community-app
  staging:
    issuer: https://auth.staging.communityapp.example/realms/community
    client_id: community-app-staging
port: 9000
required_roles: [ACCESS_GRANTED, MEMBER]
store:
  backend: keyring
log_level: debug
`

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		env       map[string]string
		want      func(*assert.Assertions, *Config)
		wantErr   bool
		wantIsErr error
	}{
		{
			name: "valid",
			data: testConfig,
			want: func(assert *assert.Assertions, c *Config) {
				assert.Equal("staging", c.Environment)
				assert.Equal("community-app-staging", c.Selected().ClientID)
				assert.Equal(9000, c.Port)
				assert.Equal([]string{"ACCESS_GRANTED", "MEMBER"}, c.RequiredRoles)
				assert.Equal(StoreKeyring, c.Store.Backend)
				assert.Equal(DefaultKeyringService, c.Store.Service)
				assert.Equal("debug", c.LogLevel)
			},
		},
		{
			name: "defaults",
			data: "environments:\n  production:\n    issuer: https://auth.example.com\n    client_id: app\n",
			want: func(assert *assert.Assertions, c *Config) {
				assert.Equal("production", c.Environment)
				assert.Equal(DefaultPort, c.Port)
				assert.Equal(StoreFile, c.Store.Backend)
				assert.Equal("warn", c.LogLevel)
			},
		},
		{
			name: "env-overrides",
			data: testConfig,
			env: map[string]string{
				EnvEnvironment: "production",
				EnvClientID:    "community-app-dev",
				EnvStore:       StoreSQLite,
				EnvStorePath:   "/tmp/auth.db",
				EnvPort:        "0",
			},
			want: func(assert *assert.Assertions, c *Config) {
				assert.Equal("production", c.Environment)
				assert.Equal("community-app-dev", c.Selected().ClientID)
				assert.Equal("https://auth.communityapp.example/realms/community", c.Selected().Issuer)
				assert.Equal(StoreSQLite, c.Store.Backend)
				assert.Equal(0, c.Port)
			},
		},
		{
			name: "env-only",
			data: "",
			env: map[string]string{
				EnvIssuer:   "https://auth.example.com",
				EnvClientID: "app",
			},
			want: func(assert *assert.Assertions, c *Config) {
				assert.Equal("https://auth.example.com", c.Selected().Issuer)
			},
		},
		{
			name:      "unknown-environment",
			data:      testConfig,
			env:       map[string]string{EnvEnvironment: "qa"},
			wantErr:   true,
			wantIsErr: ErrUnknownEnvironment,
		},
		{
			name:    "bad-port-env",
			data:    testConfig,
			env:     map[string]string{EnvPort: "http"},
			wantErr: true,
		},
		{
			name:    "bad-backend",
			data:    strings.Replace(testConfig, "backend: keyring", "backend: cloud", 1),
			wantErr: true,
		},
		{
			name:    "missing-client-id",
			data:    "environments:\n  production:\n    issuer: https://auth.example.com\n",
			wantErr: true,
		},
		{
			name:    "not-yaml",
			data:    "environments: [",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			for _, k := range []string{EnvEnvironment, EnvIssuer, EnvClientID, EnvStore, EnvStorePath, EnvPort, EnvLogLevel} {
				t.Setenv(k, tt.env[k])
			}
			got, err := Parse([]byte(tt.data))
			if tt.wantErr {
				require.Error(err)
				if tt.wantIsErr != nil {
					assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				}
				return
			}
			require.NoError(err)
			tt.want(assert, got)
		})
	}
}

func TestLoad(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	for _, k := range []string{EnvEnvironment, EnvIssuer, EnvClientID, EnvStore, EnvStorePath, EnvPort, EnvLogLevel} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "community-auth.yaml")
	require.NoError(os.WriteFile(path, []byte(testConfig), 0o600))

	c, err := Load(path)
	require.NoError(err)
	assert.Equal("staging", c.Environment)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(err)
}

func TestLoadEnvFile(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	t.Setenv(EnvClientID, "")
	require.NoError(os.Unsetenv(EnvClientID))
	t.Setenv(EnvEnvironment, "already-set")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(os.WriteFile(path, []byte(EnvClientID+"=from-file\n"+EnvEnvironment+"=from-file\n"), 0o600))

	require.NoError(LoadEnvFile(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal("from-file", os.Getenv(EnvClientID))
	assert.Equal("already-set", os.Getenv(EnvEnvironment))

	require.NoError(LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestConfig_StorePath(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	c := &Config{Environment: "staging", Store: Store{Backend: StoreFile, Path: "/var/lib/auth"}}
	p, err := c.StorePath()
	require.NoError(err)
	assert.Equal("/var/lib/auth", p)

	c.Store.Path = ""
	p, err = c.StorePath()
	require.NoError(err)
	assert.Equal(filepath.Join("community-app", "staging"), filepath.Join(filepath.Base(filepath.Dir(p)), filepath.Base(p)))

	c.Store.Backend = StoreSQLite
	p, err = c.StorePath()
	require.NoError(err)
	assert.True(strings.HasSuffix(p, filepath.Join("community-app", "staging.db")))
}

func TestConfig_OIDCConfig(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(os.WriteFile(caFile, []byte(oidc.TestGenerateCA(t, []string{"localhost"})), 0o600))

	c := &Config{
		Environment: "production",
		Environments: map[string]Environment{
			"production": {Issuer: "https://auth.example.com/realms/community", ClientID: "community-app", ClientSecret: "shh"},
		},
		Scopes:        []string{"profile", "roles", "email"},
		RequiredRoles: []string{"MEMBER"},
		Audiences:     []string{"api"},
		ProviderCA:    caFile,
	}
	got, err := c.OIDCConfig("http://127.0.0.1:8250/callback", "http://127.0.0.1:8250/logout")
	require.NoError(err)
	assert.Equal("community-app", got.ClientID)
	assert.Equal(oidc.ClientSecret("shh"), got.ClientSecret)
	assert.Equal("http://127.0.0.1:8250/logout", got.EndSessionRedirectURL)
	assert.Equal([]string{"profile", "roles", "email"}, got.Scopes)
	assert.Equal([]string{"MEMBER"}, got.RequiredRoles)
	assert.Equal([]string{"api"}, got.Audiences)
	assert.NotEmpty(got.ProviderCA)

	c.ProviderCA = filepath.Join(t.TempDir(), "missing.pem")
	_, err = c.OIDCConfig("http://127.0.0.1:8250/callback", "http://127.0.0.1:8250/logout")
	assert.Error(err)
}
