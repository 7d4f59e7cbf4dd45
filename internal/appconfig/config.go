// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package appconfig loads the community-auth configuration: a YAML file
// describing the environments the app can sign in to, optionally overridden
// by environment variables (which may come from a .env file).
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/communityapp/authsession/oidc"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvEnvironment = "COMMUNITY_AUTH_ENV"
	EnvIssuer      = "COMMUNITY_AUTH_ISSUER"
	EnvClientID    = "COMMUNITY_AUTH_CLIENT_ID"
	EnvStore       = "COMMUNITY_AUTH_STORE"
	EnvStorePath   = "COMMUNITY_AUTH_STORE_PATH"
	EnvPort        = "COMMUNITY_AUTH_PORT"
	EnvLogLevel    = "COMMUNITY_AUTH_LOG_LEVEL"
)

// Store backends.
const (
	StoreFile    = "file"
	StoreKeyring = "keyring"
	StoreSQLite  = "sqlite"
	StoreMemory  = "memory"
)

const (
	// DefaultPort is the loopback port the redirect listener binds.
	DefaultPort = 8250

	// DefaultKeyringService is the keyring service records are kept under.
	DefaultKeyringService = "community-app"
)

// ErrUnknownEnvironment is returned when the selected environment has no
// entry in the config.
var ErrUnknownEnvironment = errors.New("unknown environment")

// Environment is one identity provider registration, such as production or
// staging.
type Environment struct {
	Issuer   string `yaml:"issuer" validate:"required,url"`
	ClientID string `yaml:"client_id" validate:"required"`

	// ClientSecret is only set for confidential clients.
	ClientSecret string `yaml:"client_secret"`
}

// Store selects where the auth state is persisted.
type Store struct {
	Backend string `yaml:"backend" validate:"required,oneof=file keyring sqlite memory"`

	// Path is the directory for the file backend and the database file for
	// the sqlite backend.  Empty selects a path in the user config dir.
	Path string `yaml:"path"`

	// Service is the keyring service name.
	Service string `yaml:"service"`
}

// Config is the community-auth configuration.
type Config struct {
	Environment   string                 `yaml:"environment" validate:"required"`
	Environments  map[string]Environment `yaml:"environments" validate:"required,min=1,dive"`
	Port          int                    `yaml:"port" validate:"gte=0,lte=65535"`
	Scopes        []string               `yaml:"scopes"`
	RequiredRoles []string               `yaml:"required_roles"`
	Audiences     []string               `yaml:"audiences"`
	ProviderCA    string                 `yaml:"provider_ca_file" validate:"omitempty,file"`
	Store         Store                  `yaml:"store"`
	LogLevel      string                 `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error off"`
}

func defaults() Config {
	return Config{
		Environment: "production",
		Port:        DefaultPort,
		Store: Store{
			Backend: StoreFile,
			Service: DefaultKeyringService,
		},
		LogLevel: "warn",
	}
}

// LoadEnvFile loads variables from the .env files into the process
// environment without overriding variables already set.  Missing files are
// ignored.
func LoadEnvFile(filenames ...string) error {
	existing := make([]string, 0, len(filenames))
	for _, f := range filenames {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load reads the config file at path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for config data already in memory.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvEnvironment); ok && v != "" {
		c.Environment = v
	}
	if v, ok := lookup(EnvStore); ok && v != "" {
		c.Store.Backend = v
	}
	if v, ok := lookup(EnvStorePath); ok && v != "" {
		c.Store.Path = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s is not a port: %w", EnvPort, err)
		}
		c.Port = port
	}
	issuer, hasIssuer := lookup(EnvIssuer)
	clientID, hasClientID := lookup(EnvClientID)
	if (hasIssuer && issuer != "") || (hasClientID && clientID != "") {
		if c.Environments == nil {
			c.Environments = map[string]Environment{}
		}
		env := c.Environments[c.Environment]
		if issuer != "" {
			env.Issuer = issuer
		}
		if clientID != "" {
			env.ClientID = clientID
		}
		c.Environments[c.Environment] = env
	}
	return nil
}

// Validate checks the struct tags and that the selected environment exists.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if _, ok := c.Environments[c.Environment]; !ok {
		return fmt.Errorf("validate config: %q: %w", c.Environment, ErrUnknownEnvironment)
	}
	return nil
}

// Selected returns the environment the app signs in to.
func (c *Config) Selected() Environment {
	return c.Environments[c.Environment]
}

// StorePath returns the configured store path or the default one inside
// the user config dir.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate user config dir: %w", err)
	}
	dir = filepath.Join(dir, "community-app", c.Environment)
	if c.Store.Backend == StoreSQLite {
		return dir + ".db", nil
	}
	return dir, nil
}

// OIDCConfig builds the client registration for the selected environment
// with the given loopback redirect URLs.
func (c *Config) OIDCConfig(redirectURL, endSessionRedirectURL string) (*oidc.Config, error) {
	env := c.Selected()
	opts := []oidc.Option{}
	if env.ClientSecret != "" {
		opts = append(opts, oidc.WithClientSecret(oidc.ClientSecret(env.ClientSecret)))
	}
	if len(c.Scopes) > 0 {
		opts = append(opts, oidc.WithScopes(c.Scopes...))
	}
	if len(c.RequiredRoles) > 0 {
		opts = append(opts, oidc.WithRequiredRoles(c.RequiredRoles...))
	}
	if len(c.Audiences) > 0 {
		opts = append(opts, oidc.WithAudiences(c.Audiences...))
	}
	if c.ProviderCA != "" {
		pem, err := os.ReadFile(c.ProviderCA)
		if err != nil {
			return nil, fmt.Errorf("read provider CA: %w", err)
		}
		opts = append(opts, oidc.WithProviderCA(string(pem)))
	}
	return oidc.NewConfig(env.Issuer, env.ClientID, redirectURL, endSessionRedirectURL, opts...)
}
