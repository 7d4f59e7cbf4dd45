// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/communityapp/authsession/securestore"
	"github.com/fxamacker/cbor/v2"
	"github.com/hashicorp/go-hclog"
)

const (
	// DefaultStateKey is the backend key the auth state is stored under.
	DefaultStateKey = "auth_state"

	stateVersion = 1
)

var (
	stateEncMode cbor.EncMode
	stateDecMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	if stateEncMode, err = opts.EncMode(); err != nil {
		panic(fmt.Sprintf("oidc: invalid cbor encoding options: %v", err))
	}
	if stateDecMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(fmt.Sprintf("oidc: invalid cbor decoding options: %v", err))
	}
}

// stateEnvelope is the persisted form of an AuthState.
type stateEnvelope struct {
	Version int        `cbor:"v"`
	State   *AuthState `cbor:"state"`
}

// StateStore persists the single AuthState through a securestore.Backend
// and memoizes it.  Values returned by Get are copies; callers change the
// stored state only through Set.
type StateStore struct {
	backend securestore.Backend
	key     string
	logger  hclog.Logger

	mu      sync.Mutex
	loaded  bool
	cached  *AuthState
	encoded []byte
}

// NewStateStore creates a store on top of backend.
// Supported options: WithLogger, WithStateKey
func NewStateStore(backend securestore.Backend, opt ...Option) (*StateStore, error) {
	const op = "NewStateStore"
	if backend == nil {
		return nil, fmt.Errorf("%s: backend is nil: %w", op, ErrNilParameter)
	}
	opts := getStoreOpts(opt...)
	if opts.withStateKey == "" {
		return nil, fmt.Errorf("%s: state key is empty: %w", op, ErrInvalidParameter)
	}
	return &StateStore{
		backend: backend,
		key:     opts.withStateKey,
		logger:  opts.withLogger.Named("store"),
	}, nil
}

// Get returns a copy of the stored state or nil when there is none.  A
// record that cannot be read or decoded is logged and treated as absent.
func (s *StateStore) Get() *AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.load()
	}
	return s.cached.Clone()
}

// load reads the backend record into the cache.  s.mu must be held.
func (s *StateStore) load() {
	data, err := s.backend.Read(s.key)
	switch {
	case errors.Is(err, securestore.ErrNotFound):
		s.loaded, s.cached, s.encoded = true, nil, nil
		return
	case err != nil:
		// left unloaded so the next Get tries again
		s.logger.Warn("unable to read auth state", "key", s.key, "error", err)
		return
	}
	state, err := decodeState(data)
	if err != nil {
		s.logger.Warn("discarding unreadable auth state", "key", s.key, "error", err)
		s.loaded, s.cached, s.encoded = true, nil, nil
		return
	}
	s.loaded, s.cached, s.encoded = true, state, data
}

// Set replaces the stored state.  Set(nil) deletes it.  Writing a state
// equal to the stored one is skipped.
func (s *StateStore) Set(state *AuthState) error {
	const op = "StateStore.Set"
	s.mu.Lock()
	defer s.mu.Unlock()

	if state == nil {
		if err := s.backend.Delete(s.key); err != nil {
			return fmt.Errorf("%s: unable to delete auth state: %w", op, err)
		}
		s.loaded, s.cached, s.encoded = true, nil, nil
		s.logger.Debug("auth state cleared")
		return nil
	}

	data, err := encodeState(state)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if s.loaded && s.encoded != nil && bytes.Equal(data, s.encoded) {
		s.logger.Trace("auth state unchanged, skipping write")
		return nil
	}
	if err := s.backend.Write(s.key, data); err != nil {
		return fmt.Errorf("%s: unable to write auth state: %w", op, err)
	}
	s.loaded, s.cached, s.encoded = true, state.Clone(), data
	s.logger.Debug("auth state written", "client_id", state.ClientID())
	return nil
}

// Reload drops the memoized state so the next Get reads the backend again.
// Call it when another process sharing the backend may have written.
func (s *StateStore) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded, s.cached, s.encoded = false, nil, nil
}

func encodeState(state *AuthState) ([]byte, error) {
	const op = "encodeState"
	data, err := stateEncMode.Marshal(stateEnvelope{Version: stateVersion, State: state})
	if err != nil {
		return nil, fmt.Errorf("%s: unable to encode auth state: %w", op, err)
	}
	return data, nil
}

func decodeState(data []byte) (*AuthState, error) {
	const op = "decodeState"
	var env stateEnvelope
	if err := stateDecMode.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%s: unable to decode auth state: %w", op, err)
	}
	if env.Version != stateVersion {
		return nil, fmt.Errorf("%s: unsupported auth state version %d: %w", op, env.Version, ErrInvalidParameter)
	}
	return env.State, nil
}

// storeOptions is the set of available options for StateStore
type storeOptions struct {
	withLogger   hclog.Logger
	withStateKey string
}

func storeDefaults() storeOptions {
	return storeOptions{
		withLogger:   hclog.NewNullLogger(),
		withStateKey: DefaultStateKey,
	}
}

func getStoreOpts(opt ...Option) storeOptions {
	opts := storeDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithStateKey overrides the backend key the state is stored under.
func WithStateKey(key string) Option {
	return func(o interface{}) {
		if o, ok := o.(*storeOptions); ok {
			o.withStateKey = key
		}
	}
}
