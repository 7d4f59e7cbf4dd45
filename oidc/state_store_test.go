// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/communityapp/authsession/securestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingBackend wraps a Memory backend, counts calls and can be told to
// fail.
type countingBackend struct {
	*securestore.Memory

	mu        sync.Mutex
	reads     int
	writes    int
	deletes   int
	failRead  error
	failWrite error
	failDel   error
}

func newCountingBackend() *countingBackend {
	return &countingBackend{Memory: securestore.NewMemory()}
}

func (b *countingBackend) Read(key string) ([]byte, error) {
	b.mu.Lock()
	b.reads++
	err := b.failRead
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return b.Memory.Read(key)
}

func (b *countingBackend) Write(key string, data []byte) error {
	b.mu.Lock()
	b.writes++
	err := b.failWrite
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.Memory.Write(key, data)
}

func (b *countingBackend) Delete(key string) error {
	b.mu.Lock()
	b.deletes++
	err := b.failDel
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.Memory.Delete(key)
}

func (b *countingBackend) counts() (reads, writes, deletes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reads, b.writes, b.deletes
}

func TestNewStateStore(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		backend   securestore.Backend
		opts      []Option
		wantErr   bool
		wantIsErr error
	}{
		{name: "valid", backend: securestore.NewMemory()},
		{name: "valid-custom-key", backend: securestore.NewMemory(), opts: []Option{WithStateKey("other")}},
		{name: "nil-backend", wantErr: true, wantIsErr: ErrNilParameter},
		{name: "empty-key", backend: securestore.NewMemory(), opts: []Option{WithStateKey("")}, wantErr: true, wantIsErr: ErrInvalidParameter},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := NewStateStore(tt.backend, tt.opts...)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			assert.NotNil(got)
		})
	}
}

func TestStateStore_RoundTrip(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	backend := securestore.NewMemory()
	s, err := NewStateStore(backend)
	require.NoError(err)
	assert.Nil(s.Get())

	want := testAuthState("client", time.Now().Add(time.Hour))
	require.NoError(s.Set(want))
	assert.Equal(want, s.Get())

	// a fresh store reads and decodes the persisted record
	fresh, err := NewStateStore(backend)
	require.NoError(err)
	got := fresh.Get()
	require.NotNil(got)
	assert.Equal(want.Provider, got.Provider)
	assert.Equal(want.LastAuthorizationResponse, got.LastAuthorizationResponse)
	assert.Equal(want.LastTokenResponse.AccessToken, got.LastTokenResponse.AccessToken)
	assert.Equal(want.LastTokenResponse.RefreshToken, got.LastTokenResponse.RefreshToken)
	assert.Equal(want.LastTokenResponse.IdToken, got.LastTokenResponse.IdToken)
	assert.Equal(want.LastTokenResponse.Scopes, got.LastTokenResponse.Scopes)
	assert.True(want.LastTokenResponse.Expiry.Equal(got.LastTokenResponse.Expiry))

	// equal states encode to equal bytes
	wantBytes, err := encodeState(want)
	require.NoError(err)
	gotBytes, err := encodeState(got)
	require.NoError(err)
	assert.Equal(wantBytes, gotBytes)
}

func TestStateStore_GetReturnsCopies(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	s, err := NewStateStore(securestore.NewMemory())
	require.NoError(err)
	state := testAuthState("client", time.Now().Add(time.Hour))
	require.NoError(s.Set(state))

	state.LastTokenResponse.AccessToken = "changed-after-set"
	got := s.Get()
	got.LastTokenResponse.AccessToken = "changed-after-get"

	assert.Equal(AccessToken("access"), s.Get().LastTokenResponse.AccessToken)
}

func TestStateStore_SkipsUnchangedWrite(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	backend := newCountingBackend()
	s, err := NewStateStore(backend)
	require.NoError(err)

	state := testAuthState("client", time.Now().Add(time.Hour))
	require.NoError(s.Set(state))
	require.NoError(s.Set(state.Clone()))
	_, writes, _ := backend.counts()
	assert.Equal(1, writes)

	changed := state.Clone()
	changed.LastTokenResponse.AccessToken = "new"
	require.NoError(s.Set(changed))
	_, writes, _ = backend.counts()
	assert.Equal(2, writes)
}

func TestStateStore_Set(t *testing.T) {
	t.Parallel()

	t.Run("nil-deletes", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		backend := newCountingBackend()
		s, err := NewStateStore(backend)
		require.NoError(err)
		require.NoError(s.Set(nil), "deleting a missing record")
		require.NoError(s.Set(testAuthState("client", time.Now())))
		require.NoError(s.Set(nil))
		assert.Nil(s.Get())
		_, err = backend.Memory.Read(DefaultStateKey)
		assert.Truef(errors.Is(err, securestore.ErrNotFound), "wanted \"%s\" but got \"%s\"", securestore.ErrNotFound, err)
	})
	t.Run("write-failure-keeps-cache", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		backend := newCountingBackend()
		s, err := NewStateStore(backend)
		require.NoError(err)
		state := testAuthState("client", time.Now())
		require.NoError(s.Set(state))

		backend.failWrite = errors.New("disk full")
		changed := state.Clone()
		changed.LastTokenResponse.AccessToken = "new"
		require.Error(s.Set(changed))
		assert.Equal(AccessToken("access"), s.Get().LastTokenResponse.AccessToken)
	})
	t.Run("delete-failure", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		backend := newCountingBackend()
		s, err := NewStateStore(backend)
		require.NoError(err)
		require.NoError(s.Set(testAuthState("client", time.Now())))
		backend.failDel = errors.New("locked")
		require.Error(s.Set(nil))
		assert.NotNil(s.Get())
	})
}

func TestStateStore_Corruption(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data func(t *testing.T) []byte
	}{
		{
			name: "not-cbor",
			data: func(*testing.T) []byte { return []byte{0xff, 0x00, 0x13} },
		},
		{
			name: "unknown-version",
			data: func(t *testing.T) []byte {
				b, err := stateEncMode.Marshal(stateEnvelope{Version: 99, State: &AuthState{}})
				require.NoError(t, err)
				return b
			},
		},
		{
			name: "wrong-shape",
			data: func(t *testing.T) []byte {
				b, err := stateEncMode.Marshal([]string{"not", "a", "state"})
				require.NoError(t, err)
				return b
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			backend := newCountingBackend()
			require.NoError(backend.Memory.Write(DefaultStateKey, tt.data(t)))
			s, err := NewStateStore(backend)
			require.NoError(err)
			assert.Nil(s.Get())

			// the corrupt record is cached as absent
			assert.Nil(s.Get())
			reads, _, _ := backend.counts()
			assert.Equal(1, reads)

			// and can be replaced
			require.NoError(s.Set(testAuthState("client", time.Now())))
			assert.NotNil(s.Get())
		})
	}
}

func TestStateStore_ReadFailureRetries(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	backend := newCountingBackend()
	s, err := NewStateStore(backend)
	require.NoError(err)
	require.NoError(s.Set(testAuthState("client", time.Now())))
	s.Reload()

	backend.failRead = errors.New("keychain locked")
	assert.Nil(s.Get())

	backend.failRead = nil
	assert.NotNil(s.Get())
}

func TestStateStore_Reload(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	backend := securestore.NewMemory()
	s, err := NewStateStore(backend)
	require.NoError(err)
	other, err := NewStateStore(backend)
	require.NoError(err)

	require.NoError(s.Set(testAuthState("first", time.Now())))
	assert.Equal("first", other.Get().ClientID())

	require.NoError(s.Set(testAuthState("second", time.Now())))
	assert.Equal("first", other.Get().ClientID(), "memoized until reloaded")

	other.Reload()
	assert.Equal("second", other.Get().ClientID())
}
