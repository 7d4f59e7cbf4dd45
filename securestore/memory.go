// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package securestore

import (
	"fmt"
	"sync"
)

// Memory is a Backend held in process memory.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemory returns an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{records: map[string][]byte{}}
}

// Read implements Backend.
func (m *Memory) Read(key string) ([]byte, error) {
	const op = "Memory.Read"
	if err := validKey(key); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.records[key]
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", op, key, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Write implements Backend.
func (m *Memory) Write(key string, data []byte) error {
	const op = "Memory.Write"
	if err := validKey(key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = append([]byte(nil), data...)
	return nil
}

// Delete implements Backend.
func (m *Memory) Delete(key string) error {
	const op = "Memory.Delete"
	if err := validKey(key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}
