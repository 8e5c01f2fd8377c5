// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package recovery

import (
	"context"
	"sync"

	"github.com/toeirei/warden/internal/model"
)

// MemoryStore is an in-process Store. Records are copied on the way in and
// out so callers never share slices with the store.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]model.AccountState
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]model.AccountState)}
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, state model.AccountState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[state.Address]; ok {
		return ErrAccountExists
	}
	m.accounts[state.Address] = state.Clone()
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, account string) (model.AccountState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.accounts[account]
	if !ok {
		return model.AccountState{}, ErrAccountNotFound
	}
	return st.Clone(), nil
}

// Update implements Store.
func (m *MemoryStore) Update(_ context.Context, account string, fn func(*model.AccountState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.accounts[account]
	if !ok {
		return ErrAccountNotFound
	}
	work := st.Clone()
	if err := fn(&work); err != nil {
		return err
	}
	m.accounts[account] = work
	return nil
}
