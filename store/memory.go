package store

import (
	"context"
	"sync"

	"github.com/nathoo/shellquest/engine/save"
	"github.com/nathoo/shellquest/types"
)

// MemoryStore keeps the encoded progress in memory. State is lost when
// the process exits. Records are stored encoded so callers never share
// a pointer with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	data  []byte
	saves int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load decodes the last saved record.
func (m *MemoryStore) Load(ctx context.Context) (*types.Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return nil, ErrNotFound
	}
	return save.Decode(m.data)
}

// Save encodes and keeps the record.
func (m *MemoryStore) Save(ctx context.Context, p *types.Progress) error {
	data, err := save.Encode(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.saves++
	return nil
}

// Bytes returns the last saved encoding, or nil.
func (m *MemoryStore) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.data...)
}

// Saves returns how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
