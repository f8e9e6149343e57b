package storage

import (
	"context"
	"sync"
)

// memory implements KV using an in-memory map.
type memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory creates a new in-memory KV. It is the default medium when no
// database is configured, and what the unit tests run against.
func NewMemory() KV {
	return &memory{
		blobs: make(map[string][]byte),
	}
}

func (m *memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blob, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, true, nil
}

func (m *memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	blob := make([]byte, len(value))
	copy(blob, value)
	m.blobs[key] = blob
	return nil
}

func (m *memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, key)
	return nil
}
