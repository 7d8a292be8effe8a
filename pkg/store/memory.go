package store

import (
	"context"
	"sync"
)

type memoryCollection struct {
	// oldest first
	records [][]byte
	index   map[string]int
}

// MemoryBackend keeps records in process memory. Nothing survives a restart.
type MemoryBackend struct {
	collections map[string]*memoryCollection
	mu          sync.RWMutex
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		collections: make(map[string]*memoryCollection),
	}
}

func (m *MemoryBackend) Append(_ context.Context, collection string, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[collection]
	if !ok {
		coll = &memoryCollection{
			index: make(map[string]int),
		}
		m.collections[collection] = coll
	}
	if _, exists := coll.index[id]; exists {
		return ErrDuplicateID
	}
	coll.index[id] = len(coll.records)
	coll.records = append(coll.records, copyBytes(data))
	return nil
}

func (m *MemoryBackend) List(_ context.Context, collection string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collections[collection]
	if !ok {
		return [][]byte{}, nil
	}
	ret := make([][]byte, 0, len(coll.records))
	for i := len(coll.records) - 1; i >= 0; i-- {
		ret = append(ret, copyBytes(coll.records[i]))
	}
	return ret, nil
}

func (m *MemoryBackend) Get(_ context.Context, collection string, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	idx, ok := coll.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyBytes(coll.records[idx]), nil
}

func (m *MemoryBackend) Close() error {
	return nil
}

func copyBytes(data []byte) []byte {
	ret := make([]byte, len(data))
	copy(ret, data)
	return ret
}
