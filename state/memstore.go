// Package state provides the key-value stores the registry modules run
// against: an in-memory store for tests and ephemeral nodes, and a
// bbolt-backed store for persistent nodes.
package state

import (
	"sync"

	"github.com/ruteri/identity-registry-backend/interfaces"
)

// MemoryStore is an in-memory StateStore. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string][]byte)}
}

// Get returns a copy of the stored value, or nil when the key is absent.
func (s *MemoryStore) Get(bucket, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[string(bucket)]
	if !ok {
		return nil, nil
	}
	value, ok := b[string(key)]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put stores a copy of value under bucket/key.
func (s *MemoryStore) Put(bucket, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[string(bucket)]
	if !ok {
		b = make(map[string][]byte)
		s.buckets[string(bucket)] = b
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	b[string(key)] = stored
	return nil
}

// Has reports whether bucket/key holds a value.
func (s *MemoryStore) Has(bucket, key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[string(bucket)]
	if !ok {
		return false, nil
	}
	_, ok = b[string(key)]
	return ok, nil
}

// Delete removes bucket/key. Deleting an absent key is not an error.
func (s *MemoryStore) Delete(bucket, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buckets[string(bucket)]; ok {
		delete(b, string(key))
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

var _ interfaces.StateStore = (*MemoryStore)(nil)
