package storage

import (
	"errors"
	"sync"

	"golang.org/x/exp/slices"
)

// ErrKeyNotFound is returned by Get for a key that is absent or deleted.
var ErrKeyNotFound = errors.New("key not found")

// Store is a key-value store that remembers deletions as tombstones until
// they are purged.
type Store interface {
	// Get returns the value of a live key or ErrKeyNotFound.
	Get(key string) ([]byte, error)

	// Put creates or replaces a key. Writing a tombstoned key revives it.
	Put(key string, value []byte) error

	// Delete removes a live key and leaves a tombstone. Deleting a missing
	// key is a no-op.
	Delete(key string) error

	// List returns the live keys in sorted order.
	List() []string

	// PurgeTombstones drops every tombstone and returns how many there were.
	PurgeTombstones() int

	// Stats reports live keys, tombstones and live bytes.
	Stats() StoreStats
}

// StoreStats is a point-in-time summary of a store.
type StoreStats struct {
	Keys       int   `json:"keys"`       // Live keys
	Tombstones int   `json:"tombstones"` // Deleted keys not yet purged
	Bytes      int64 `json:"bytes"`      // Total size of live values
}

// MemoryStore is a Store held in a map. Values are copied on the way in and
// out.
type MemoryStore struct {
	mu         sync.RWMutex
	data       map[string][]byte
	tombstones map[string]struct{}
	bytes      int64
}

// NewMemoryStore returns an empty store, ready for use.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:       make(map[string][]byte),
		tombstones: make(map[string]struct{}),
	}
}

// Get returns a copy of the value stored under key. Deleted keys are
// reported as ErrKeyNotFound just like keys that never existed.
func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.data[key]
	if !exists {
		return nil, ErrKeyNotFound
	}
	return slices.Clone(value), nil
}

// Put stores a copy of value under key, replacing any previous value and
// clearing a tombstone for key. The byte count is adjusted by the size
// difference. Put never fails; the error is part of the Store contract.
func (m *MemoryStore) Put(key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, exists := m.data[key]; exists {
		m.bytes -= int64(len(old))
	}
	delete(m.tombstones, key)
	m.data[key] = stored
	m.bytes += int64(len(stored))
	return nil
}

// Delete removes key and records a tombstone for it. A key that is not live
// is left alone, so deleting twice leaves one tombstone.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, exists := m.data[key]
	if !exists {
		return nil
	}
	m.bytes -= int64(len(old))
	delete(m.data, key)
	m.tombstones[key] = struct{}{}
	return nil
}

// List returns the live keys, sorted. Tombstoned keys are not listed. The
// lock is released before sorting.
func (m *MemoryStore) List() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	m.mu.RUnlock()

	slices.Sort(keys)
	return keys
}

// PurgeTombstones forgets every tombstone and returns how many were dropped.
// Live keys are untouched.
func (m *MemoryStore) PurgeTombstones() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.tombstones)
	m.tombstones = make(map[string]struct{})
	return n
}

// Stats returns a consistent snapshot taken under the read lock.
func (m *MemoryStore) Stats() StoreStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return StoreStats{
		Keys:       len(m.data),
		Tombstones: len(m.tombstones),
		Bytes:      m.bytes,
	}
}
