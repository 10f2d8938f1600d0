// Package memory provides in-memory implementations for testing and for
// single-process deployments.
package memory

import (
	"context"
	"sync"

	"github.com/artpar/coursesync/ports"
)

// DraftStore is an in-memory implementation of ports.DraftStore.
type DraftStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	err    error
}

// NewDraftStore creates a new in-memory draft store.
func NewDraftStore() *DraftStore {
	return &DraftStore{
		values: make(map[string][]byte),
	}
}

// Get returns a copy of the stored value, or nil if absent.
func (s *DraftStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, s.err
	}
	v, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value.
func (s *DraftStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Remove deletes key.
func (s *DraftStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	delete(s.values, key)
	return nil
}

// SetError makes every subsequent call fail with err (nil restores normal
// behaviour). Simulates a full or unavailable storage backend.
func (s *DraftStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Keys returns all stored keys (for testing).
func (s *DraftStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// Clear removes all values (for testing).
func (s *DraftStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string][]byte)
}

// Ensure interface compliance.
var _ ports.DraftStore = (*DraftStore)(nil)
