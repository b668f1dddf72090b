// Package memory is a process-local storage backend that keeps nothing on
// disk. It backs tests and the "memory" storage type.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/goodtune/zentube/internal/storage"
)

// Store implements storage.Store with a map.
type Store struct {
	mu      sync.RWMutex
	records map[string][]byte
	failGet error
	failPut error
}

// New creates an empty store.
func New() *Store {
	return &Store{records: make(map[string][]byte)}
}

// FailWrites makes every later Put return err. Pass nil to recover.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPut = err
}

// FailReads makes every later Get return err. Pass nil to recover.
func (s *Store) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGet = err
}

// Get returns the raw record under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failGet != nil {
		return nil, s.failGet
	}

	value, ok := s.records[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Put stores value under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failPut != nil {
		return s.failPut
	}
	s.records[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

// Keys lists keys starting with prefix in sorted order.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
