package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"fintrack/internal/storage"
)

// Store is a process-local KV used for development and tests.
type Store struct {
	mu    sync.RWMutex
	items map[string]string
}

var _ storage.KV = (*Store)(nil)

func New() *Store {
	return &Store{items: map[string]string{}}
}

// NewWithData returns a store pre-populated with a copy of seed.
func NewWithData(seed map[string]string) *Store {
	s := New()
	maps.Copy(s.items, seed)
	return s
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

// Keys lists stored keys in lexical order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.items))
}
