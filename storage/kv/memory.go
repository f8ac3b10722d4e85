// Package kvstore holds the key-value stores backing setup flags.
package kvstore

import (
	"context"
	"sync"
)

// MemoryStore is a process-local key-value store.
type MemoryStore struct {
	mutex sync.RWMutex
	data  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	val, ok := s.data[key]
	return val, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.data[key] = value
	return nil
}
