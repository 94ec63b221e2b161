package userstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/clay/amphora-auth/internal/auth"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]auth.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]auth.User)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.records[key]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, user *auth.User) error {
	if user == nil {
		return fmt.Errorf("userstore: nil user for %s", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = *user
	return nil
}

// Delete removes a record. Only administrative tooling deletes users.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

// Len is the number of records held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
