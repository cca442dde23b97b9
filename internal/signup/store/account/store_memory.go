package account

import (
	"context"
	"fmt"
	"sync"

	"signup/internal/signup/models"
	"signup/pkg/platform/sentinel"
)

// InMemoryStore keeps accounts in a map. Used in development and tests; it
// never reports ErrUnavailable.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{accounts: make(map[string]models.Account)}
}

func (s *InMemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[key]
	return ok, nil
}

// Write overwrites any existing record for key.
func (s *InMemoryStore) Write(_ context.Context, key string, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[key] = account
	return nil
}

// CreateIfAbsent writes only when key is free; otherwise it returns ErrConflict.
func (s *InMemoryStore) CreateIfAbsent(_ context.Context, key string, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[key]; ok {
		return fmt.Errorf("create %s: %w", key, sentinel.ErrConflict)
	}
	s.accounts[key] = account
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, key string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if account, ok := s.accounts[key]; ok {
		return account, nil
	}
	return models.Account{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}
