package customer

import (
	"context"
	"sync"

	"vitrine/pkg/sentinel"
)

// InMemoryStore serves customer records from memory for development and
// tests.
type InMemoryStore struct {
	mu        sync.RWMutex
	customers map[string]Customer
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{customers: make(map[string]Customer)}
}

// Seed inserts a record. Test helper.
func (s *InMemoryStore) Seed(c Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

func (s *InMemoryStore) FindByID(ctx context.Context, id string) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return Customer{}, sentinel.ErrNotFound
	}
	return c, nil
}
