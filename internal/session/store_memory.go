package session

import (
	"context"
	"sync"
	"time"

	"vitrine/pkg/sentinel"
)

// InMemoryStore keeps session tokens in process memory. Suitable for local
// development and tests; production uses the Redis store.
type InMemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]Token
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[string]Token)}
}

func (s *InMemoryStore) Get(ctx context.Context, id string) (Token, error) {
	s.mu.RLock()
	tok, ok := s.tokens[id]
	s.mu.RUnlock()
	if !ok {
		return Token{}, sentinel.ErrNotFound
	}
	return tok, nil
}

func (s *InMemoryStore) Put(ctx context.Context, token Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.ID] = token
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, id)
	return nil
}

// Reap removes expired tokens. The Redis store gets this for free via TTL;
// here it keeps long-running dev processes from growing without bound.
func (s *InMemoryStore) Reap(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, tok := range s.tokens {
		if tok.Expired(now) {
			delete(s.tokens, id)
			removed++
		}
	}
	return removed
}
