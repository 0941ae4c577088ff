package cart

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"vitrine/pkg/sentinel"
)

// InMemoryStore keeps carts in process memory for development and tests.
// FindOrCreate is race-safe under the store mutex, mirroring the uniqueness
// constraint the Postgres store gets from its identity index.
type InMemoryStore struct {
	mu    sync.Mutex
	carts map[string]Cart   // identity key -> cart
	items map[string][]Item // cart ID -> lines
	clock func() time.Time
}

type InMemoryOption func(*InMemoryStore)

func WithClock(clock func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		carts: make(map[string]Cart),
		items: make(map[string][]Item),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) FindOrCreate(ctx context.Context, identity Identity) (Cart, error) {
	if !identity.Valid() {
		return Cart{}, sentinel.ErrInvalidState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cart, ok := s.carts[identity.Key()]; ok {
		return cart, nil
	}
	cart := Cart{
		ID:        uuid.NewString(),
		Identity:  identity,
		CreatedAt: s.clock(),
	}
	s.carts[identity.Key()] = cart
	return cart, nil
}

func (s *InMemoryStore) ListItems(ctx context.Context, cartID string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Item, len(s.items[cartID]))
	copy(items, s.items[cartID])
	return items, nil
}

func (s *InMemoryStore) FindItem(ctx context.Context, cartID, productID, variantID string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items[cartID] {
		if item.ProductID == productID && item.VariantID == variantID {
			return item, nil
		}
	}
	return Item{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) InsertItem(ctx context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.CartID] = append(s.items[item.CartID], item)
	return nil
}

func (s *InMemoryStore) UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items[cartID] {
		if item.ID == itemID {
			s.items[cartID][i].Quantity = quantity
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) DeleteItem(ctx context.Context, cartID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[cartID]
	for i, item := range items {
		if item.ID == itemID {
			s.items[cartID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	// Already absent: treated as removed.
	return nil
}

func (s *InMemoryStore) DeleteItems(ctx context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, cartID)
	return nil
}
