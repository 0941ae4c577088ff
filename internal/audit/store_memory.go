package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps the audit log in process memory for development and
// tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
	seq    int64
	clock  func() time.Time
}

type InMemoryOption func(*InMemoryStore)

// WithClock sets the append-time clock for testability.
func WithClock(clock func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Append(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	event.ID = uuid.New()
	event.Seq = s.seq
	event.Timestamp = s.clock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListRecent(ctx context.Context, limit, offset int) ([]Event, error) {
	s.mu.RLock()
	sorted := make([]Event, len(s.events))
	copy(sorted, s.events)
	s.mu.RUnlock()

	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.After(sorted[j].Timestamp)
		}
		return sorted[i].Seq > sorted[j].Seq
	})

	if offset >= len(sorted) {
		return nil, nil
	}
	sorted = sorted[offset:]
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// Len reports the number of appended events. Test helper.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
