package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/pkg/requestcontext"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecordCarriesActorAndClientContext(t *testing.T) {
	store := NewInMemoryStore()
	rec := NewRecorder(store, 8, discardLogger(), nil)

	ctx := requestcontext.WithActor(context.Background(), requestcontext.Actor{SessionID: "sess-1"})
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.9", "Mozilla/5.0", "Firefox on Linux")

	rec.DataAccess(ctx, AccessView, "customers", "cust-1", []string{"email"})

	runCtx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = rec.Run(runCtx)

	events, err := store.ListRecent(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, "sess-1", got.ActorID)
	assert.Equal(t, EventDataAccess, got.Type)
	assert.Equal(t, "customers", got.SubjectTable)
	assert.Equal(t, "cust-1", got.SubjectRecordID)
	assert.Equal(t, "203.0.113.9", got.ClientContext.IP)
	assert.Equal(t, "Firefox on Linux", got.ClientContext.Device)
	assert.Equal(t, string(AccessView), got.Payload["access_kind"])
}

func TestRecordDropsWhenQueueFull(t *testing.T) {
	store := NewInMemoryStore()
	rec := NewRecorder(store, 2, discardLogger(), nil)

	// No drain goroutine running: the third event has nowhere to go.
	rec.PageView(context.Background(), "/a")
	rec.PageView(context.Background(), "/b")
	rec.PageView(context.Background(), "/c")

	runCtx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = rec.Run(runCtx)

	assert.Equal(t, 2, store.Len(), "overflow events are dropped, not queued")
}

// flakyStore fails the first n Append calls and succeeds afterwards.
type flakyStore struct {
	mu       sync.Mutex
	failures int
	calls    int
	appended []Event
}

func (s *flakyStore) Append(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("transient store failure")
	}
	s.appended = append(s.appended, event)
	return nil
}

func (s *flakyStore) ListRecent(ctx context.Context, limit, offset int) ([]Event, error) {
	return nil, nil
}

func (s *flakyStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *flakyStore) appendedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appended)
}

func TestAppendRetriesTransientFailures(t *testing.T) {
	store := &flakyStore{failures: 2}
	rec := NewRecorder(store, 8, discardLogger(), nil)

	rec.PageView(context.Background(), "/checkout")

	runCtx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(500 * time.Millisecond)
		cancel()
	}()
	_ = rec.Run(runCtx)

	assert.Equal(t, 3, store.callCount())
	assert.Equal(t, 1, store.appendedCount(), "third attempt succeeds")
}

func TestAppendGivesUpAfterRetriesExhausted(t *testing.T) {
	store := &flakyStore{failures: 10}
	rec := NewRecorder(store, 8, discardLogger(), nil)

	rec.PageView(context.Background(), "/checkout")

	runCtx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(500 * time.Millisecond)
		cancel()
	}()
	_ = rec.Run(runCtx)

	assert.Equal(t, 3, store.callCount(), "exactly three attempts, then dropped")
	assert.Equal(t, 0, store.appendedCount())
}

func TestRunFlushesQueuedEventsOnShutdown(t *testing.T) {
	store := NewInMemoryStore()
	rec := NewRecorder(store, 16, discardLogger(), nil)

	for i := 0; i < 5; i++ {
		rec.PageView(context.Background(), "/products")
	}

	// Cancelled before Run starts: everything lands via the shutdown flush.
	runCtx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rec.Run(runCtx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, store.Len())
}

func TestSeverityForEventType(t *testing.T) {
	assert.Equal(t, SeverityHigh, SeverityFor(EventSecurityViolation))
	assert.Equal(t, SeverityMedium, SeverityFor(EventRateLimitExceeded))
	assert.Equal(t, SeverityMedium, SeverityFor(EventPageView))
}

func TestSecurityIncidentPayload(t *testing.T) {
	store := NewInMemoryStore()
	rec := NewRecorder(store, 8, discardLogger(), nil)

	rec.SecurityIncident(context.Background(), EventRateLimitExceeded, "addToCart burst")

	runCtx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = rec.Run(runCtx)

	events, err := store.ListRecent(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "security", events[0].SubjectTable)
	assert.Equal(t, string(SeverityMedium), events[0].Payload["severity"])
	assert.Equal(t, "addToCart burst", events[0].Payload["detail"])
}
