// Package ratelimit bounds write-heavy storefront actions with a process-local
// fixed-window counter. It is deliberately not distributed: state is lost on
// restart and not shared across instances. Abuse that must be stopped
// regardless of client behavior belongs to a server-side enforcement layer.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	startedAt time.Time
	duration  time.Duration
	count     int
}

// Limiter admits or rejects attempts per action key within a fixed window.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	clock   func() time.Time
}

type Option func(*Limiter)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether another attempt for actionKey fits within limit
// attempts per windowDur. The counter keeps incrementing past the limit so
// repeated abuse cannot reset the window early. Cross-actor isolation is the
// caller's responsibility via distinct keys.
func (l *Limiter) Allow(actionKey string, limit int, windowDur time.Duration) bool {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[actionKey]
	if !ok || now.Sub(w.startedAt) >= windowDur {
		l.windows[actionKey] = &window{startedAt: now, duration: windowDur, count: 1}
		return true
	}

	w.count++
	return w.count <= limit
}

// Reset clears the window for a key. Used by tests and admin tooling.
func (l *Limiter) Reset(actionKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, actionKey)
}

// Count returns the attempt count in the live window for a key, 0 when no
// window exists or it has elapsed.
func (l *Limiter) Count(actionKey string) int {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[actionKey]
	if !ok || now.Sub(w.startedAt) >= w.duration {
		return 0
	}
	return w.count
}
