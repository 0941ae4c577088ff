package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vitrine/internal/platform/metrics"
	"vitrine/pkg/requestcontext"
	"vitrine/pkg/sentinel"
)

// Resolver produces the current guest session token: idempotent within the
// expiry window, rotating on expiry. When the backing store is unavailable it
// falls back to process-local tokens rather than failing the caller; those
// tokens do not survive a restart.
type Resolver struct {
	store   Store
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	onRotate func(ctx context.Context, oldID, newID string)

	mu       sync.Mutex
	fallback map[string]Token
}

// SetRotationHook registers a callback invoked after an expired token is
// replaced, carrying the old and new token IDs. Used to feed the audit log
// without coupling this package to the recorder.
func (r *Resolver) SetRotationHook(hook func(ctx context.Context, oldID, newID string)) {
	r.onRotate = hook
}

func NewResolver(store Store, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{
		store:    store,
		ttl:      ttl,
		logger:   logger,
		metrics:  m,
		fallback: make(map[string]Token),
	}
}

// Resolve returns the live token for the presented session ID, minting a
// fresh one when the ID is empty, unknown, or expired. A rotated token does
// not inherit the old token's cart association; that loss is accepted
// behavior, not a bug.
func (r *Resolver) Resolve(ctx context.Context, presented string) Token {
	now := requestcontext.Now(ctx)

	rotatedFrom := ""
	if presented != "" {
		tok, err := r.store.Get(ctx, presented)
		switch {
		case err == nil && !tok.Expired(now):
			return tok
		case err == nil:
			// Expired: discard and rotate. Deletion failure is harmless,
			// the store's TTL reaps it eventually.
			if delErr := r.store.Delete(ctx, presented); delErr != nil {
				r.logger.DebugContext(ctx, "failed to delete expired session token", "error", delErr)
			}
			if r.metrics != nil {
				r.metrics.SessionsRotated.Inc()
			}
			r.logger.DebugContext(ctx, "guest session expired, rotating",
				"old_session", presented,
			)
			rotatedFrom = presented
		case errors.Is(err, sentinel.ErrNotFound):
			// Unknown ID, mint below.
		default:
			return r.resolveFallback(ctx, presented, now)
		}
	}

	tok := r.mint(ctx, now)
	if rotatedFrom != "" && r.onRotate != nil {
		r.onRotate(ctx, rotatedFrom, tok.ID)
	}
	return tok
}

func (r *Resolver) mint(ctx context.Context, now time.Time) Token {
	tok := Token{
		ID:        newTokenID(),
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}
	if err := r.store.Put(ctx, tok); err != nil {
		r.logger.WarnContext(ctx, "session store unavailable, using in-memory token",
			"error", err,
		)
		r.mu.Lock()
		r.fallback[tok.ID] = tok
		r.mu.Unlock()
	}
	if r.metrics != nil {
		r.metrics.SessionsMinted.Inc()
	}
	return tok
}

// resolveFallback serves tokens from process memory while the store is down.
func (r *Resolver) resolveFallback(ctx context.Context, presented string, now time.Time) Token {
	r.mu.Lock()
	tok, ok := r.fallback[presented]
	if ok && !tok.Expired(now) {
		r.mu.Unlock()
		return tok
	}
	if ok {
		delete(r.fallback, presented)
	}
	r.mu.Unlock()
	return r.mint(ctx, now)
}

// newTokenID draws 128 bits from crypto/rand. A predictable counter or
// timestamp would let one guest forge another guest's cart identity.
func newTokenID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure means the process is unusable.
		panic(fmt.Sprintf("session: crypto/rand unavailable: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
