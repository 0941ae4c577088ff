// Package session establishes a stable anonymous identity for storefront
// guests. Authenticated identity is supplied externally (see internal/identity)
// and always supersedes the guest session; the two are never merged.
package session

import (
	"context"
	"time"
)

// DefaultTTL is the guest session lifetime when configuration does not
// override it.
const DefaultTTL = 24 * time.Hour

// Token is the anonymous session identity for one browser/device context.
// Exactly one live token exists per context at a time.
type Token struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is past its absolute expiry.
func (t Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Store persists session tokens keyed by token ID. Implementations respect
// expiry on read: a token past its TTL may be reported as ErrNotFound.
type Store interface {
	Get(ctx context.Context, id string) (Token, error)
	Put(ctx context.Context, token Token) error
	Delete(ctx context.Context, id string) error
}
