// Package cart orchestrates the storefront cart's mutations behind the
// access-control layer: identity resolution, rate limiting and validation
// wrap every write, and sensitive accesses are reported to the audit
// recorder.
package cart

import (
	"time"

	"vitrine/pkg/requestcontext"
)

// MaxQuantity caps any single cart line.
const MaxQuantity = 99

// Identity is the key a cart aggregate is looked up or created under: either
// an authenticated user or an anonymous guest session, never both. For a
// given identity there is never more than one cart row; the store's
// uniqueness constraint enforces it.
type Identity struct {
	UserID    string
	SessionID string
}

// IdentityForActor derives the cart identity from the request actor.
func IdentityForActor(a requestcontext.Actor) Identity {
	if a.UserID != "" {
		return Identity{UserID: a.UserID}
	}
	return Identity{SessionID: a.SessionID}
}

// Valid reports whether exactly one identity component is set.
func (i Identity) Valid() bool {
	return (i.UserID != "") != (i.SessionID != "")
}

// Key returns the canonical lookup key for this identity.
func (i Identity) Key() string {
	if i.UserID != "" {
		return "user:" + i.UserID
	}
	return "session:" + i.SessionID
}

// Cart is the aggregate root, one row per identity.
type Cart struct {
	ID        string    `json:"id"`
	Identity  Identity  `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is one cart line. UnitPrice is a snapshot in cents taken when the
// line was created; pricing computation itself is external.
type Item struct {
	ID        string    `json:"id"`
	CartID    string    `json:"cart_id"`
	ProductID string    `json:"product_id"`
	VariantID string    `json:"variant_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unit_price_cents"`
	CreatedAt time.Time `json:"created_at"`
}

// State tracks the coordinator's lifecycle over one cart aggregate.
type State string

const (
	StateUninitialized     State = "uninitialized"
	StateResolvingIdentity State = "resolving_identity"
	StateLoading           State = "loading"
	StateReady             State = "ready"
)
