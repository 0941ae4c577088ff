// Package customer is the admin console's read model over customer records.
// Sensitive fields never leave the handler unmasked unless the caller holds
// the elevated role or explicitly reveals a toggleable field, and every such
// access lands in the audit log.
package customer

import (
	"context"
	"time"
)

// Customer is one storefront customer record.
type Customer struct {
	ID        string
	Email     string
	Phone     string
	FullName  string
	Notes     string
	CreatedAt time.Time
}

// Store reads customer records. Writes happen elsewhere in the storefront's
// CRUD plumbing; this layer only renders and audits.
type Store interface {
	// FindByID returns sentinel.ErrNotFound for unknown IDs.
	FindByID(ctx context.Context, id string) (Customer, error)
}
