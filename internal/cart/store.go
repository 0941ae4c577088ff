package cart

import "context"

// Store is the cart persistence boundary. Implementations must make
// FindOrCreate race-safe: two near-simultaneous first-time calls for the same
// identity must converge on one cart row (unique constraint + reselect), not
// two rows or an error.
type Store interface {
	FindOrCreate(ctx context.Context, identity Identity) (Cart, error)
	ListItems(ctx context.Context, cartID string) ([]Item, error)
	// FindItem locates a line by its (product, variant) pair within a cart,
	// returning sentinel.ErrNotFound when absent.
	FindItem(ctx context.Context, cartID, productID, variantID string) (Item, error)
	InsertItem(ctx context.Context, item Item) error
	UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error
	// DeleteItem is idempotent: deleting an absent line is not an error.
	DeleteItem(ctx context.Context, cartID, itemID string) error
	DeleteItems(ctx context.Context, cartID string) error
}

// PriceResolver supplies the unit price snapshot for a product variant.
// Pricing is owned by the catalog service; the cart only records the
// snapshot.
type PriceResolver interface {
	UnitPrice(ctx context.Context, productID, variantID string) (int64, error)
}

// StaticPriceResolver serves fixed prices. Used in development and tests.
type StaticPriceResolver map[string]int64

func (r StaticPriceResolver) UnitPrice(ctx context.Context, productID, variantID string) (int64, error) {
	if price, ok := r[productID+":"+variantID]; ok {
		return price, nil
	}
	return 0, nil
}
