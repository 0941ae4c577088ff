package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"vitrine/pkg/sentinel"
)

// uniqueViolation is the Postgres error code raised by the carts identity
// unique index when two first-time creates race.
const uniqueViolation = "23505"

// PostgresStore persists carts and their lines. The carts table carries a
// unique index over (user_id, session_id); FindOrCreate treats a violation of
// that index as the benign lost-create race and reselects the winner's row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindOrCreate(ctx context.Context, identity Identity) (Cart, error) {
	if !identity.Valid() {
		return Cart{}, sentinel.ErrInvalidState
	}

	cart, err := s.findByIdentity(ctx, identity)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return Cart{}, err
	}

	cart = Cart{ID: uuid.NewString(), Identity: identity}
	query := `
		INSERT INTO carts (id, user_id, session_id, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING created_at
	`
	err = s.db.QueryRowContext(ctx, query,
		cart.ID,
		nullable(identity.UserID),
		nullable(identity.SessionID),
	).Scan(&cart.CreatedAt)
	if err == nil {
		return cart, nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		// Lost the create race: the row now exists, use it.
		return s.findByIdentity(ctx, identity)
	}
	return Cart{}, fmt.Errorf("insert cart: %w", err)
}

func (s *PostgresStore) findByIdentity(ctx context.Context, identity Identity) (Cart, error) {
	var (
		cart      = Cart{Identity: identity}
		userID    sql.NullString
		sessionID sql.NullString
	)
	query := `
		SELECT id, user_id, session_id, created_at
		FROM carts
		WHERE user_id IS NOT DISTINCT FROM $1
		  AND session_id IS NOT DISTINCT FROM $2
	`
	err := s.db.QueryRowContext(ctx, query,
		nullable(identity.UserID),
		nullable(identity.SessionID),
	).Scan(&cart.ID, &userID, &sessionID, &cart.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Cart{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Cart{}, fmt.Errorf("find cart: %w", err)
	}
	return cart, nil
}

func (s *PostgresStore) ListItems(ctx context.Context, cartID string) ([]Item, error) {
	query := `
		SELECT id, cart_id, product_id, variant_id, quantity, unit_price_cents, created_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.VariantID,
			&item.Quantity, &item.UnitPrice, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) FindItem(ctx context.Context, cartID, productID, variantID string) (Item, error) {
	var item Item
	query := `
		SELECT id, cart_id, product_id, variant_id, quantity, unit_price_cents, created_at
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2 AND variant_id = $3
	`
	err := s.db.QueryRowContext(ctx, query, cartID, productID, variantID).Scan(
		&item.ID, &item.CartID, &item.ProductID, &item.VariantID,
		&item.Quantity, &item.UnitPrice, &item.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("find cart item: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertItem(ctx context.Context, item Item) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, variant_id, quantity, unit_price_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ID, item.CartID, item.ProductID, item.VariantID, item.Quantity, item.UnitPrice,
	)
	if err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $1 WHERE cart_id = $2 AND id = $3`,
		quantity, cartID, itemID,
	)
	if err != nil {
		return fmt.Errorf("update cart item quantity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cart item quantity: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteItem(ctx context.Context, cartID, itemID string) error {
	// Idempotent: zero rows affected means the line was already gone.
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`,
		cartID, itemID,
	)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteItems(ctx context.Context, cartID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
