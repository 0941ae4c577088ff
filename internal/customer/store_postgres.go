package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vitrine/pkg/sentinel"
)

// PostgresStore reads customer records from the customers table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (Customer, error) {
	var c Customer
	query := `
		SELECT id, email, phone, full_name, notes, created_at
		FROM customers
		WHERE id = $1
	`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Email, &c.Phone, &c.FullName, &c.Notes, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Customer{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Customer{}, fmt.Errorf("find customer: %w", err)
	}
	return c, nil
}
