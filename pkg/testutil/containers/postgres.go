//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema mirrors the production tables. Integration tests run against a
// throwaway database, so the schema is applied on container start rather
// than through a migration tool.
const schema = `
CREATE TABLE IF NOT EXISTS carts (
	id         UUID PRIMARY KEY,
	user_id    TEXT,
	session_id TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT carts_one_identity CHECK (
		(user_id IS NULL) != (session_id IS NULL)
	)
);
CREATE UNIQUE INDEX IF NOT EXISTS carts_identity_idx
	ON carts (COALESCE(user_id, ''), COALESCE(session_id, ''));

CREATE TABLE IF NOT EXISTS cart_items (
	id               UUID PRIMARY KEY,
	cart_id          UUID NOT NULL REFERENCES carts (id) ON DELETE CASCADE,
	product_id       TEXT NOT NULL,
	variant_id       TEXT NOT NULL,
	quantity         INT NOT NULL CHECK (quantity BETWEEN 1 AND 99),
	unit_price_cents BIGINT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (cart_id, product_id, variant_id)
);

CREATE TABLE IF NOT EXISTS audit_events (
	id                UUID PRIMARY KEY,
	seq               BIGSERIAL,
	actor_id          TEXT NOT NULL,
	event_type        TEXT NOT NULL,
	subject_table     TEXT NOT NULL,
	subject_record_id TEXT,
	payload           JSONB,
	user_agent        TEXT NOT NULL DEFAULT '',
	client_ip         TEXT NOT NULL DEFAULT '',
	device            TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS audit_events_recent_idx
	ON audit_events (created_at DESC, seq DESC);

CREATE TABLE IF NOT EXISTS customers (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL,
	phone      TEXT NOT NULL DEFAULT '',
	full_name  TEXT NOT NULL,
	notes      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_roles (
	user_id TEXT NOT NULL,
	role    TEXT NOT NULL,
	PRIMARY KEY (user_id, role)
);
`

// PostgresContainer wraps a testcontainers Postgres instance with the
// application schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("vitrine_test"),
		tcpostgres.WithUsername("vitrine"),
		tcpostgres.WithPassword("vitrine"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// TruncateTables empties the named tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
