package privacy

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// RoleElevated is the role that unmasks sensitive fields in the admin console.
const RoleElevated = "support_admin"

// RoleChecker answers whether an actor holds a role. Treated as eventually
// consistent: callers re-check on every render instead of caching.
type RoleChecker interface {
	HasRole(ctx context.Context, actorID, role string) (bool, error)
}

// PostgresRoleChecker looks roles up in the user_roles table.
type PostgresRoleChecker struct {
	db *sql.DB
}

func NewPostgresRoleChecker(db *sql.DB) *PostgresRoleChecker {
	return &PostgresRoleChecker{db: db}
}

func (c *PostgresRoleChecker) HasRole(ctx context.Context, actorID, role string) (bool, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`,
		actorID, role,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return exists, nil
}

// StaticRoleChecker serves fixed role grants. Used in development and tests.
type StaticRoleChecker struct {
	mu     sync.RWMutex
	grants map[string]map[string]bool
}

func NewStaticRoleChecker() *StaticRoleChecker {
	return &StaticRoleChecker{grants: make(map[string]map[string]bool)}
}

// Grant assigns a role to an actor.
func (c *StaticRoleChecker) Grant(actorID, role string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.grants[actorID] == nil {
		c.grants[actorID] = make(map[string]bool)
	}
	c.grants[actorID][role] = true
}

// Revoke removes a role from an actor. Takes effect on the next render.
func (c *StaticRoleChecker) Revoke(actorID, role string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.grants[actorID], role)
}

func (c *StaticRoleChecker) HasRole(ctx context.Context, actorID, role string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.grants[actorID][role], nil
}
