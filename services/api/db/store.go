// Package db wraps all Postgres access for the ELN API behind a Store.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by mutation helpers whose target row is absent.
// Getters return a nil record instead.
var ErrNotFound = errors.New("record not found")

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// User represents an account row. Accounts are created on first login; the
// password never touches the database (LDAP or the dev list own it).
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

const ensureUserSQL = `
    INSERT INTO eln.users (username, role, created_at)
    VALUES ($1, $2, NOW())
    ON CONFLICT (username) DO UPDATE SET role = EXCLUDED.role
    RETURNING id, username, role, created_at
`

// EnsureUser upserts the account for a username, refreshing its role from
// the configured staff list on every login.
func (s *Store) EnsureUser(ctx context.Context, username, role string) (*User, error) {
	row := s.pool.QueryRow(ctx, ensureUserSQL, username, role)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

const getUserSQL = `
    SELECT id, username, role, created_at
    FROM eln.users
    WHERE id = $1
`

// GetUser returns the user with the given id, or nil when absent.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	row := s.pool.QueryRow(ctx, getUserSQL, id)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
