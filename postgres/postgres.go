// Package postgres provides a pgx-backed Store for deployments that want
// sessions to survive restarts.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/storyassist"
)

// PGStore implements storyassist.Store on a PostgreSQL pool.
type PGStore struct {
	db *pgxpool.Pool
}

// New creates a PGStore on the given pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Ensure PGStore implements storyassist.Store at compile time.
var _ storyassist.Store = (*PGStore)(nil)
