package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/adierro/courtscan/internal/core/ports"
)

// Store bundles the pgx-backed repositories and implements
// ports.UnitOfWork on top of pgx transactions.
type Store struct {
	db *DB
}

// NewStore creates a Store over a connection pool.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func newRepositories(q querier) ports.Repositories {
	return ports.Repositories{
		Tiles:      &TileRepo{q: q},
		Detections: &DetectionRepo{q: q},
		Courts:     &CourtRepo{q: q},
		Feedback:   &FeedbackRepo{q: q},
		Scans:      &ScanRepo{q: q},
	}
}

// Repos returns pool-backed repositories for non-transactional access.
func (s *Store) Repos() ports.Repositories {
	return newRepositories(s.db.Pool)
}

// Do runs fn inside one transaction. Any error rolls everything back.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx ports.Repositories) error) error {
	return pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		return fn(ctx, newRepositories(tx))
	})
}
