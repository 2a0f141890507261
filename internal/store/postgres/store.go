package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/wordgate/internal/answer"
	"github.com/MrWong99/wordgate/internal/vocab"
)

// Compile-time interface checks.
var (
	_ vocab.Store    = (*Store)(nil)
	_ vocab.Replacer = (*Store)(nil)
	_ answer.Journal = (*Store)(nil)
)

// Store is the PostgreSQL-backed vocabulary and check journal. All operations
// are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn and runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
