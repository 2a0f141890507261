// Package postgres provides the PostgreSQL-backed vocabulary and check
// journal for wordgate.
//
// Both share a single [pgxpool.Pool]. [Migrate] creates the tables on start.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	_, _ = store.Seed(ctx, cfg.Vocabulary.Vocabulary())
//	v, _ := store.Load(ctx)
//	_ = store.Write(ctx, rec)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlVocabulary = `
CREATE TABLE IF NOT EXISTS vocabulary (
    position    INTEGER      PRIMARY KEY,
    word        TEXT         NOT NULL UNIQUE,
    answer      TEXT         NOT NULL,
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

const ddlChecks = `
CREATE TABLE IF NOT EXISTS checks (
    id              TEXT         PRIMARY KEY,
    correlation_id  TEXT         NOT NULL DEFAULT '',
    content_type    TEXT         NOT NULL DEFAULT '',
    bytes           INTEGER      NOT NULL DEFAULT 0,
    provider        TEXT         NOT NULL DEFAULT '',
    transcript      TEXT         NOT NULL DEFAULT '',
    normalized      TEXT         NOT NULL DEFAULT '',
    status          TEXT         NOT NULL,
    message         TEXT         NOT NULL DEFAULT '',
    latency_ns      BIGINT       NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_checks_created_at
    ON checks (created_at DESC);

CREATE INDEX IF NOT EXISTS idx_checks_status
    ON checks (status);
`

// Migrate creates or ensures all required tables exist. It is idempotent and
// safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlVocabulary, ddlChecks} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
