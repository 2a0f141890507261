package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MrWong99/wordgate/internal/answer"
)

// Write implements [answer.Journal].
func (s *Store) Write(ctx context.Context, rec answer.Record) error {
	const q = `
		INSERT INTO checks
		    (id, correlation_id, content_type, bytes, provider, transcript,
		     normalized, status, message, latency_ns, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.pool.Exec(ctx, q,
		rec.ID,
		rec.CorrelationID,
		rec.ContentType,
		rec.Bytes,
		rec.Provider,
		rec.Transcript,
		rec.Normalized,
		rec.Status,
		rec.Message,
		rec.Latency.Nanoseconds(),
		at,
	)
	if err != nil {
		return fmt.Errorf("postgres store: write check: %w", err)
	}
	return nil
}

// Recent implements [answer.Journal]. A non-positive limit returns every
// record.
func (s *Store) Recent(ctx context.Context, limit int) ([]answer.Record, error) {
	q := `
		SELECT id, correlation_id, content_type, bytes, provider, transcript,
		       normalized, status, message, latency_ns, created_at
		FROM   checks
		ORDER  BY created_at DESC, id`

	var args []any
	if limit > 0 {
		q += "\n\t\tLIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: recent checks: %w", err)
	}
	return collectRecords(rows)
}

// collectRecords scans pgx rows into check records.
func collectRecords(rows pgx.Rows) ([]answer.Record, error) {
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (answer.Record, error) {
		var (
			r         answer.Record
			latencyNS int64
		)
		if err := row.Scan(
			&r.ID,
			&r.CorrelationID,
			&r.ContentType,
			&r.Bytes,
			&r.Provider,
			&r.Transcript,
			&r.Normalized,
			&r.Status,
			&r.Message,
			&latencyNS,
			&r.At,
		); err != nil {
			return answer.Record{}, err
		}
		r.Latency = time.Duration(latencyNS)
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan checks: %w", err)
	}
	if recs == nil {
		recs = []answer.Record{}
	}
	return recs, nil
}
