package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MrWong99/wordgate/pkg/game"
)

// Load implements [game.Source]. Words come back in position order.
func (s *Store) Load(ctx context.Context) (game.Vocabulary, error) {
	const q = `SELECT word, answer FROM vocabulary ORDER BY position`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return game.Vocabulary{}, fmt.Errorf("postgres store: load vocabulary: %w", err)
	}
	type pair struct{ word, answer string }
	pairs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pair, error) {
		var p pair
		err := row.Scan(&p.word, &p.answer)
		return p, err
	})
	if err != nil {
		return game.Vocabulary{}, fmt.Errorf("postgres store: scan vocabulary: %w", err)
	}

	v := game.Vocabulary{
		Words:   make([]string, 0, len(pairs)),
		Answers: make(map[string]string, len(pairs)),
	}
	for _, p := range pairs {
		v.Words = append(v.Words, p.word)
		v.Answers[p.word] = p.answer
	}
	return v, nil
}

// Replace validates v and swaps the stored vocabulary for it in one
// transaction.
func (s *Store) Replace(ctx context.Context, v game.Vocabulary) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("postgres store: replace vocabulary: %w", err)
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM vocabulary`); err != nil {
			return err
		}
		return insertWords(ctx, tx, v)
	})
	if err != nil {
		return fmt.Errorf("postgres store: replace vocabulary: %w", err)
	}
	return nil
}

// Seed stores v when the vocabulary table is empty. It reports whether rows
// were written; an existing vocabulary is left untouched.
func (s *Store) Seed(ctx context.Context, v game.Vocabulary) (bool, error) {
	if err := v.Validate(); err != nil {
		return false, fmt.Errorf("postgres store: seed vocabulary: %w", err)
	}
	seeded := false
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// Serialise concurrent seeders on the table.
		if _, err := tx.Exec(ctx, `LOCK TABLE vocabulary IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM vocabulary`).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		seeded = true
		return insertWords(ctx, tx, v)
	})
	if err != nil {
		return false, fmt.Errorf("postgres store: seed vocabulary: %w", err)
	}
	return seeded, nil
}

func insertWords(ctx context.Context, tx pgx.Tx, v game.Vocabulary) error {
	rows := make([][]any, len(v.Words))
	for i, w := range v.Words {
		rows[i] = []any{i, w, v.Answers[w]}
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"vocabulary"},
		[]string{"position", "word", "answer"},
		pgx.CopyFromRows(rows),
	)
	return err
}
