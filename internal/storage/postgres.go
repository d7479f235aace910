// Package storage keeps the word list in PostgreSQL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeenvibes-dev/scribbleguess/internal"
)

var ErrUnexpectedDatabase = errors.New("unexpected database error")

const schema = `
CREATE TABLE IF NOT EXISTS words (
	word   TEXT PRIMARY KEY,
	weight INTEGER NOT NULL DEFAULT 1 CHECK (weight > 0)
)`

// PostgresWordStore reads and writes the words table.
type PostgresWordStore struct {
	pool *pgxpool.Pool
}

func NewPostgresWordStore(ctx context.Context, dsn string, maxConns int32) (*PostgresWordStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedDatabase, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrUnexpectedDatabase, err)
	}
	return &PostgresWordStore{pool: pool}, nil
}

func (s *PostgresWordStore) Close() {
	s.pool.Close()
}

// EnsureSchema creates the words table if it does not exist.
func (s *PostgresWordStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return wrap(err)
	}
	return nil
}

// LoadWords implements game.WordSource.
func (s *PostgresWordStore) LoadWords(ctx context.Context) ([]internal.Word, error) {
	rows, err := s.pool.Query(ctx, `SELECT word, weight FROM words ORDER BY word`)
	if err != nil {
		return nil, wrap(err)
	}

	words, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (internal.Word, error) {
		var w internal.Word
		err := row.Scan(&w.Word, &w.Count)
		return w, err
	})
	if err != nil {
		return nil, wrap(err)
	}
	return words, nil
}

// AddWords upserts the entries in one transaction. Words are stored
// uppercased; a weight below 1 is stored as 1. It returns how many rows
// were written.
func (s *PostgresWordStore) AddWords(ctx context.Context, words []internal.Word) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, w := range words {
		word := strings.ToUpper(strings.TrimSpace(w.Word))
		if word == "" {
			continue
		}
		batch.Queue(`INSERT INTO words (word, weight) VALUES ($1, $2)
			ON CONFLICT (word) DO UPDATE SET weight = EXCLUDED.weight`, word, max(w.Count, 1))
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, wrap(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, wrap(err)
	}
	return batch.Len(), nil
}

// Count returns the number of stored words.
func (s *PostgresWordStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM words`).Scan(&n); err != nil {
		return 0, wrap(err)
	}
	return n, nil
}

func wrap(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnexpectedDatabase, err)
}
