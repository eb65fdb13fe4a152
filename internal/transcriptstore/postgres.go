package transcriptstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore persists session transcripts in a transcript_entries
// table. All methods are safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore establishes a connection pool to the database at
// dsn and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("transcript store: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("transcript store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transcript store: ping: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("transcript store: migrate: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// migrate creates the transcript_entries table when missing.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	const q = `
		CREATE TABLE IF NOT EXISTS transcript_entries (
		    id           BIGSERIAL PRIMARY KEY,
		    session_id   TEXT        NOT NULL,
		    sentence_id  TEXT        NOT NULL,
		    text         TEXT        NOT NULL,
		    translation  TEXT        NOT NULL DEFAULT '',
		    from_lang    TEXT        NOT NULL,
		    to_lang      TEXT        NOT NULL,
		    played_at    TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS transcript_entries_session_idx
		    ON transcript_entries (session_id, played_at)`
	_, err := pool.Exec(ctx, q)
	return err
}

func (s *PostgresStore) Append(ctx context.Context, sessionID string, e Entry) error {
	const q = `
		INSERT INTO transcript_entries
		    (session_id, sentence_id, text, translation, from_lang, to_lang, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, q,
		sessionID,
		e.SentenceID,
		e.Text,
		e.Translation,
		e.FromLang,
		e.ToLang,
		e.PlayedAt,
	)
	if err != nil {
		return fmt.Errorf("transcript store: append: %w", err)
	}
	return nil
}

func (s *PostgresStore) Session(ctx context.Context, sessionID string) ([]Entry, error) {
	const q = `
		SELECT sentence_id, text, translation, from_lang, to_lang, played_at
		FROM   transcript_entries
		WHERE  session_id = $1
		ORDER  BY played_at`

	rows, err := s.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("transcript store: session: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.SentenceID, &e.Text, &e.Translation, &e.FromLang, &e.ToLang, &e.PlayedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("transcript store: scan rows: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Ping reports database reachability, for readiness checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
