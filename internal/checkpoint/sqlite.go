package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite keeps checkpoints in a single-file database, one row per step.
// Rows are keyed by scope so many transcripts can share one cache file
// without trampling each other. The scope must be stable across reruns of
// the same transcript or resume never hits.
type SQLite struct {
	db    *sql.DB
	scope string
}

func NewSQLite(path, scope string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	s := &SQLite{db: db, scope: scope}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS checkpoints (
		scope      TEXT NOT NULL,
		step       TEXT NOT NULL,
		payload    BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (scope, step)
	)`)
	if err != nil {
		return fmt.Errorf("migrate checkpoint db: %w", err)
	}
	return nil
}

func (s *SQLite) Save(ctx context.Context, step string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO checkpoints (scope, step, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (scope, step) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		s.scope, step, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", step, err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, step string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM checkpoints WHERE scope = ? AND step = ?`,
		s.scope, step).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", step, err)
	}
	return payload, nil
}

func (s *SQLite) ClearAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE scope = ?`, s.scope)
	if err != nil {
		return fmt.Errorf("clear checkpoints: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
