package modelstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"supportbot/internal/domain"
)

// SQLite keeps blobs in a single-table database, one row per engine kind.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and creates if needed) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS model_blobs (
		kind TEXT PRIMARY KEY,
		blob BLOB NOT NULL,
		saved_at INTEGER NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) Name() string { return "sqlite" }

// Save replaces the row for kind in one statement.
func (s *SQLite) Save(ctx context.Context, kind domain.Kind, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO model_blobs (kind, blob, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET blob = excluded.blob, saved_at = excluded.saved_at`,
		string(kind), blob, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite save %s: %w", kind, err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, kind domain.Kind) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM model_blobs WHERE kind = ?`, string(kind)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", kind, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite load %s: %w", kind, err)
	}
	return blob, nil
}

func (s *SQLite) Close() error { return s.db.Close() }
