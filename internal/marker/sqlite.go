package marker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS cache_version (
	id TEXT PRIMARY KEY,
	last_updated_at INTEGER NOT NULL
)`

// SQLStore keeps the marker in one row of the cache_version table.
type SQLStore struct {
	db *sql.DB
	id string
}

// OpenSQLite opens (creating if needed) a SQLite database shared by every process on the host.
func OpenSQLite(ctx context.Context, path, id string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	store, err := NewSQLStore(ctx, db, id)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore uses an already opened database and ensures the table exists.
func NewSQLStore(ctx context.Context, db *sql.DB, id string) (*SQLStore, error) {
	if id == "" {
		return nil, fmt.Errorf("marker id is required")
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping marker db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create cache_version table: %w", err)
	}
	return &SQLStore{db: db, id: id}, nil
}

func (s *SQLStore) LastUpdatedAt(ctx context.Context) (time.Time, error) {
	var nanos int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_updated_at FROM cache_version WHERE id = ?`, s.id,
	).Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read marker %s: %w", s.id, err)
	}
	return time.Unix(0, nanos), nil
}

func (s *SQLStore) Bump(ctx context.Context, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_version (id, last_updated_at) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET last_updated_at = MAX(last_updated_at, excluded.last_updated_at)`,
		s.id, at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("bump marker %s: %w", s.id, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
