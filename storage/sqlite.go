package storage

import (
	"context"
	"database/sql"
	"dealspot-web/cache"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3" // register sqlite3 driver
)

// SQLite stores cache entries in a single key/value table.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection avoids "database is locked".
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache_entry (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache_entry table: %w", err)
	}
	logger.Debug("SQLite cache backend ready", "path", path)
	return &SQLite{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get reads the entry for key.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM cache_entry WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select cache entry: %w", err)
	}
	return data, nil
}

// Put upserts the entry for key.
func (s *SQLite) Put(ctx context.Context, key string, data []byte) error {
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO cache_entry(key, data) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET data = excluded.data",
		key, data); err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry for key.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cache_entry WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return cache.ErrNotFound
	}
	return nil
}

// Keys lists every stored key.
func (s *SQLite) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM cache_entry")
	if err != nil {
		return nil, fmt.Errorf("select cache keys: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("Failed to close rows", "error", err)
		}
	}()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan cache key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache keys: %w", err)
	}
	return keys, nil
}
