// Package storage provides persistent backends for the cache package.
package storage

import (
	"context"
	"dealspot-web/cache"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	entryPrefix = "entry-"
	entrySuffix = ".json"
)

// EntryName derives a filesystem- and object-safe name from a cache key.
// The encoding is reversible so Keys can report the original keys.
func EntryName(key string) string {
	return entryPrefix + hex.EncodeToString([]byte(key)) + entrySuffix
}

// KeyFromEntryName reverses EntryName. It returns false for foreign names.
func KeyFromEntryName(name string) (string, bool) {
	if !strings.HasPrefix(name, entryPrefix) || !strings.HasSuffix(name, entrySuffix) {
		return "", false
	}
	raw, err := hex.DecodeString(strings.TrimSuffix(strings.TrimPrefix(name, entryPrefix), entrySuffix))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// Local stores cache entries as files in a directory.
type Local struct {
	path   string
	logger *slog.Logger
}

// NewLocal creates the directory if needed and returns a backend over it.
func NewLocal(path string, logger *slog.Logger) (*Local, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create local storage directory: %w", err)
	}
	return &Local{path: path, logger: logger}, nil
}

// Get reads the entry for key.
func (l *Local) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.path, EntryName(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cache.ErrNotFound
		}
		return nil, fmt.Errorf("read from local storage: %w", err)
	}
	return data, nil
}

// Put writes the entry for key, replacing it atomically.
func (l *Local) Put(_ context.Context, key string, data []byte) error {
	final := filepath.Join(l.path, EntryName(key))
	tmp, err := os.CreateTemp(l.path, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write to local storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename into place: %w", err)
	}
	l.logger.Debug("Cache entry saved to local storage", "path", final)
	return nil
}

// Delete removes the entry for key.
func (l *Local) Delete(_ context.Context, key string) error {
	if err := os.Remove(filepath.Join(l.path, EntryName(key))); err != nil {
		if os.IsNotExist(err) {
			return cache.ErrNotFound
		}
		return fmt.Errorf("delete from local storage: %w", err)
	}
	return nil
}

// Keys lists the keys of every entry in the directory.
func (l *Local) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.path)
	if err != nil {
		return nil, fmt.Errorf("read local storage directory: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, ok := KeyFromEntryName(e.Name())
		if !ok {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// IsNotFound reports whether err means the entry does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, cache.ErrNotFound)
}
