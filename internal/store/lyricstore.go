package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/sethziin/stc/internal/core"
)

// LyricStore persists found lyric sets to sqlite so a restart does not throw
// away every resolved track. Only non-empty sets are persisted; confirmed
// "no lyrics" results stay in the short-TTL memory cache.
type LyricStore struct {
	db     *sql.DB
	logger *zap.Logger
}

const lyricSchema = `
CREATE TABLE IF NOT EXISTS lyrics (
	key      TEXT PRIMARY KEY,
	lines    TEXT NOT NULL,
	saved_at INTEGER NOT NULL
);`

// OpenLyricStore opens (and if needed initializes) the lyric database at path.
func OpenLyricStore(path string, logger *zap.Logger) (*LyricStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lyric store: %w", err)
	}

	if _, err := db.Exec(lyricSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize lyric store schema: %w", err)
	}

	return &LyricStore{db: db, logger: logger}, nil
}

// Get returns the persisted lyric set for a normalized key, if any.
func (s *LyricStore) Get(ctx context.Context, key string) (core.LyricSet, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT lines FROM lyrics WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read lyric store: %w", err)
	}

	var set core.LyricSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		// A corrupt row is not worth failing resolution over; drop it.
		s.logger.Warn("Dropping corrupt lyric store row", zap.String("key", key), zap.Error(err))
		_, _ = s.db.ExecContext(ctx, `DELETE FROM lyrics WHERE key = ?`, key)
		return nil, false, nil
	}

	return set, true, nil
}

// Put persists a non-empty lyric set under its normalized key.
func (s *LyricStore) Put(ctx context.Context, key string, set core.LyricSet) error {
	if len(set) == 0 {
		return nil
	}

	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode lyric set: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO lyrics (key, lines, saved_at) VALUES (?, ?, ?)`,
		key, string(raw), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write lyric store: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *LyricStore) Close() error {
	return s.db.Close()
}
