// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/lumia-app/mia-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("history index is closed")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// SCHEMA
// =============================================================================

// schema holds a denormalized copy of the chat transcript. Rebuild
// replaces the whole thing, so there are no migrations to manage.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id    TEXT PRIMARY KEY,
	title TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	timestamp  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);

CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// =============================================================================
// INDEX
// =============================================================================

// Index is a searchable copy of all chat messages.
type Index struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool

	lastRebuilt  time.Time
	messageCount int
}

// Open opens (or creates) the index database at path. Pass ":memory:"
// for an ephemeral index.
func Open(path string) (*Index, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	idx := &Index{db: db, path: path}
	idx.loadStats()
	return idx, nil
}

// Close closes the index and releases the database handle.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil
	}
	idx.closed = true
	return idx.db.Close()
}

// =============================================================================
// REBUILD
// =============================================================================

// Rebuild replaces the index contents with the given sessions in a
// single transaction. Sessions come from a store snapshot, so the
// slice is already a deep copy and safe to read without locking.
func (idx *Index) Rebuild(sessions []*model.ChatSession) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return ErrClosed
	}

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages"); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM sessions"); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	sessStmt, err := tx.Prepare("INSERT INTO sessions (id, title) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer sessStmt.Close()

	msgStmt, err := tx.Prepare(`
		INSERT INTO messages (id, session_id, position, role, content, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer msgStmt.Close()

	var count int
	for _, sess := range sessions {
		if _, err := sessStmt.Exec(sess.ID, sess.Title); err != nil {
			return fmt.Errorf("failed to insert session %s: %w", sess.ID, err)
		}
		for i, msg := range sess.Messages {
			if _, err := msgStmt.Exec(msg.ID, sess.ID, i, string(msg.Role), msg.Content, msg.Timestamp); err != nil {
				return fmt.Errorf("failed to insert message %s: %w", msg.ID, err)
			}
			count++
		}
	}

	now := time.Now()
	if _, err := tx.Exec(
		"INSERT INTO metadata (key, value) VALUES ('last_rebuild', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		now.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("failed to record rebuild time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebuild: %w", err)
	}

	idx.lastRebuilt = now
	idx.messageCount = count
	return nil
}

// loadStats restores counters from an existing database. Failures are
// non-fatal; the counters just stay zero until the next rebuild.
func (idx *Index) loadStats() {
	var raw string
	if err := idx.db.QueryRow("SELECT value FROM metadata WHERE key = 'last_rebuild'").Scan(&raw); err == nil {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			idx.lastRebuilt = t
		}
	}
	idx.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&idx.messageCount)
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats describes the index contents.
type Stats struct {
	MessageCount int
	LastRebuilt  time.Time
}

// Stats returns current index statistics.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return Stats{
		MessageCount: idx.messageCount,
		LastRebuilt:  idx.lastRebuilt,
	}
}
