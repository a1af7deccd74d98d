package session

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Index is the SQLite session index. It holds discovery and purge metadata
// only; corrupting or deleting it loses nothing the handoff records don't
// also carry.
type Index struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// IndexPath returns the index database path under a sessions root.
func IndexPath(root string) string {
	return filepath.Join(root, "index.db")
}

// OpenIndex opens (and migrates) the session index at the given path,
// creating parent directories as needed. WAL mode is enabled for
// concurrent reads.
func OpenIndex(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session index: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	idx := &Index{conn: conn, path: path}
	if err := idx.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return idx, nil
}

// Close closes the database connection.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.conn.Close()
}

// Path returns the index database path.
func (idx *Index) Path() string {
	return idx.path
}

func (idx *Index) migrate() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, err := idx.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	row := idx.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Sessions},
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := idx.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

const migrationV1Sessions = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	task TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	chunk_count INTEGER NOT NULL DEFAULT 1,
	started_at DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
`

// SessionRecord is one row of the session index.
type SessionRecord struct {
	ID          string
	Task        string
	Status      string
	ChunkCount  int
	StartedAt   time.Time
	CompletedAt *time.Time
}

// RecordSession inserts or replaces a session row.
func (idx *Index) RecordSession(rec SessionRecord) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var completed any
	if rec.CompletedAt != nil {
		completed = formatTime(*rec.CompletedAt)
	}
	_, err := idx.conn.Exec(`
		INSERT OR REPLACE INTO sessions (id, task, status, chunk_count, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Task, rec.Status, rec.ChunkCount, formatTime(rec.StartedAt), completed)
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}

// UpdateSessionStatus updates a session row's status, setting completed_at
// for terminal statuses.
func (idx *Index) UpdateSessionStatus(id, status string, completedAt *time.Time) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var completed any
	if completedAt != nil {
		completed = formatTime(*completedAt)
	}
	_, err := idx.conn.Exec(`
		UPDATE sessions SET status = ?, completed_at = ? WHERE id = ?
	`, status, completed, id)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return nil
}

// ListSessions returns all rows, newest first.
func (idx *Index) ListSessions() ([]SessionRecord, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.conn.Query(`
		SELECT id, task, status, chunk_count, started_at, completed_at
		FROM sessions ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var recs []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var started string
		var completed sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Task, &rec.Status, &rec.ChunkCount, &started, &completed); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		if rec.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		rec.CompletedAt = parseNullableTime(completed)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// PurgeOlderThan deletes rows whose session started before the retention
// window and returns their ids so the caller can remove the directories.
func (idx *Index) PurgeOlderThan(retention time.Duration) ([]string, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	cutoff := formatTime(time.Now().Add(-retention))

	rows, err := idx.conn.Query(`SELECT id FROM sessions WHERE started_at < ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("select old sessions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := idx.conn.Exec(`DELETE FROM sessions WHERE started_at < ?`, cutoff); err != nil {
		return nil, fmt.Errorf("purge old sessions: %w", err)
	}
	return ids, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil
	}
	return &t
}
