package trajectory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	time TEXT NOT NULL,
	type TEXT NOT NULL,
	role TEXT,
	content TEXT,
	tool_name TEXT,
	tool_call_id TEXT,
	success INTEGER,
	error TEXT,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
`

// SQLiteRecorder persists events to a local SQLite database.
type SQLiteRecorder struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteRecorder opens the database at path and ensures the events table
// exists.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create trajectory directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trajectory database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize trajectory schema: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

// Record inserts one event row. Failures are swallowed; the audit trail is
// best-effort by contract.
func (r *SQLiteRecorder) Record(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	var metadata []byte
	if len(event.Metadata) > 0 {
		metadata, _ = json.Marshal(event.Metadata)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = r.db.Exec(
		`INSERT INTO events (time, type, role, content, tool_name, tool_call_id, success, error, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.Time.Format(time.RFC3339Nano),
		event.Type,
		event.Role,
		event.Content,
		event.ToolName,
		event.ToolCallID,
		event.Success,
		event.Error,
		string(metadata),
	)
}

// Count returns the number of recorded events.
func (r *SQLiteRecorder) Count() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (r *SQLiteRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Close()
}
