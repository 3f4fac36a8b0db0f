// Package audit persists an invocation audit trail in SQLite. The
// store subscribes to engine events and writes one row per terminal
// invocation outcome.
//
// Usage:
//
//	store, err := audit.Open("/var/lib/verbs/audit.db")
//	if err != nil { ... }
//	defer store.Close()
//	engine.Subscribe(store.HandleEvent)
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/nounverse/verbs/pkg/tool"
)

// Entry is one audited invocation outcome.
type Entry struct {
	ID           int64     `json:"id"`
	InvocationID string    `json:"invocation_id"`
	Tool         string    `json:"tool"`
	Actor        string    `json:"actor"`
	Class        string    `json:"class"`
	Status       string    `json:"status"`
	ErrorCode    string    `json:"error_code,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is a SQLite-backed audit trail.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the audit database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	log.Debug().Str("path", path).Msg("Audit store opened")

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS invocations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			invocation_id TEXT NOT NULL,
			tool TEXT NOT NULL,
			actor TEXT NOT NULL,
			class TEXT NOT NULL,
			status TEXT NOT NULL,
			error_code TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_invocations_tool ON invocations(tool);
		CREATE INDEX IF NOT EXISTS idx_invocations_created ON invocations(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// HandleEvent records terminal invocation events. Non-terminal events
// are ignored, so it can be subscribed to the engine directly.
func (s *Store) HandleEvent(ev tool.Event) {
	var status string
	switch ev.Type {
	case tool.EventInvocationCompleted:
		status = "completed"
	case tool.EventInvocationFailed:
		status = "failed"
	default:
		return
	}

	entry := Entry{
		InvocationID: ev.InvocationID,
		Tool:         ev.Tool,
		Actor:        ev.Actor,
		Class:        string(ev.Class),
		Status:       status,
		CreatedAt:    ev.Timestamp,
	}
	if code, ok := ev.Data["error_code"].(string); ok {
		entry.ErrorCode = code
	}
	if ms, ok := ev.Data["duration_ms"].(int64); ok {
		entry.DurationMs = ms
	}

	if err := s.Record(entry); err != nil {
		log.Error().
			Err(err).
			Str("invocation_id", ev.InvocationID).
			Msg("Failed to record audit entry")
	}
}

// Record inserts one entry. A zero CreatedAt is set to now.
func (s *Store) Record(e Entry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO invocations (invocation_id, tool, actor, class, status, error_code, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.InvocationID, e.Tool, e.Actor, e.Class, e.Status, e.ErrorCode, e.DurationMs, createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, invocation_id, tool, actor, class, status, error_code, duration_ms, created_at
		FROM invocations
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// ByTool returns the newest entries for one tool, newest first.
func (s *Store) ByTool(toolID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, invocation_id, tool, actor, class, status, error_code, duration_ms, created_at
		FROM invocations
		WHERE tool = ?
		ORDER BY id DESC
		LIMIT ?`, toolID, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// Count returns the total number of entries.
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM invocations").Scan(&count)
	return count, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.InvocationID, &e.Tool, &e.Actor, &e.Class,
			&e.Status, &e.ErrorCode, &e.DurationMs, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
