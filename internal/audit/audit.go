// ABOUTME: SQLite-backed append-only log of tool invocations.
// ABOUTME: Recording is asynchronous and never surfaces failures to callers.

// Package audit persists one row per tools/call outcome for operators
// who need to answer "which tools did this agent touch". Disabled
// entirely when no path is configured.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/orbitalci/orbital-mcp/internal/engine"
)

// Entry is one recorded tool invocation.
type Entry struct {
	ID         string
	RequestID  string
	ToolName   string
	AccountID  string
	IsError    bool
	DurationMS int64
	CreatedAt  time.Time
}

// Store writes and reads audit entries. Safe for concurrent use; writes
// happen on background goroutines with their own timeout.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the audit database at path. Parent directories
// are created and the schema is bootstrapped if needed.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "audit")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating audit directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	// WAL keeps concurrent readers from blocking the writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS tool_calls (
	id          TEXT PRIMARY KEY,
	request_id  TEXT NOT NULL,
	tool_name   TEXT NOT NULL,
	account_id  TEXT NOT NULL DEFAULT '',
	is_error    INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tool_calls_created_at ON tool_calls(created_at);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record implements engine.Recorder. The insert runs on its own
// goroutine with a detached timeout so a slow disk never stalls a tool
// call; failures are logged and dropped.
func (s *Store) Record(_ context.Context, rec engine.CallRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.insert(ctx, rec); err != nil {
			s.logger.Warn("failed to record tool call",
				"tool_name", rec.ToolName,
				"request_id", rec.RequestID,
				"error", err,
			)
		}
	}()
}

func (s *Store) insert(ctx context.Context, rec engine.CallRecord) error {
	isError := 0
	if rec.IsError {
		isError = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_calls (id, request_id, tool_name, account_id, is_error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(),
		rec.RequestID,
		rec.ToolName,
		rec.AccountID,
		isError,
		rec.Duration.Milliseconds(),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Recent returns the most recent entries, newest first. limit defaults
// to 100 and is capped at 1000.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, tool_name, account_id, is_error, duration_ms, created_at
		FROM tool_calls ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var isError int
		var createdAt string
		if err := rows.Scan(&e.ID, &e.RequestID, &e.ToolName, &e.AccountID, &isError, &e.DurationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		e.IsError = isError != 0
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
