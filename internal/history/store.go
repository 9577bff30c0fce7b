// Package history persists gateway decisions and execution results to a
// local SQLite database for later inspection.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/skillgate/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	caller     TEXT NOT NULL,
	tool       TEXT NOT NULL,
	state      TEXT NOT NULL,
	verdict    TEXT NOT NULL,
	reason     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_request ON decisions(request_id);

CREATE TABLE IF NOT EXISTS executions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id  TEXT NOT NULL,
	exit_status INTEGER NOT NULL,
	outcome     TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	truncated   INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executions_request ON executions(request_id);
`

// Decision is one recorded gating outcome.
type Decision struct {
	RequestID string    `json:"request_id"`
	Caller    string    `json:"caller"`
	Tool      string    `json:"tool"`
	State     string    `json:"state"`
	Verdict   string    `json:"verdict"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Execution is one recorded sandbox run.
type Execution struct {
	RequestID  string    `json:"request_id"`
	ExitStatus int       `json:"exit_status"`
	Outcome    string    `json:"outcome"`
	DurationMS int64     `json:"duration_ms"`
	Truncated  bool      `json:"truncated"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("history: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	// SQLite tolerates one writer; keep the pool honest about it.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DefaultPath returns the default history database location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "skillgate-history.db")
	}
	return filepath.Join(home, ".skillgate", "history.db")
}

// RecordDecision inserts one gating outcome.
func (s *Store) RecordDecision(ctx context.Context, d Decision) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (request_id, caller, tool, state, verdict, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.RequestID, d.Caller, d.Tool, d.State, d.Verdict, d.Reason,
		d.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("history: record decision: %w", err)
	}
	return nil
}

// RecordExecution inserts one sandbox result.
func (s *Store) RecordExecution(ctx context.Context, requestID string, res *model.ExecutionResult) error {
	truncated := 0
	if res.Truncated {
		truncated = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (request_id, exit_status, outcome, duration_ms, truncated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		requestID, res.ExitStatus, string(res.Outcome), res.DurationMS, truncated,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("history: record execution: %w", err)
	}
	return nil
}

// Recent returns the newest decisions, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, caller, tool, state, verdict, reason, created_at
		 FROM decisions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query decisions: %w", err)
	}
	defer rows.Close()
	return scanDecisions(rows)
}

// ByRequest returns all decisions and executions recorded for a request.
func (s *Store) ByRequest(ctx context.Context, requestID string) ([]Decision, []Execution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, caller, tool, state, verdict, reason, created_at
		 FROM decisions WHERE request_id = ? ORDER BY id`, requestID)
	if err != nil {
		return nil, nil, fmt.Errorf("history: query decisions: %w", err)
	}
	decisions, err := scanDecisions(rows)
	rows.Close()
	if err != nil {
		return nil, nil, err
	}

	erows, err := s.db.QueryContext(ctx,
		`SELECT request_id, exit_status, outcome, duration_ms, truncated, created_at
		 FROM executions WHERE request_id = ? ORDER BY id`, requestID)
	if err != nil {
		return nil, nil, fmt.Errorf("history: query executions: %w", err)
	}
	defer erows.Close()

	var executions []Execution
	for erows.Next() {
		var e Execution
		var truncated int
		var created string
		if err := erows.Scan(&e.RequestID, &e.ExitStatus, &e.Outcome, &e.DurationMS, &truncated, &created); err != nil {
			return nil, nil, fmt.Errorf("history: scan execution: %w", err)
		}
		e.Truncated = truncated != 0
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		executions = append(executions, e)
	}
	if err := erows.Err(); err != nil {
		return nil, nil, fmt.Errorf("history: iterate executions: %w", err)
	}
	return decisions, executions, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanDecisions(rows *sql.Rows) ([]Decision, error) {
	var decisions []Decision
	for rows.Next() {
		var d Decision
		var created string
		if err := rows.Scan(&d.RequestID, &d.Caller, &d.Tool, &d.State, &d.Verdict, &d.Reason, &created); err != nil {
			return nil, fmt.Errorf("history: scan decision: %w", err)
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate decisions: %w", err)
	}
	return decisions, nil
}
