package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// InvocationRecord is the persisted summary of one tool run.
type InvocationRecord struct {
	ID        string        `json:"id"`
	Tool      string        `json:"tool"`
	Binary    string        `json:"binary"`
	Args      []string      `json:"args"`
	Target    string        `json:"target"`
	Status    string        `json:"status"`
	ExitCode  int           `json:"exit_code"`
	Error     string        `json:"error,omitempty"`
	Lines     int           `json:"lines"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`

	// ResultPath is relative to the output directory; empty when not saved.
	ResultPath string `json:"result_path,omitempty"`
}

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ToolStats aggregates history per tool.
type ToolStats struct {
	Tool    string        `json:"tool"`
	Total   int           `json:"total"`
	Failed  int           `json:"failed"`
	LastRun time.Time     `json:"last_run"`
	AvgTime time.Duration `json:"avg_time"`
}

// SQLiteStorage keeps the invocation history.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage opens (and creates) the history database.
// dbPath can be ":memory:" for testing.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// One connection: keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	s := &SQLiteStorage{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStorage) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS invocations (
		id TEXT PRIMARY KEY,
		tool TEXT NOT NULL,
		binary_name TEXT NOT NULL,
		args_json TEXT NOT NULL,
		target TEXT NOT NULL,
		status TEXT NOT NULL,
		exit_code INTEGER DEFAULT 0,
		error TEXT,
		lines INTEGER DEFAULT 0,
		duration_ms INTEGER DEFAULT 0,
		started_at INTEGER NOT NULL,
		result_path TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_invocations_tool ON invocations(tool);
	CREATE INDEX IF NOT EXISTS idx_invocations_target ON invocations(target);
	CREATE INDEX IF NOT EXISTS idx_invocations_started_at ON invocations(started_at);
	`)
	return err
}

func (s *SQLiteStorage) Path() string { return s.dbPath }

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveInvocation inserts r, assigning an ID when empty.
func (s *SQLiteStorage) SaveInvocation(ctx context.Context, r *InvocationRecord) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	args, err := json.Marshal(r.Args)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invocations (id, tool, binary_name, args_json, target, status, exit_code, error, lines, duration_ms, started_at, result_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Tool, r.Binary, string(args), r.Target, r.Status, r.ExitCode, r.Error, r.Lines,
		r.Duration.Milliseconds(), r.StartedAt.UnixMilli(), r.ResultPath)
	if err != nil {
		return fmt.Errorf("failed to save invocation: %w", err)
	}
	return nil
}

const selectInvocation = `
	SELECT id, tool, binary_name, args_json, target, status, exit_code, COALESCE(error, ''), lines, duration_ms, started_at, COALESCE(result_path, '')
	FROM invocations`

func scanInvocation(row interface{ Scan(...any) error }) (InvocationRecord, error) {
	var (
		r          InvocationRecord
		args       string
		durationMs int64
		startedMs  int64
	)
	err := row.Scan(&r.ID, &r.Tool, &r.Binary, &args, &r.Target, &r.Status, &r.ExitCode,
		&r.Error, &r.Lines, &durationMs, &startedMs, &r.ResultPath)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(args), &r.Args); err != nil {
		return r, fmt.Errorf("corrupt args for %s: %w", r.ID, err)
	}
	r.Duration = time.Duration(durationMs) * time.Millisecond
	r.StartedAt = time.UnixMilli(startedMs)
	return r, nil
}

// GetInvocation returns one record, or sql.ErrNoRows.
func (s *SQLiteStorage) GetInvocation(ctx context.Context, id string) (*InvocationRecord, error) {
	r, err := scanInvocation(s.db.QueryRowContext(ctx, selectInvocation+` WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListInvocations returns the newest records first. Empty tool or target
// match everything; limit <= 0 means 50.
func (s *SQLiteStorage) ListInvocations(ctx context.Context, tool, target string, limit int) ([]InvocationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, selectInvocation+`
		WHERE (tool = ? OR ? = '') AND (target = ? OR ? = '')
		ORDER BY started_at DESC
		LIMIT ?
	`, tool, tool, target, target, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InvocationRecord
	for rows.Next() {
		r, err := scanInvocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats aggregates history per tool, ordered by tool name.
func (s *SQLiteStorage) Stats(ctx context.Context) ([]ToolStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tool, COUNT(*), SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), MAX(started_at), CAST(AVG(duration_ms) AS INTEGER)
		FROM invocations
		GROUP BY tool
		ORDER BY tool
	`, StatusFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ToolStats
	for rows.Next() {
		var (
			st     ToolStats
			lastMs int64
			avgMs  int64
		)
		if err := rows.Scan(&st.Tool, &st.Total, &st.Failed, &lastMs, &avgMs); err != nil {
			return nil, err
		}
		st.LastRun = time.UnixMilli(lastMs)
		st.AvgTime = time.Duration(avgMs) * time.Millisecond
		out = append(out, st)
	}
	return out, rows.Err()
}

// Prune deletes records started before cutoff and returns how many went.
func (s *SQLiteStorage) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invocations WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
