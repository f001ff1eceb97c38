package step

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// Memoizer is a SQLite-backed Runner. Results survive process restarts, so
// a retried run replays its completed steps instead of repeating their side
// effects.
type Memoizer struct {
	db *sql.DB
}

// NewMemoizer opens (or creates) the step result store at dbPath.
func NewMemoizer(ctx context.Context, dbPath string) (*Memoizer, error) {
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open step store: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping step store: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS step_results (
		run_id     TEXT NOT NULL,
		step_id    TEXT NOT NULL,
		result     TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (unixepoch()),
		PRIMARY KEY (run_id, step_id)
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to initialize step schema: %w", err)
	}

	return &Memoizer{db: db}, nil
}

// Do implements Runner.
func (m *Memoizer) Do(ctx context.Context, runID, stepID string, fn Fn) (string, error) {
	var result string
	err := m.db.QueryRowContext(ctx,
		`SELECT result FROM step_results WHERE run_id = ? AND step_id = ?`,
		runID, stepID).Scan(&result)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to look up step %s/%s: %w", runID, stepID, err)
	}

	result, err = fn(ctx)
	if err != nil {
		return "", err
	}

	// INSERT OR IGNORE: if a concurrent retry raced us, the first recorded
	// result wins and stays the step's logical result.
	if _, err := m.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO step_results (run_id, step_id, result) VALUES (?, ?, ?)`,
		runID, stepID, result); err != nil {
		return "", fmt.Errorf("failed to record step %s/%s: %w", runID, stepID, err)
	}

	return result, nil
}

// Close closes the underlying store.
func (m *Memoizer) Close() error {
	return m.db.Close()
}
