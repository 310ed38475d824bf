package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run statuses.
const (
	RunRunning  = "running"
	RunFinished = "finished"
	RunFailed   = "failed"
)

// Run represents one collect or crawl invocation.
type Run struct {
	RunID         int64
	Command       string
	Status        string
	StartedAt     time.Time
	FinishedAt    sql.NullTime
	DocumentCount int
	Attempted     int
	Succeeded     int
	Failed        int
	ErrorMessage  string
}

// RunStats are the totals recorded when a run finishes.
type RunStats struct {
	DocumentCount int
	Attempted     int
	Succeeded     int
	Failed        int
}

// InsertRun creates a run record in the running state.
func (db *DB) InsertRun(command string) (int64, error) {
	result, err := db.Exec(`INSERT INTO runs (command, status) VALUES (?, ?)`, command, RunRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return runID, nil
}

// FinishRun records the totals of a run. A non-nil runErr marks it failed.
func (db *DB) FinishRun(runID int64, stats RunStats, runErr error) error {
	status := RunFinished
	var message sql.NullString
	if runErr != nil {
		status = RunFailed
		message = NewNullString(runErr.Error())
	}
	_, err := db.Exec(`
		UPDATE runs
		SET status = ?, finished_at = CURRENT_TIMESTAMP,
		    document_count = ?, attempted = ?, succeeded = ?, failed = ?, error_message = ?
		WHERE run_id = ?
	`, status, stats.DocumentCount, stats.Attempted, stats.Succeeded, stats.Failed, message, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

const runColumns = `run_id, command, status, started_at, finished_at,
	document_count, attempted, succeeded, failed, error_message`

func scanRun(scan func(dest ...any) error) (Run, error) {
	var r Run
	var message sql.NullString
	err := scan(&r.RunID, &r.Command, &r.Status, &r.StartedAt, &r.FinishedAt,
		&r.DocumentCount, &r.Attempted, &r.Succeeded, &r.Failed, &message)
	r.ErrorMessage = message.String
	return r, err
}

// GetRun retrieves a run by its ID.
func (db *DB) GetRun(runID int64) (*Run, error) {
	r, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &r, nil
}

// ListRuns retrieves runs ordered by most recent first. A limit <= 0 returns
// every run.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY run_id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
