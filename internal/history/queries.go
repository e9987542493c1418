package history

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"checkgate/internal/pipeline"
)

// Run represents a row in the runs table.
type Run struct {
	ID          int    `json:"id"`
	Root        string `json:"root"`
	Success     bool   `json:"success"`
	FailedStage string `json:"failed_stage,omitempty"`
	CI          bool   `json:"ci"`
	Fix         bool   `json:"fix"`
	DurationMs  int    `json:"duration_ms"`
	StartedAt   string `json:"started_at"`
}

// StageRow represents a row in the stage_results table. Errors holds the
// extracted error lines, stored as a JSON array.
type StageRow struct {
	ID         int      `json:"id"`
	RunID      int      `json:"run_id"`
	Stage      string   `json:"stage"`
	Success    bool     `json:"success"`
	Message    string   `json:"message,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	DurationMs int      `json:"duration_ms"`
}

// RecordRun inserts a verification run and its per-stage results, returning
// the new run ID.
func (d *DB) RecordRun(res pipeline.Result, root string, ci, fix bool) (int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	out, err := tx.Exec(
		`INSERT INTO runs (root, success, failed_stage, ci, fix, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		root, res.Success, string(res.FailedStage), ci, fix, res.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := out.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO stage_results (run_id, stage, success, message, errors, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare stage insert: %w", err)
	}
	defer stmt.Close()

	for _, sr := range res.Stages {
		var errLines sql.NullString
		if len(sr.Result.Errors) > 0 {
			data, err := json.Marshal(sr.Result.Errors)
			if err != nil {
				return 0, fmt.Errorf("encode stage errors: %w", err)
			}
			errLines = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := stmt.Exec(runID, string(sr.Name), sr.Result.Success, sr.Result.Message, errLines, sr.Duration.Milliseconds()); err != nil {
			return 0, fmt.Errorf("insert stage result %s: %w", sr.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// RecentRuns returns the most recent runs, newest first.
func (d *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := d.conn.Query(
		`SELECT id, root, success, failed_stage, ci, fix, duration_ms, started_at
		 FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var failedStage sql.NullString
		if err := rows.Scan(&r.ID, &r.Root, &r.Success, &failedStage, &r.CI, &r.Fix, &r.DurationMs, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if failedStage.Valid {
			r.FailedStage = failedStage.String
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID, or nil when no such run exists.
func (d *DB) GetRun(id int) (*Run, error) {
	row := d.conn.QueryRow(
		`SELECT id, root, success, failed_stage, ci, fix, duration_ms, started_at
		 FROM runs WHERE id = ?`,
		id,
	)
	var r Run
	var failedStage sql.NullString
	err := row.Scan(&r.ID, &r.Root, &r.Success, &failedStage, &r.CI, &r.Fix, &r.DurationMs, &r.StartedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", id, err)
	}
	if failedStage.Valid {
		r.FailedStage = failedStage.String
	}
	return &r, nil
}

// LatestRun returns the most recent run, or nil when nothing is recorded.
func (d *DB) LatestRun() (*Run, error) {
	row := d.conn.QueryRow(
		`SELECT id, root, success, failed_stage, ci, fix, duration_ms, started_at
		 FROM runs ORDER BY id DESC LIMIT 1`,
	)
	var r Run
	var failedStage sql.NullString
	err := row.Scan(&r.ID, &r.Root, &r.Success, &failedStage, &r.CI, &r.Fix, &r.DurationMs, &r.StartedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest run: %w", err)
	}
	if failedStage.Valid {
		r.FailedStage = failedStage.String
	}
	return &r, nil
}

// RunStages returns the per-stage results for one run, in execution order.
func (d *DB) RunStages(runID int) ([]StageRow, error) {
	rows, err := d.conn.Query(
		`SELECT id, run_id, stage, success, message, errors, duration_ms
		 FROM stage_results WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get run stages: %w", err)
	}
	defer rows.Close()

	var results []StageRow
	for rows.Next() {
		var sr StageRow
		var message, errLines sql.NullString
		if err := rows.Scan(&sr.ID, &sr.RunID, &sr.Stage, &sr.Success, &message, &errLines, &sr.DurationMs); err != nil {
			return nil, fmt.Errorf("scan stage result: %w", err)
		}
		if message.Valid {
			sr.Message = message.String
		}
		if errLines.Valid && errLines.String != "" {
			if err := json.Unmarshal([]byte(errLines.String), &sr.Errors); err != nil {
				return nil, fmt.Errorf("decode stage errors: %w", err)
			}
		}
		results = append(results, sr)
	}
	return results, rows.Err()
}
