package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/windprofile/internal/vad"
)

// ErrRunNotFound is returned when a run id has no record.
var ErrRunNotFound = errors.New("run not found")

// Run is a stored VAD invocation.
type Run struct {
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
	Source     string    `json:"source"`
	ConfigJSON string    `json:"config"`
	Rings      int       `json:"rings"`
	Accepted   int       `json:"accepted"`
}

// RecordRun stores rows under a new run id. cfg is stored as JSON.
func (db *DB) RecordRun(source string, cfg interface{}, rows []vad.Row) (string, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode run config: %w", err)
	}

	runID := uuid.New().String()
	createdAt := db.clock.Now().UTC()

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO vad_runs (run_id, created_at, source, config_json) VALUES (?, ?, ?, ?)`,
		runID, createdAt.UnixNano(), source, string(cfgJSON),
	); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO vad_rows (run_id, ring_index, height, u, v, range, elevation, r2, rmse, samples, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.Exec(
			runID, i, r.Height, r.U, r.V, r.Range, r.Elevation, r.R2, r.RMSE, r.Samples, r.Status.String(),
		); err != nil {
			return "", fmt.Errorf("failed to insert ring %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

const runColumns = `
	SELECT r.run_id, r.created_at, r.source, r.config_json,
	       COUNT(w.ring_index),
	       COALESCE(SUM(CASE WHEN w.status = 'accepted' THEN 1 ELSE 0 END), 0)
	FROM vad_runs r
	LEFT JOIN vad_rows w ON w.run_id = r.run_id`

func scanRun(scan func(dest ...interface{}) error) (Run, error) {
	var run Run
	var createdAt int64
	if err := scan(&run.RunID, &createdAt, &run.Source, &run.ConfigJSON, &run.Rings, &run.Accepted); err != nil {
		return Run{}, err
	}
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	return run, nil
}

// Runs lists stored runs, newest first. limit <= 0 returns all.
func (db *DB) Runs(limit int) ([]Run, error) {
	query := runColumns + ` GROUP BY r.run_id ORDER BY r.created_at DESC, r.rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run by id.
func (db *DB) GetRun(runID string) (Run, error) {
	row := db.QueryRow(runColumns+` WHERE r.run_id = ? GROUP BY r.run_id`, runID)
	run, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to load run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recently recorded run.
func (db *DB) LatestRun() (Run, error) {
	runs, err := db.Runs(1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrRunNotFound
	}
	return runs[0], nil
}

// RunRows returns the rows of a run in ring order. Undefined values come
// back as undefined.
func (db *DB) RunRows(runID string) ([]vad.Row, error) {
	if _, err := db.GetRun(runID); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT height, u, v, range, elevation, r2, rmse, samples, status
		FROM vad_rows WHERE run_id = ? ORDER BY ring_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	out := []vad.Row{}
	for rows.Next() {
		var r vad.Row
		var status string
		if err := rows.Scan(&r.Height, &r.U, &r.V, &r.Range, &r.Elevation, &r.R2, &r.RMSE, &r.Samples, &status); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := r.Status.UnmarshalText([]byte(status)); err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its rows.
func (db *DB) DeleteRun(runID string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM vad_rows WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete rows: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM vad_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return tx.Commit()
}
