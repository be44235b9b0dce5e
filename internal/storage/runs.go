package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned by GetRun for an unknown ID.
var ErrRunNotFound = errors.New("scan run not found")

// runTimeLayout is fixed-width so started_at sorts lexically.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run statuses.
const (
	RunComplete = "complete"
	RunPartial  = "partial"
	RunTimeout  = "timeout"
)

// ScanRun is one row of scan history.
type ScanRun struct {
	RunID      string    `json:"runId" yaml:"runId"`
	Root       string    `json:"root" yaml:"root"`
	StartedAt  time.Time `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time `json:"finishedAt" yaml:"finishedAt"`
	Files      int       `json:"files" yaml:"files"`
	Failed     int       `json:"failed" yaml:"failed"`
	Edges      int       `json:"edges" yaml:"edges"`
	Cycles     int       `json:"cycles" yaml:"cycles"`
	CacheHits  int       `json:"cacheHits" yaml:"cacheHits"`
	Status     string    `json:"status" yaml:"status"`
}

// Duration is the wall time of the run.
func (r ScanRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// NewRunID returns a fresh random run ID.
func NewRunID() string {
	return uuid.New().String()
}

// RecordRun stores run and returns its ID, assigning one when RunID is empty.
func (db *DB) RecordRun(run ScanRun) (string, error) {
	if run.RunID == "" {
		run.RunID = NewRunID()
	} else if _, err := uuid.Parse(run.RunID); err != nil {
		return "", fmt.Errorf("invalid run ID %q: %w", run.RunID, err)
	}
	if run.Status == "" {
		run.Status = RunComplete
	}

	_, err := db.Exec(`
		INSERT INTO scan_runs
			(run_id, root, started_at, finished_at, files, failed, edges, cycles, cache_hits, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.Root,
		run.StartedAt.UTC().Format(runTimeLayout), run.FinishedAt.UTC().Format(runTimeLayout),
		run.Files, run.Failed, run.Edges, run.Cycles, run.CacheHits, run.Status)
	if err != nil {
		return "", fmt.Errorf("failed to record scan run: %w", err)
	}
	db.logger.Debug("Recorded scan run", "run_id", run.RunID, "status", run.Status)
	return run.RunID, nil
}

// ListRuns returns the newest runs first. limit <= 0 returns all.
func (db *DB) ListRuns(limit int) ([]ScanRun, error) {
	query := `
		SELECT run_id, root, started_at, finished_at, files, failed, edges, cycles, cache_hits, status
		FROM scan_runs
		ORDER BY started_at DESC, run_id`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing scan runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []ScanRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads a single run.
func (db *DB) GetRun(id string) (ScanRun, error) {
	row := db.QueryRow(`
		SELECT run_id, root, started_at, finished_at, files, failed, edges, cycles, cache_hits, status
		FROM scan_runs
		WHERE run_id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ScanRun{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (ScanRun, error) {
	var (
		run              ScanRun
		started, finished string
	)
	err := row.Scan(&run.RunID, &run.Root, &started, &finished,
		&run.Files, &run.Failed, &run.Edges, &run.Cycles, &run.CacheHits, &run.Status)
	if err != nil {
		return ScanRun{}, err
	}
	if run.StartedAt, err = time.Parse(runTimeLayout, started); err != nil {
		return ScanRun{}, fmt.Errorf("invalid started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(runTimeLayout, finished); err != nil {
		return ScanRun{}, fmt.Errorf("invalid finished_at: %w", err)
	}
	return run, nil
}
