// Package history records suite runs and per-notebook outcomes in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/nbcheck/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// RunRecord is one stored suite run
type RunRecord struct {
	ID         int64
	RunID      string
	KernelName string
	Total      int
	Passed     int
	Skipped    int
	Failed     int
	Errored    int
	Duration   time.Duration
	StartedAt  time.Time
}

// NotebookRecord is one stored notebook outcome
type NotebookRecord struct {
	ID           int64
	RunID        string
	Path         string
	Title        string
	KernelName   string
	Status       string
	Reason       string
	ErrorMessage string
	Duration     time.Duration
	StartedAt    time.Time
}

// NotebookStats aggregates every stored outcome of one notebook
type NotebookStats struct {
	Path        string
	Runs        int
	Passed      int
	Skipped     int
	Failed      int
	Errored     int
	AvgDuration time.Duration
	LastStatus  string
}

// PassRate returns the share of runs that passed or skipped.
func (s *NotebookStats) PassRate() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.Passed+s.Skipped) / float64(s.Runs)
}

// Store manages the SQLite database for run history
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new Store instance and initializes the database
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	// busy_timeout goes first so the remaining pragmas wait on locks
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores a suite run and all of its notebook results atomically.
func (s *Store) RecordRun(ctx context.Context, result *models.SuiteResult, kernelName string, startedAt time.Time) error {
	if result.RunID == "" {
		return errors.New("record run: empty run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	_, err = tx.ExecContext(ctx, `INSERT INTO suite_runs
		(run_id, kernel_name, total, passed, skipped, failed, errored, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		kernelName,
		result.Total,
		result.Passed,
		result.Skipped,
		result.Failed,
		result.Errored,
		result.Duration.Milliseconds(),
		startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert suite run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO notebook_results
		(run_id, path, title, kernel_name, status, reason, error_message, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare notebook insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range result.Results {
		var errMsg string
		if r.Error != nil {
			errMsg = r.Error.Error()
		}
		_, err := stmt.ExecContext(ctx,
			result.RunID,
			r.Path,
			r.Title,
			r.KernelName,
			r.Status,
			r.Reason,
			errMsg,
			r.Duration.Milliseconds(),
			r.StartedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert notebook result %s: %w", r.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit suite runs, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, run_id, kernel_name, total, passed, skipped, failed, errored, duration_ms, started_at
		FROM suite_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		run := &RunRecord{}
		var kernelName sql.NullString
		var durationMs int64
		if err := rows.Scan(
			&run.ID,
			&run.RunID,
			&kernelName,
			&run.Total,
			&run.Passed,
			&run.Skipped,
			&run.Failed,
			&run.Errored,
			&durationMs,
			&run.StartedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		run.KernelName = kernelName.String
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, nil
}

// RunResults returns the notebook results of one run in execution order.
func (s *Store) RunResults(ctx context.Context, runID string) ([]*NotebookRecord, error) {
	return s.queryNotebooks(ctx, `SELECT id, run_id, path, title, kernel_name, status, reason, error_message, duration_ms, started_at
		FROM notebook_results
		WHERE run_id = ?
		ORDER BY id ASC`, runID)
}

// NotebookHistory returns up to limit outcomes of one notebook, most recent first.
func (s *Store) NotebookHistory(ctx context.Context, path string, limit int) ([]*NotebookRecord, error) {
	return s.queryNotebooks(ctx, `SELECT id, run_id, path, title, kernel_name, status, reason, error_message, duration_ms, started_at
		FROM notebook_results
		WHERE path = ?
		ORDER BY id DESC
		LIMIT ?`, path, normalizeLimit(limit))
}

func (s *Store) queryNotebooks(ctx context.Context, query string, args ...interface{}) ([]*NotebookRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notebook results: %w", err)
	}
	defer rows.Close()

	var records []*NotebookRecord
	for rows.Next() {
		rec := &NotebookRecord{}
		var title, kernelName, reason, errMsg sql.NullString
		var durationMs int64
		if err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.Path,
			&title,
			&kernelName,
			&rec.Status,
			&reason,
			&errMsg,
			&durationMs,
			&rec.StartedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notebook row: %w", err)
		}
		rec.Title = title.String
		rec.KernelName = kernelName.String
		rec.Reason = reason.String
		rec.ErrorMessage = errMsg.String
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notebook rows: %w", err)
	}

	return records, nil
}

// Stats aggregates outcomes per notebook path, ordered by path.
func (s *Store) Stats(ctx context.Context) ([]*NotebookStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT n.path,
			COUNT(*),
			SUM(CASE WHEN n.status = ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN n.status = ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN n.status = ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN n.status = ? THEN 1 ELSE 0 END),
			AVG(n.duration_ms),
			(SELECT l.status FROM notebook_results l WHERE l.path = n.path ORDER BY l.id DESC LIMIT 1)
		FROM notebook_results n
		GROUP BY n.path
		ORDER BY n.path`,
		models.StatusPassed, models.StatusSkipped, models.StatusFailed, models.StatusError)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var stats []*NotebookStats
	for rows.Next() {
		st := &NotebookStats{}
		var avg sql.NullFloat64
		var last sql.NullString
		if err := rows.Scan(&st.Path, &st.Runs, &st.Passed, &st.Skipped, &st.Failed, &st.Errored, &avg, &last); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		st.AvgDuration = time.Duration(avg.Float64 * float64(time.Millisecond))
		st.LastStatus = last.String
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats rows: %w", err)
	}

	return stats, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}
