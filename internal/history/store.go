// Package history persists run summaries in a SQLite database so earlier
// runs can be listed and inspected.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/betsytest/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrRunNotFound is returned when no run matches the requested id.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousRunID is returned when an id prefix matches several runs.
var ErrAmbiguousRunID = errors.New("ambiguous run id")

// RunRecord is one stored run.
type RunRecord struct {
	ID         string
	Policy     models.Policy
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time
	Cases      int
	Failures   int
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ComparisonRecord is one stored stream outcome.
type ComparisonRecord struct {
	RunID        string
	CasePath     string
	Mode         models.Mode
	Stream       models.Stream
	BaselinePath string
	Outcome      models.Outcome
}

// Store manages the SQLite run history database
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the history database at dbPath.
// ":memory:" opens a private in-memory database.
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

	// An in-memory database lives only as long as its connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on lock errors.
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

// SaveRun stores summary and all of its comparisons in one transaction.
func (s *Store) SaveRun(ctx context.Context, summary *models.RunSummary) error {
	if summary == nil || summary.RunID == "" {
		return fmt.Errorf("run summary must have a run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, policy, root, started_at, finished_at, cases, failures)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, string(summary.Policy), summary.Root,
		formatTime(summary.StartedAt), formatTime(summary.FinishedAt),
		summary.Cases, summary.Failures)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO comparisons (run_id, case_path, mode, stream, baseline_path, outcome)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare comparison insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range summary.Comparisons {
		if _, err := stmt.ExecContext(ctx, summary.RunID, c.Case.Path(), string(c.Mode),
			string(c.Stream), c.BaselinePath, string(c.Outcome)); err != nil {
			return fmt.Errorf("insert comparison: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT id, policy, root, started_at, finished_at, cases, failures
		FROM runs ORDER BY started_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run whose id equals or starts with idOrPrefix.
func (s *Store) GetRun(ctx context.Context, idOrPrefix string) (*RunRecord, error) {
	if idOrPrefix == "" {
		return nil, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, policy, root, started_at, finished_at, cases, failures
		 FROM runs WHERE id = ? OR substr(id, 1, ?) = ? LIMIT 2`,
		idOrPrefix, len(idOrPrefix), idOrPrefix)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var found []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRunID, idOrPrefix)
	}
}

// GetComparisons returns the stream outcomes of a run in the order they
// were recorded.
func (s *Store) GetComparisons(ctx context.Context, runID string) ([]ComparisonRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, case_path, mode, stream, baseline_path, outcome
		 FROM comparisons WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query comparisons: %w", err)
	}
	defer rows.Close()

	var comps []ComparisonRecord
	for rows.Next() {
		var c ComparisonRecord
		var mode, stream, outcome string
		if err := rows.Scan(&c.RunID, &c.CasePath, &mode, &stream, &c.BaselinePath, &outcome); err != nil {
			return nil, fmt.Errorf("scan comparison: %w", err)
		}
		c.Mode = models.Mode(mode)
		c.Stream = models.Stream(stream)
		c.Outcome = models.Outcome(outcome)
		comps = append(comps, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comparisons: %w", err)
	}
	return comps, nil
}

// DeleteRunsBefore removes runs started before cutoff along with their
// comparisons. Returns the number of runs removed.
func (s *Store) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	ts := formatTime(cutoff)
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM comparisons WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, ts); err != nil {
		return 0, fmt.Errorf("delete comparisons: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, ts)
	if err != nil {
		return 0, fmt.Errorf("delete runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted runs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var r RunRecord
	var policy, started, finished string
	if err := row.Scan(&r.ID, &policy, &r.Root, &started, &finished, &r.Cases, &r.Failures); err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	r.Policy = models.Policy(policy)

	var err error
	if r.StartedAt, err = parseTime(started); err != nil {
		return RunRecord{}, err
	}
	if r.FinishedAt, err = parseTime(finished); err != nil {
		return RunRecord{}, err
	}
	return r, nil
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
