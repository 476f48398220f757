// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a ledger of past runs and their downloads in a
// SQLite database under the output directory.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pdfharvest/pkg/types"
)

const (
	stateDir = ".pdfharvest"
	dbFile   = "history.db"

	// Fixed-width so that text ordering is chronological.
	timeFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrRunNotFound is returned when a run ID is not in the ledger.
var ErrRunNotFound = errors.New("run not found")

// Run is one row of the runs table.
type Run struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	StartTime  time.Time `json:"start_time" yaml:"start_time"`
	EndTime    time.Time `json:"end_time" yaml:"end_time"`
	Seeds      []string  `json:"urls_scanned" yaml:"urls_scanned"`
	Found      int       `json:"pdfs_found" yaml:"pdfs_found"`
	Downloaded int       `json:"pdfs_downloaded" yaml:"pdfs_downloaded"`
	Failed     int       `json:"pdfs_failed" yaml:"pdfs_failed"`
	Skipped    int       `json:"pdfs_skipped" yaml:"pdfs_skipped"`
	Errors     int       `json:"errors" yaml:"errors"`
}

// Download is one row of the downloads table.
type Download struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	URL       string        `json:"url" yaml:"url"`
	SourceURL string        `json:"source_url" yaml:"source_url"`
	Filepath  string        `json:"filepath" yaml:"filepath"`
	Outcome   types.Outcome `json:"outcome" yaml:"outcome"`
	Size      int64         `json:"size_bytes" yaml:"size_bytes"`
	Attempts  int           `json:"attempts" yaml:"attempts"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Store manages the history database.
type Store struct {
	db   *sql.DB
	path string
}

// Path returns the database location for outputDir.
func Path(outputDir string) string {
	return filepath.Join(outputDir, stateDir, dbFile)
}

// NewStore opens or creates the history database for outputDir and
// creates the schema if it does not exist.
func NewStore(outputDir string) (*Store, error) {
	dbPath := Path(outputDir)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Location returns the database file path.
func (s *Store) Location() string {
	return s.path
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			seeds TEXT NOT NULL,
			found INTEGER NOT NULL,
			downloaded INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			errors INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			url TEXT NOT NULL,
			source_url TEXT,
			filepath TEXT,
			outcome TEXT NOT NULL,
			size_bytes INTEGER,
			attempts INTEGER,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_run_id ON downloads(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_url ON downloads(url)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores summary and all of its results in one transaction.
// Recording the same run twice replaces the earlier rows.
func (s *Store) Record(ctx context.Context, summary *types.RunSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM downloads WHERE run_id = ?`, summary.RunID); err != nil {
		return fmt.Errorf("deleting old downloads: %w", err)
	}

	seedsJSON, _ := json.Marshal(summary.URLsScanned)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, start_time, end_time, seeds, found, downloaded, failed, skipped, errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			start_time=excluded.start_time, end_time=excluded.end_time, seeds=excluded.seeds,
			found=excluded.found, downloaded=excluded.downloaded, failed=excluded.failed,
			skipped=excluded.skipped, errors=excluded.errors`,
		summary.RunID,
		summary.StartTime.UTC().Format(timeFormat),
		summary.EndTime.UTC().Format(timeFormat),
		string(seedsJSON),
		summary.Found, summary.Downloaded, summary.Failed, summary.Skipped,
		len(summary.Errors),
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO downloads (run_id, url, source_url, filepath, outcome, size_bytes, attempts, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, list := range [][]types.DownloadResult{summary.Successful, summary.Failures, summary.Skips} {
		for _, r := range list {
			_, err := stmt.ExecContext(ctx,
				summary.RunID, r.Link.URL, r.Link.SourceURL, r.Filepath,
				string(r.Outcome), r.Size, r.Attempts, r.Error,
			)
			if err != nil {
				return fmt.Errorf("inserting download %s: %w", r.Link.URL, err)
			}
		}
	}

	return tx.Commit()
}

// Runs returns the most recent runs, newest first. A limit of zero or
// less returns every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT run_id, start_time, end_time, seeds, found, downloaded, failed, skipped, errors
		FROM runs ORDER BY start_time DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			start, end, seeds string
		)
		if err := rows.Scan(&r.RunID, &start, &end, &seeds,
			&r.Found, &r.Downloaded, &r.Failed, &r.Skipped, &r.Errors); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartTime, _ = time.Parse(time.RFC3339Nano, start)
		r.EndTime, _ = time.Parse(time.RFC3339Nano, end)
		_ = json.Unmarshal([]byte(seeds), &r.Seeds)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Downloads returns the results recorded for runID in insertion order.
// An unknown run yields ErrRunNotFound.
func (s *Store) Downloads(ctx context.Context, runID string) ([]Download, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM runs WHERE run_id = ?`, runID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("looking up run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, url, source_url, filepath, outcome, size_bytes, attempts, error
		 FROM downloads WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying downloads: %w", err)
	}
	defer rows.Close()

	downloads := []Download{}
	for rows.Next() {
		var (
			d       Download
			outcome string
		)
		if err := rows.Scan(&d.RunID, &d.URL, &d.SourceURL, &d.Filepath,
			&outcome, &d.Size, &d.Attempts, &d.Error); err != nil {
			return nil, fmt.Errorf("scanning download: %w", err)
		}
		d.Outcome = types.Outcome(outcome)
		downloads = append(downloads, d)
	}
	return downloads, rows.Err()
}

// LastSuccess returns the file path of the most recent successful
// download of url, and false when the URL was never downloaded.
func (s *Store) LastSuccess(ctx context.Context, url string) (string, bool, error) {
	var path string
	err := s.db.QueryRowContext(ctx,
		`SELECT d.filepath FROM downloads d JOIN runs r ON r.run_id = d.run_id
		 WHERE d.url = ? AND d.outcome = ?
		 ORDER BY r.start_time DESC, d.id DESC LIMIT 1`,
		url, string(types.OutcomeSuccess),
	).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying last success: %w", err)
	}
	return path, true, nil
}
