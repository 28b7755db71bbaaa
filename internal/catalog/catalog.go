// Package catalog keeps a SQLite history of textbook index runs per course.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoRuns is returned by LatestRun when a course has never been indexed.
var ErrNoRuns = errors.New("no index runs")

// Run statuses recorded by the pipeline.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one attempt to index a textbook for a course.
type Run struct {
	ID         string     `json:"id"`
	CourseCode string     `json:"course_code"`
	Filename   string     `json:"filename"`
	Status     string     `json:"status"`
	Pages      int        `json:"pages"`
	Chunks     int        `json:"chunks"`
	Version    string     `json:"version,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog database at path and brings the
// schema up to date.
func Open(path string) (*Catalog, error) {
	if path == "" {
		return nil, errors.New("catalog path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// RecordRun inserts r or replaces the stored run with the same ID.
func (c *Catalog) RecordRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		return errors.New("run id required")
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	var finished sql.NullString
	if r.FinishedAt != nil {
		finished = sql.NullString{String: formatTime(*r.FinishedAt), Valid: true}
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO index_runs(id, course_code, filename, status, pages, chunks, version, error, started_at, finished_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			pages = excluded.pages,
			chunks = excluded.chunks,
			version = excluded.version,
			error = excluded.error,
			finished_at = excluded.finished_at`,
		r.ID, r.CourseCode, r.Filename, r.Status, r.Pages, r.Chunks, r.Version, r.Error,
		formatTime(r.StartedAt), finished)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

// LatestRun returns the most recently started run for course.
func (c *Catalog) LatestRun(ctx context.Context, course string) (Run, error) {
	runs, err := c.ListRuns(ctx, course, 1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, fmt.Errorf("course %s: %w", course, ErrNoRuns)
	}
	return runs[0], nil
}

// ListRuns returns runs for course, newest first. limit <= 0 means no limit.
func (c *Catalog) ListRuns(ctx context.Context, course string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, course_code, filename, status, pages, chunks, version, error, started_at, finished_at
		FROM index_runs WHERE course_code = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, course, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started string
		var finished sql.NullString
		if err := rows.Scan(&r.ID, &r.CourseCode, &r.Filename, &r.Status, &r.Pages, &r.Chunks,
			&r.Version, &r.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("run %s started_at: %w", r.ID, err)
		}
		if finished.Valid {
			ft, err := parseTime(finished.String)
			if err != nil {
				return nil, fmt.Errorf("run %s finished_at: %w", r.ID, err)
			}
			r.FinishedAt = &ft
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Fixed-width UTC timestamps sort lexically in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
