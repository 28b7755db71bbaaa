package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; schema_migrations holds the count applied.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS index_runs (
		id TEXT PRIMARY KEY,
		course_code TEXT NOT NULL,
		filename TEXT NOT NULL,
		status TEXT NOT NULL,
		pages INTEGER NOT NULL DEFAULT 0,
		chunks INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_index_runs_course_started ON index_runs(course_code, started_at);`,
	`ALTER TABLE index_runs ADD COLUMN version TEXT NOT NULL DEFAULT '';`,
	`ALTER TABLE index_runs ADD COLUMN error TEXT NOT NULL DEFAULT '';`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	var cnt int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&cnt); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cnt == 0 {
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES(0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT version FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for v := current; v < len(migrations); v++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE schema_migrations SET version = ?`, v+1); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", v+1, err)
		}
	}
	return nil
}
