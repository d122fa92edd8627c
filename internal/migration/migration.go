package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"funnelab/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles warehouse schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{version: "1.0.0"}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all warehouse migrations in order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createRawEventsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create raw_events table")
	}
	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create raw_events indexes")
	}
	return nil
}

// createRawEventsTable creates the append-only event log. The primary
// key on event_id is what makes ingestion idempotent.
func (r *MigrationRunner) createRawEventsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS raw_events (
			event_id    VARCHAR(64) PRIMARY KEY,
			user_id     TEXT NOT NULL,
			event_type  TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			properties  JSONB,
			ingested_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_raw_events_user_id ON raw_events (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_events_event_type ON raw_events (event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_events_occurred_at ON raw_events (occurred_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
