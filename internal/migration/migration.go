package migration

import (
	"context"
	"fmt"

	"mipool/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createPoolingRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create pooling_runs table")
	}

	if err := r.createPooledRowsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create pooled_rows table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createPoolingRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS pooling_runs (
			id UUID PRIMARY KEY,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			source VARCHAR(255) NOT NULL,
			m INTEGER NOT NULL,
			confidence_level DOUBLE PRECISION NOT NULL,
			null_value DOUBLE PRECISION NOT NULL,
			fingerprint VARCHAR(64) NOT NULL,
			row_count INTEGER NOT NULL DEFAULT 0,
			failed_rows INTEGER NOT NULL DEFAULT 0
		)
	`)
	return err
}

func (r *MigrationRunner) createPooledRowsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS pooled_rows (
			run_id UUID NOT NULL REFERENCES pooling_runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			coefficient VARCHAR(255) NOT NULL,
			m INTEGER NOT NULL,
			estimate DOUBLE PRECISION NOT NULL DEFAULT 0,
			std_error DOUBLE PRECISION NOT NULL DEFAULT 0,
			t_statistic DOUBLE PRECISION NOT NULL DEFAULT 0,
			df DOUBLE PRECISION NOT NULL DEFAULT 0,
			p_value DOUBLE PRECISION NOT NULL DEFAULT 0,
			ci_lower DOUBLE PRECISION NOT NULL DEFAULT 0,
			ci_upper DOUBLE PRECISION NOT NULL DEFAULT 0,
			missing_info DOUBLE PRECISION NOT NULL DEFAULT 0,
			error_message TEXT,
			PRIMARY KEY (run_id, position)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_runs_created_at ON pooling_runs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON pooling_runs(fingerprint)",
		"CREATE INDEX IF NOT EXISTS idx_rows_run_id ON pooled_rows(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_rows_coefficient ON pooled_rows(coefficient)",
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			// Log but don't fail on index creation errors
			fmt.Printf("Warning: failed to create index: %v\n", err)
		}
	}

	return nil
}
