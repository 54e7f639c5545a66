package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"mipool/domain/core"
	"mipool/domain/pooling"
	"mipool/ports"
)

// runRepository implements the RunRepository interface
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepositoryPort {
	return &runRepository{db: db}
}

// SaveRun stores the run record and its rows in one transaction
func (r *runRepository) SaveRun(ctx context.Context, run pooling.PoolingRun, table pooling.ResultTable) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pooling_runs (id, created_at, source, m, confidence_level, null_value, fingerprint, row_count, failed_rows)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, run.ID, run.CreatedAt.Time(), run.Source, run.M, run.ConfidenceLevel, run.NullValue, run.Fingerprint, run.Rows, run.FailedRows)
	if err != nil {
		return fmt.Errorf("failed to insert pooling run: %w", err)
	}

	for position, row := range table.Rows {
		var errorMessage interface{}
		if row.Failed() {
			errorMessage = row.Err.Error()
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO pooled_rows (
				run_id, position, coefficient, m, estimate, std_error, t_statistic,
				df, p_value, ci_lower, ci_upper, missing_info, error_message
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, run.ID, position, row.Coefficient, row.M, row.Estimate, row.StdError, row.TStatistic,
			row.DF, row.PValue, row.CILower, row.CIUpper, row.MissingInfo, errorMessage)
		if err != nil {
			return fmt.Errorf("failed to insert pooled row %q: %w", row.Coefficient, err)
		}
	}

	return tx.Commit()
}

// GetRun loads one run and its table, rows in stored order
func (r *runRepository) GetRun(ctx context.Context, runID core.RunID) (*pooling.PoolingRun, pooling.ResultTable, error) {
	var run pooling.PoolingRun
	var createdAt time.Time

	err := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, source, m, confidence_level, null_value, fingerprint, row_count, failed_rows
		FROM pooling_runs
		WHERE id = $1
	`, runID).Scan(
		&run.ID, &createdAt, &run.Source, &run.M, &run.ConfidenceLevel,
		&run.NullValue, &run.Fingerprint, &run.Rows, &run.FailedRows,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pooling.ResultTable{}, core.NewRunNotFoundError(runID)
		}
		return nil, pooling.ResultTable{}, fmt.Errorf("failed to get pooling run: %w", err)
	}
	run.CreatedAt = core.NewTimestamp(createdAt)

	table, err := r.getRows(ctx, runID)
	if err != nil {
		return nil, pooling.ResultTable{}, err
	}

	return &run, table, nil
}

func (r *runRepository) getRows(ctx context.Context, runID core.RunID) (pooling.ResultTable, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT coefficient, m, estimate, std_error, t_statistic, df,
			p_value, ci_lower, ci_upper, missing_info, COALESCE(error_message, '') AS error_message
		FROM pooled_rows
		WHERE run_id = $1
		ORDER BY position
	`, runID)
	if err != nil {
		return pooling.ResultTable{}, fmt.Errorf("failed to query pooled rows: %w", err)
	}
	defer rows.Close()

	var table pooling.ResultTable
	for rows.Next() {
		var row pooling.ResultRow
		var errorMessage string

		err := rows.Scan(
			&row.Coefficient, &row.M, &row.Estimate, &row.StdError, &row.TStatistic,
			&row.DF, &row.PValue, &row.CILower, &row.CIUpper, &row.MissingInfo, &errorMessage,
		)
		if err != nil {
			return pooling.ResultTable{}, fmt.Errorf("failed to scan pooled row: %w", err)
		}
		if errorMessage != "" {
			row.Err = errors.New(errorMessage)
		}
		table.Rows = append(table.Rows, row)
	}

	return table, rows.Err()
}

// ListRuns returns the most recent runs, newest first
func (r *runRepository) ListRuns(ctx context.Context, limit int) ([]pooling.PoolingRun, error) {
	query := `
		SELECT id, created_at, source, m, confidence_level, null_value, fingerprint, row_count, failed_rows
		FROM pooling_runs
		ORDER BY created_at DESC
	`

	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pooling runs: %w", err)
	}
	defer rows.Close()

	var runs []pooling.PoolingRun
	for rows.Next() {
		var run pooling.PoolingRun
		var createdAt time.Time

		err := rows.Scan(
			&run.ID, &createdAt, &run.Source, &run.M, &run.ConfidenceLevel,
			&run.NullValue, &run.Fingerprint, &run.Rows, &run.FailedRows,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pooling run: %w", err)
		}
		run.CreatedAt = core.NewTimestamp(createdAt)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
