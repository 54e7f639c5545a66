package ports

import (
	"context"

	"mipool/domain/core"
	"mipool/domain/pooling"
)

// RunRepositoryPort persists pooling runs and their result rows. Reads
// return core.ErrNotFound-wrapped errors for unknown run IDs.
type RunRepositoryPort interface {
	// SaveRun stores the run record and every table row atomically.
	SaveRun(ctx context.Context, run pooling.PoolingRun, table pooling.ResultTable) error

	// GetRun loads one run and its table in stored row order.
	GetRun(ctx context.Context, runID core.RunID) (*pooling.PoolingRun, pooling.ResultTable, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]pooling.PoolingRun, error)
}
