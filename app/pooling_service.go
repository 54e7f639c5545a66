package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"mipool/domain/core"
	"mipool/domain/pooling"
	"mipool/internal"
	"mipool/ports"
)

// PoolingService coordinates a full pooling pass: grouping records by
// coefficient, pooling each group with bounded parallelism, fingerprinting
// the table and optionally persisting the run.
type PoolingService struct {
	repo           ports.RunRepositoryPort // nil disables persistence
	maxConcurrency int64
	logger         *internal.Logger
}

// PoolRequest defines the inputs for one pooling pass
type PoolRequest struct {
	Records         []pooling.ImputationRecord
	Source          string  // free-form input label (filename, "api", ...)
	ConfidenceLevel float64 // 0 means the 0.95 default
	NullValue       float64
	Persist         bool
}

// PoolResult contains the complete output of a pooling pass
type PoolResult struct {
	Run         pooling.PoolingRun  `json:"run"`
	Table       pooling.ResultTable `json:"table"`
	Fingerprint core.Hash           `json:"fingerprint"`
	RuntimeMs   int64               `json:"runtime_ms"`
	Persisted   bool                `json:"persisted"`
	Success     bool                `json:"success"`
}

// NewPoolingService creates a pooling service. Pass a nil repository to run
// without persistence.
func NewPoolingService(repo ports.RunRepositoryPort, maxConcurrency int) *PoolingService {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &PoolingService{
		repo:           repo,
		maxConcurrency: int64(maxConcurrency),
		logger:         internal.NewDefaultLogger(),
	}
}

// RunPooling executes one pooling pass over the request records. Coefficient
// groups pool independently, so the result table can be partial; the whole
// call fails only on empty input, an invalid confidence level, cancellation
// or a storage error.
func (s *PoolingService) RunPooling(ctx context.Context, req PoolRequest) (*PoolResult, error) {
	startTime := time.Now()

	if len(req.Records) == 0 {
		return nil, fmt.Errorf("no records to pool")
	}

	opts := pooling.DefaultSummarizeOptions()
	if req.ConfidenceLevel != 0 {
		opts.ConfidenceLevel = req.ConfidenceLevel
	}
	opts.NullValue = req.NullValue
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	table, err := s.buildTableParallel(ctx, req.Records, opts)
	if err != nil {
		return nil, err
	}

	m := 0
	for _, row := range table.Rows {
		if row.M > m {
			m = row.M
		}
	}

	fingerprint := s.computeTableFingerprint(req.Source, opts, table)
	run := pooling.NewPoolingRun(req.Source, m, opts, table, fingerprint)

	persisted := false
	if req.Persist {
		if s.repo == nil {
			return nil, fmt.Errorf("persistence requested but no repository configured")
		}
		if err := s.repo.SaveRun(ctx, run, table); err != nil {
			return nil, fmt.Errorf("failed to store pooling run: %w", err)
		}
		persisted = true
	}

	s.logger.Info("Pooled %d coefficients from %s in %.2fs", run.Rows, req.Source, time.Since(startTime).Seconds())
	if s.logger.GetLevel() >= internal.LogLevelDebug && run.FailedRows > 0 {
		s.logger.Debug("Pooling failures: %d of %d coefficients", run.FailedRows, run.Rows)
	}

	return &PoolResult{
		Run:         run,
		Table:       table,
		Fingerprint: fingerprint,
		RuntimeMs:   time.Since(startTime).Milliseconds(),
		Persisted:   persisted,
		Success:     table.FailedRows() == 0,
	}, nil
}

// buildTableParallel pools coefficient groups concurrently under a weighted
// semaphore. Row order and row values match the sequential BuildTable
// exactly; only the evaluation order differs.
func (s *PoolingService) buildTableParallel(ctx context.Context, records []pooling.ImputationRecord, opts pooling.SummarizeOptions) (pooling.ResultTable, error) {
	groups := pooling.GroupRecords(records)
	rows := make([]pooling.ResultRow, len(groups))

	sem := semaphore.NewWeighted(s.maxConcurrency)
	var wg sync.WaitGroup

	for i, g := range groups {
		wg.Add(1)
		go func(i int, g pooling.Group) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				rows[i] = pooling.ResultRow{Coefficient: g.Coefficient, M: len(g.Records), Err: err}
				return
			}
			defer sem.Release(1)

			rows[i] = pooling.BuildRow(g.Coefficient, g.Records, opts)
		}(i, g)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return pooling.ResultTable{}, err
	}
	return pooling.ResultTable{Rows: rows}, nil
}

// computeTableFingerprint creates a deterministic fingerprint for a pooled
// table: same source, options and rows always hash the same.
func (s *PoolingService) computeTableFingerprint(source string, opts pooling.SummarizeOptions, table pooling.ResultTable) core.Hash {
	data := fmt.Sprintf("%s|%g|%g", source, opts.ConfidenceLevel, opts.NullValue)

	for _, row := range table.Rows {
		if row.Failed() {
			data += fmt.Sprintf("|%s:%d:failed", row.Coefficient, row.M)
			continue
		}
		data += fmt.Sprintf("|%s:%d:%.12g:%.12g:%.12g:%.12g",
			row.Coefficient, row.M, row.Estimate, row.StdError, row.DF, row.PValue)
	}

	return core.NewHash([]byte(data))
}

// GetRun loads a stored run and its table
func (s *PoolingService) GetRun(ctx context.Context, runID core.RunID) (*pooling.PoolingRun, pooling.ResultTable, error) {
	if s.repo == nil {
		return nil, pooling.ResultTable{}, fmt.Errorf("run storage is not configured")
	}
	return s.repo.GetRun(ctx, runID)
}

// ListRuns returns recent stored runs, newest first
func (s *PoolingService) ListRuns(ctx context.Context, limit int) ([]pooling.PoolingRun, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("run storage is not configured")
	}
	return s.repo.ListRuns(ctx, limit)
}
