// Package testkit provides in-memory port implementations and canned
// estimate fixtures for tests that exercise the pooling pipeline without a
// database or input files.
package testkit

import (
	"context"
	"fmt"
	"sync"

	"mipool/domain/core"
	"mipool/domain/pooling"
	"mipool/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	repo *InMemoryRunRepository // Shared repository instance
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{repo: NewInMemoryRunRepository()}
}

// RunRepository returns the shared in-memory run repository
func (t *TestKit) RunRepository() ports.RunRepositoryPort {
	return t.repo
}

// KnownRecords returns the worked three-imputation example whose pooled
// values are known in closed form: estimates {1.0, 1.2, 0.8}, standard
// error 0.3162 (variance 0.1), complete-data df 20.
func KnownRecords() []pooling.ImputationRecord {
	se := 0.31622776601683794 // sqrt(0.1)
	return []pooling.ImputationRecord{
		{Imputation: 1, Coefficient: "age", Estimate: 1.0, StdError: se, DF: 20},
		{Imputation: 2, Coefficient: "age", Estimate: 1.2, StdError: se, DF: 20},
		{Imputation: 3, Coefficient: "age", Estimate: 0.8, StdError: se, DF: 20},
	}
}

// MixedRecords returns a multi-coefficient input where one coefficient has
// a single record and therefore fails to pool.
func MixedRecords() []pooling.ImputationRecord {
	return []pooling.ImputationRecord{
		{Imputation: 1, Coefficient: "age", Estimate: 1.0, StdError: 0.3, DF: 20},
		{Imputation: 2, Coefficient: "age", Estimate: 1.2, StdError: 0.3, DF: 20},
		{Imputation: 3, Coefficient: "age", Estimate: 0.8, StdError: 0.3, DF: 20},
		{Imputation: 1, Coefficient: "dose", Estimate: -0.5, StdError: 0.1, DF: 20},
		{Imputation: 2, Coefficient: "dose", Estimate: -0.45, StdError: 0.11, DF: 20},
		{Imputation: 3, Coefficient: "dose", Estimate: -0.55, StdError: 0.09, DF: 20},
		{Imputation: 1, Coefficient: "lonely", Estimate: 0.1, StdError: 0.05, DF: 20},
	}
}

// storedRun pairs a run record with its table rows
type storedRun struct {
	run   pooling.PoolingRun
	table pooling.ResultTable
}

// InMemoryRunRepository implements RunRepositoryPort with in-memory storage
type InMemoryRunRepository struct {
	runs  map[core.RunID]storedRun
	order []core.RunID // insertion order, oldest first
	mu    sync.RWMutex
}

func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{
		runs: make(map[core.RunID]storedRun),
	}
}

func (s *InMemoryRunRepository) SaveRun(ctx context.Context, run pooling.PoolingRun, table pooling.ResultTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run already stored: %s", run.ID)
	}

	// Copy rows so later mutation by the caller cannot change stored state
	copied := pooling.ResultTable{Rows: make([]pooling.ResultRow, len(table.Rows))}
	copy(copied.Rows, table.Rows)

	s.runs[run.ID] = storedRun{run: run, table: copied}
	s.order = append(s.order, run.ID)
	return nil
}

func (s *InMemoryRunRepository) GetRun(ctx context.Context, runID core.RunID) (*pooling.PoolingRun, pooling.ResultTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.runs[runID]
	if !exists {
		return nil, pooling.ResultTable{}, core.NewRunNotFoundError(runID)
	}

	run := stored.run
	table := pooling.ResultTable{Rows: make([]pooling.ResultRow, len(stored.table.Rows))}
	copy(table.Rows, stored.table.Rows)

	return &run, table, nil
}

func (s *InMemoryRunRepository) ListRuns(ctx context.Context, limit int) ([]pooling.PoolingRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]pooling.PoolingRun, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		runs = append(runs, s.runs[s.order[i]].run)
		if limit > 0 && len(runs) >= limit {
			break
		}
	}
	return runs, nil
}

// Len reports how many runs are stored
func (s *InMemoryRunRepository) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
