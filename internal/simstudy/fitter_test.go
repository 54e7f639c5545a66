package simstudy

import (
	"context"
	"testing"

	"mipool/domain/pooling"
	"mipool/ports"
)

// TestFitter_ProvidesPoolableRecords drives the generator through the
// model-fitter contract and pools the result end to end
func TestFitter_ProvidesPoolableRecords(t *testing.T) {
	cfg := DefaultConfig()
	var fitter ports.ModelFitterPort = NewFitter(cfg)

	records, err := fitter.FitImputations(context.Background())
	if err != nil {
		t.Fatalf("fit imputations: %v", err)
	}
	if len(records) != cfg.Imputations*cfg.Coefficients {
		t.Fatalf("expected %d records, got %d", cfg.Imputations*cfg.Coefficients, len(records))
	}

	table, err := pooling.BuildTable(records, pooling.DefaultSummarizeOptions())
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	if len(table.Rows) != cfg.Coefficients {
		t.Errorf("expected %d pooled rows, got %d", cfg.Coefficients, len(table.Rows))
	}
	if table.FailedRows() != 0 {
		t.Errorf("expected no failed rows, got %d", table.FailedRows())
	}
}

// TestFitter_Deterministic verifies repeated fits with one config are
// identical record for record
func TestFitter_Deterministic(t *testing.T) {
	fitter := NewFitter(DefaultConfig())

	first, err := fitter.FitImputations(context.Background())
	if err != nil {
		t.Fatalf("first fit: %v", err)
	}
	second, err := fitter.FitImputations(context.Background())
	if err != nil {
		t.Fatalf("second fit: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("record counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("record %d differs between fits:\n %+v\n %+v", i, first[i], second[i])
		}
	}
}

// TestFitter_CancelledContext verifies the fit respects cancellation
func TestFitter_CancelledContext(t *testing.T) {
	fitter := NewFitter(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fitter.FitImputations(ctx); err == nil {
		t.Error("expected error from cancelled context, got none")
	}
}

// TestFitter_InvalidConfig propagates generator validation
func TestFitter_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Imputations = 1

	if _, err := NewFitter(cfg).FitImputations(context.Background()); err == nil {
		t.Error("expected error for single-imputation config, got none")
	}
}
