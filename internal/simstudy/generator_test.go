package simstudy

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"mipool/adapters/excel"
	"mipool/domain/pooling"
)

func TestGenerate_Determinism(t *testing.T) {
	cfg := DefaultConfig()

	first, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(first.Records) != len(second.Records) {
		t.Fatalf("record counts differ: %d vs %d", len(first.Records), len(second.Records))
	}
	for i := range first.Records {
		if first.Records[i] != second.Records[i] {
			t.Fatalf("record %d differs between runs with same seed", i)
		}
	}

	cfg.Seed = 43
	third, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	same := true
	for i := range first.Records {
		if first.Records[i] != third.Records[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical records")
	}
}

func TestGenerate_Shape(t *testing.T) {
	cfg := Config{Imputations: 4, Coefficients: 3, Seed: 7, CompleteDF: 30, MissingRate: 0.2}

	ds, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(ds.Records) != 12 {
		t.Fatalf("expected 12 records, got %d", len(ds.Records))
	}
	if len(ds.Truth) != 3 {
		t.Fatalf("expected 3 true effects, got %d", len(ds.Truth))
	}

	counts := make(map[string]int)
	for _, rec := range ds.Records {
		counts[rec.Coefficient]++
		if rec.Imputation < 1 || rec.Imputation > 4 {
			t.Errorf("imputation index out of range: %d", rec.Imputation)
		}
		if rec.StdError <= 0 {
			t.Errorf("non-positive std error generated: %g", rec.StdError)
		}
		if rec.DF != 30 {
			t.Errorf("expected df 30, got %g", rec.DF)
		}
	}
	for _, name := range []string{"intercept", "age", "bmi"} {
		if counts[name] != 4 {
			t.Errorf("expected 4 records for %s, got %d", name, counts[name])
		}
	}
}

func TestGenerate_PoolsCleanly(t *testing.T) {
	ds, err := Generate(DefaultConfig())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	table, err := pooling.BuildTable(ds.Records, pooling.DefaultSummarizeOptions())
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}

	if table.FailedRows() != 0 {
		t.Fatalf("expected no failed rows, got %d", table.FailedRows())
	}
	if len(table.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(table.Rows))
	}

	for i, truth := range ds.Truth {
		row := table.Rows[i]
		if row.Coefficient != truth.Coefficient {
			t.Fatalf("row %d: expected coefficient %s, got %s", i, truth.Coefficient, row.Coefficient)
		}
		if row.M != 20 {
			t.Errorf("%s: expected m=20, got %d", row.Coefficient, row.M)
		}
		// Pooled estimate should land near the known true effect.
		if math.Abs(row.Estimate-truth.Effect) > 5*truth.BaseSE {
			t.Errorf("%s: pooled estimate %g too far from true effect %g",
				row.Coefficient, row.Estimate, truth.Effect)
		}
		if row.MissingInfo <= 0 || row.MissingInfo >= 1 {
			t.Errorf("%s: missing info %g outside (0,1)", row.Coefficient, row.MissingInfo)
		}
	}
}

func TestGenerate_MissingRateTargeted(t *testing.T) {
	cfg := Config{Imputations: 500, Coefficients: 3, Seed: 11, CompleteDF: 80, MissingRate: 0.3}

	ds, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	table, err := pooling.BuildTable(ds.Records, pooling.DefaultSummarizeOptions())
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}

	for _, row := range table.Rows {
		if row.MissingInfo < 0.2 || row.MissingInfo > 0.4 {
			t.Errorf("%s: missing info %g far from target 0.3", row.Coefficient, row.MissingInfo)
		}
	}
}

func TestGenerate_InvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"one imputation", Config{Imputations: 1, Coefficients: 2, CompleteDF: 10, MissingRate: 0.2}},
		{"no coefficients", Config{Imputations: 5, Coefficients: 0, CompleteDF: 10, MissingRate: 0.2}},
		{"zero df", Config{Imputations: 5, Coefficients: 2, CompleteDF: 0, MissingRate: 0.2}},
		{"missing rate one", Config{Imputations: 5, Coefficients: 2, CompleteDF: 10, MissingRate: 1.0}},
	}

	for _, tc := range cases {
		if _, err := Generate(tc.cfg); err == nil {
			t.Errorf("%s: expected error, got none", tc.name)
		}
	}
}

func TestWriteCSV_ReadableByEstimateReader(t *testing.T) {
	ds, err := Generate(Config{Imputations: 3, Coefficients: 2, Seed: 5, CompleteDF: 25, MissingRate: 0.25})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "study.csv")
	if err := WriteCSV(path, ds.Records); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	reader, err := excel.NewEstimateReader(path, "")
	if err != nil {
		t.Fatalf("NewEstimateReader failed: %v", err)
	}
	got, err := reader.ReadRecords(context.Background())
	if err != nil {
		t.Fatalf("ReadRecords failed: %v", err)
	}

	if len(got) != len(ds.Records) {
		t.Fatalf("expected %d records, got %d", len(ds.Records), len(got))
	}
	for i := range got {
		if got[i] != ds.Records[i] {
			t.Errorf("record %d did not survive the round trip: wrote %+v, read %+v",
				i, ds.Records[i], got[i])
		}
	}
}

func TestWriteXLSX_ReadableByEstimateReader(t *testing.T) {
	ds, err := Generate(Config{Imputations: 3, Coefficients: 2, Seed: 5, CompleteDF: 25, MissingRate: 0.25})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "study.xlsx")
	if err := WriteXLSX(path, ds.Records); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}

	reader, err := excel.NewEstimateReader(path, "")
	if err != nil {
		t.Fatalf("NewEstimateReader failed: %v", err)
	}
	got, err := reader.ReadRecords(context.Background())
	if err != nil {
		t.Fatalf("ReadRecords failed: %v", err)
	}

	if len(got) != len(ds.Records) {
		t.Fatalf("expected %d records, got %d", len(ds.Records), len(got))
	}
	for i := range got {
		if got[i] != ds.Records[i] {
			t.Errorf("record %d did not survive the round trip: wrote %+v, read %+v",
				i, ds.Records[i], got[i])
		}
	}
}
