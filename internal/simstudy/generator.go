// Package simstudy generates synthetic per-imputation estimate sets with
// known true effects, for exercising the pooling pipeline end to end and
// for seeding demo files.
package simstudy

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"mipool/domain/pooling"
)

// Config controls the shape of a generated study.
type Config struct {
	Imputations  int     // number of completed datasets (m)
	Coefficients int     // number of synthetic coefficients
	Seed         int64   // rng seed; same seed reproduces the same study
	CompleteDF   float64 // complete-data residual degrees of freedom
	MissingRate  float64 // target fraction of missing information, in [0, 1)
}

// DefaultConfig returns a mid-sized study: 20 imputations over 5
// coefficients with moderate missingness.
func DefaultConfig() Config {
	return Config{
		Imputations:  20,
		Coefficients: 5,
		Seed:         42,
		CompleteDF:   50,
		MissingRate:  0.3,
	}
}

// TrueEffect records the ground truth a coefficient's estimates were drawn
// around, so tests can check pooled results against it.
type TrueEffect struct {
	Coefficient string
	Effect      float64
	BaseSE      float64
}

// Dataset is a generated study: the flat record list in row order plus the
// per-coefficient ground truth.
type Dataset struct {
	Records []pooling.ImputationRecord
	Truth   []TrueEffect
}

// Covariate names assigned in order; studies wider than the pool fall back
// to numbered covariates.
var covariateNames = []string{
	"intercept", "age", "bmi", "chl", "dose", "smoke",
	"sex", "treatment", "baseline", "weight",
}

// Generate builds a synthetic study. Each coefficient gets a true effect and
// a base standard error; per-imputation estimates are drawn around the true
// effect with between-imputation spread tuned so the expected fraction of
// missing information is close to cfg.MissingRate.
func Generate(cfg Config) (*Dataset, error) {
	if cfg.Imputations < 2 {
		return nil, fmt.Errorf("imputations must be at least 2, got %d", cfg.Imputations)
	}
	if cfg.Coefficients < 1 {
		return nil, fmt.Errorf("coefficients must be at least 1, got %d", cfg.Coefficients)
	}
	if cfg.CompleteDF <= 0 {
		return nil, fmt.Errorf("complete-data df must be positive, got %g", cfg.CompleteDF)
	}
	if cfg.MissingRate < 0 || cfg.MissingRate >= 1 {
		return nil, fmt.Errorf("missing rate must be in [0, 1), got %g", cfg.MissingRate)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	truth := make([]TrueEffect, cfg.Coefficients)
	for j := 0; j < cfg.Coefficients; j++ {
		truth[j] = TrueEffect{
			Coefficient: coefficientName(j),
			Effect:      rng.NormFloat64() * 2,
			BaseSE:      0.05 + rng.Float64()*0.3,
		}
	}

	records := make([]pooling.ImputationRecord, 0, cfg.Imputations*cfg.Coefficients)
	for i := 1; i <= cfg.Imputations; i++ {
		for j := range truth {
			t := truth[j]

			// Between-imputation spread such that B/(V_bar+B) lands near
			// the configured missing rate.
			betweenSD := t.BaseSE * math.Sqrt(cfg.MissingRate/(1-cfg.MissingRate))

			se := t.BaseSE * (1 + 0.05*rng.NormFloat64())
			if se <= 0 {
				se = t.BaseSE
			}

			records = append(records, pooling.ImputationRecord{
				Imputation:  i,
				Coefficient: t.Coefficient,
				Estimate:    t.Effect + rng.NormFloat64()*betweenSD,
				StdError:    se,
				DF:          cfg.CompleteDF,
			})
		}
	}

	return &Dataset{Records: records, Truth: truth}, nil
}

func coefficientName(j int) string {
	if j < len(covariateNames) {
		return covariateNames[j]
	}
	return fmt.Sprintf("x%d", j+1)
}

var estimateHeader = []string{"imputation", "coefficient", "estimate", "std_error", "df"}

// WriteCSV writes records as a CSV estimate file readable by the Excel
// adapter.
func WriteCSV(path string, records []pooling.ImputationRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(estimateHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(recordRow(rec)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteXLSX writes records as an Excel estimate file readable by the Excel
// adapter.
func WriteXLSX(path string, records []pooling.ImputationRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	for i, h := range estimateHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	for r, rec := range records {
		for c, val := range recordRow(rec) {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("failed to compute data cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("failed to write data cell: %w", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

func recordRow(rec pooling.ImputationRecord) []string {
	return []string{
		strconv.Itoa(rec.Imputation),
		rec.Coefficient,
		strconv.FormatFloat(rec.Estimate, 'g', -1, 64),
		strconv.FormatFloat(rec.StdError, 'g', -1, 64),
		strconv.FormatFloat(rec.DF, 'g', -1, 64),
	}
}
