package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"mipool/domain/pooling"
	"mipool/ports"
)

// TableWriter exports pooled result tables to Excel or CSV files. Rows that
// failed to pool carry their error message in the last column and leave the
// numeric columns blank.
type TableWriter struct {
	sheet string
}

// Ensure TableWriter implements TableWriterPort
var _ ports.TableWriterPort = (*TableWriter)(nil)

// NewTableWriter creates a writer. The sheet name is only used for Excel
// output; pass "" for the default sheet.
func NewTableWriter(sheet string) *TableWriter {
	if sheet == "" {
		sheet = "Sheet1"
	}
	return &TableWriter{sheet: sheet}
}

var resultHeader = []string{
	"coefficient", "m", "estimate", "std_error", "t_statistic",
	"df", "p_value", "ci_lower", "ci_upper", "missing_info", "error",
}

// WriteTable writes the table to the given path, choosing the format from
// the file extension.
func (w *TableWriter) WriteTable(ctx context.Context, table pooling.ResultTable, path string) error {
	startTime := time.Now()

	rows := formatRows(table)

	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		err = w.writeXLSX(path, rows)
	case ".csv":
		err = w.writeCSV(path, rows)
	default:
		return fmt.Errorf("unsupported output file type: %s (supported: .xlsx, .csv)", ext)
	}
	if err != nil {
		return err
	}

	log.Printf("[TableWriter] Wrote %d rows to %s in %v", len(table.Rows), path, time.Since(startTime))
	return nil
}

func (w *TableWriter) writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(resultHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (w *TableWriter) writeXLSX(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if w.sheet != "Sheet1" {
		if _, err := f.NewSheet(w.sheet); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", w.sheet, err)
		}
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("failed to remove default sheet: %w", err)
		}
	}

	for i, h := range resultHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(w.sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	for r, row := range rows {
		for c, val := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("failed to compute data cell: %w", err)
			}
			if err := f.SetCellValue(w.sheet, cell, val); err != nil {
				return fmt.Errorf("failed to write data cell: %w", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

func formatRows(table pooling.ResultTable) [][]string {
	rows := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		if row.Failed() {
			rows = append(rows, []string{
				row.Coefficient, strconv.Itoa(row.M),
				"", "", "", "", "", "", "", "",
				row.Err.Error(),
			})
			continue
		}
		rows = append(rows, []string{
			row.Coefficient,
			strconv.Itoa(row.M),
			fToStr(row.Estimate),
			fToStr(row.StdError),
			fToStr(row.TStatistic),
			fToStr(row.DF),
			fToStr(row.PValue),
			fToStr(row.CILower),
			fToStr(row.CIUpper),
			fToStr(row.MissingInfo),
			"",
		})
	}
	return rows
}

// fToStr formats a float with full round-trip precision.
func fToStr(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
