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

// EstimateReader loads per-imputation coefficient estimates from Excel or
// CSV files. The first row must be a header naming the imputation,
// coefficient, estimate, std_error and df columns; column order is free.
type EstimateReader struct {
	filePath string
	fileType string
	sheet    string
}

// Ensure EstimateReader implements EstimateSourcePort
var _ ports.EstimateSourcePort = (*EstimateReader)(nil)

// NewEstimateReader creates a reader for the given file path, detecting the
// file type from its extension. The sheet name is only used for Excel files;
// pass "" to read the default sheet.
func NewEstimateReader(filePath string, sheet string) (*EstimateReader, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	var fileType string
	switch ext {
	case ".xlsx", ".xls":
		fileType = "excel"
	case ".csv":
		fileType = "csv"
	default:
		return nil, fmt.Errorf("unsupported file type: %s (supported: .xlsx, .xls, .csv)", ext)
	}

	if sheet == "" {
		sheet = "Sheet1"
	}

	return &EstimateReader{
		filePath: filePath,
		fileType: fileType,
		sheet:    sheet,
	}, nil
}

// ReadRecords reads the file and returns one record per row, in file order.
func (r *EstimateReader) ReadRecords(ctx context.Context) ([]pooling.ImputationRecord, error) {
	startTime := time.Now()
	log.Printf("[EstimateReader] Starting read of file: %s (type: %s)", r.filePath, r.fileType)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", r.filePath)
	}

	var rows [][]string
	var err error

	switch r.fileType {
	case "excel":
		rows, err = r.readExcelRows()
	case "csv":
		rows, err = r.readCSVRows()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}

	records, err := parseRecords(rows)
	if err != nil {
		return nil, err
	}

	log.Printf("[EstimateReader] Read completed in %v, %d records", time.Since(startTime), len(records))
	return records, nil
}

func (r *EstimateReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", r.sheet, err)
	}
	return rows, nil
}

func (r *EstimateReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV data: %w", err)
	}
	return rows, nil
}

// Column header aliases. Estimates exported from model-fitting tools name
// these columns inconsistently; the canonical form is the map value.
var headerAliases = map[string]string{
	"imputation":     "imputation",
	"imp":            "imputation",
	"coefficient":    "coefficient",
	"term":           "coefficient",
	"estimate":       "estimate",
	"std_error":      "std_error",
	"std.error":      "std_error",
	"standard_error": "std_error",
	"df":             "df",
	"df.residual":    "df",
}

func parseRecords(rows [][]string) ([]pooling.ImputationRecord, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("file must contain at least a header row and one data row")
	}

	cols, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}

	records := make([]pooling.ImputationRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2

		if isEmptyRow(row) {
			continue
		}

		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("file contains no data rows")
	}
	return records, nil
}

func mapHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int)
	for i, cell := range header {
		name, ok := headerAliases[strings.ToLower(strings.TrimSpace(cell))]
		if !ok {
			continue
		}
		if _, dup := cols[name]; dup {
			return nil, fmt.Errorf("duplicate column %q in header", name)
		}
		cols[name] = i
	}

	for _, required := range []string{"imputation", "coefficient", "estimate", "std_error", "df"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q in header", required)
		}
	}
	return cols, nil
}

func parseRow(row []string, cols map[string]int) (pooling.ImputationRecord, error) {
	cell := func(name string) (string, error) {
		idx := cols[name]
		if idx >= len(row) {
			return "", fmt.Errorf("missing value for column %q", name)
		}
		return strings.TrimSpace(row[idx]), nil
	}

	var rec pooling.ImputationRecord

	impStr, err := cell("imputation")
	if err != nil {
		return rec, err
	}
	imputation, err := strconv.Atoi(impStr)
	if err != nil {
		return rec, fmt.Errorf("invalid imputation index %q: %w", impStr, err)
	}

	coefficient, err := cell("coefficient")
	if err != nil {
		return rec, err
	}

	floats := make(map[string]float64, 3)
	for _, name := range []string{"estimate", "std_error", "df"} {
		raw, err := cell(name)
		if err != nil {
			return rec, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return rec, fmt.Errorf("invalid %s value %q: %w", name, raw, err)
		}
		floats[name] = v
	}

	// Validated construction so a bad row fails here with its row number
	// instead of later inside the pooler.
	return pooling.NewImputationRecord(imputation, coefficient,
		floats["estimate"], floats["std_error"], floats["df"])
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
