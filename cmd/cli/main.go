package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mipool/adapters/excel"
	"mipool/app"
	apperrors "mipool/internal/errors"
	"mipool/internal/simstudy"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mipool",
		Short: "Pool multiply-imputed regression estimates with Rubin's rules",
	}

	rootCmd.AddCommand(
		newPoolCmd(),
		newGenerateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newPoolCmd() *cobra.Command {
	var input string
	var output string
	var sheet string
	var confidence float64
	var nullValue float64
	var concurrency int

	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Pool per-imputation estimates into one inference table",
		Long: `Read per-imputation coefficient estimates from an Excel or CSV file,
combine them with Rubin's rules and Barnard-Rubin adjusted degrees of
freedom, and write the pooled result table.

The input needs a header row naming the imputation, coefficient, estimate,
std_error and df columns. Without --output the result is printed as JSON.

Example: mipool pool --input estimates.xlsx --output pooled.csv --confidence 0.95`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPool(cmd.Context(), input, output, sheet, confidence, nullValue, concurrency)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Estimate file to pool (.xlsx or .csv)")
	cmd.Flags().StringVar(&output, "output", "", "Result file path (.xlsx or .csv); empty prints JSON")
	cmd.Flags().StringVar(&sheet, "sheet", "Sheet1", "Sheet name for Excel input and output")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.95, "Confidence level for intervals, strictly between 0 and 1")
	cmd.Flags().Float64Var(&nullValue, "null", 0, "Null value for the t-statistic")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Maximum coefficients pooled in parallel")
	cmd.MarkFlagRequired("input")

	return cmd
}

func runPool(ctx context.Context, input, output, sheet string, confidence, nullValue float64, concurrency int) error {
	reader, err := excel.NewEstimateReader(input, sheet)
	if err != nil {
		return err
	}
	records, err := reader.ReadRecords(ctx)
	if err != nil {
		return apperrors.IOError("failed to read estimates", err)
	}

	service := app.NewPoolingService(nil, concurrency)
	result, err := service.RunPooling(ctx, app.PoolRequest{
		Records:         records,
		Source:          filepath.Base(input),
		ConfidenceLevel: confidence,
		NullValue:       nullValue,
	})
	if err != nil {
		return err
	}

	for _, row := range result.Table.Rows {
		if !row.Failed() {
			continue
		}
		fmt.Fprintf(os.Stderr, "warning: coefficient %s failed to pool: %v\n", row.Coefficient, row.Err)
	}

	if output == "" {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	writer := excel.NewTableWriter(sheet)
	if err := writer.WriteTable(ctx, result.Table, output); err != nil {
		return apperrors.IOError("failed to write results", err)
	}

	fmt.Printf("Pooled %d coefficients (%d failed) in %dms\n",
		result.Run.Rows, result.Run.FailedRows, result.RuntimeMs)
	fmt.Printf("Results written to %s\n", output)
	fmt.Printf("Fingerprint: %s\n", result.Fingerprint)
	return nil
}

func newGenerateCmd() *cobra.Command {
	var output string
	var imputations int
	var coefficients int
	var seed int64
	var missingRate float64
	var completeDF float64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic estimate file with known true effects",
		Long: `Generate per-imputation estimates for a synthetic simulation study and
write them as an estimate file the pool command can read. The same seed
always reproduces the same study.

Example: mipool generate --output estimates.csv --imputations 20 --coefficients 5 --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(output, imputations, coefficients, seed, missingRate, completeDF)
		},
	}

	cmd.Flags().StringVar(&output, "output", "estimates.xlsx", "Output file path (.xlsx or .csv)")
	cmd.Flags().IntVar(&imputations, "imputations", 20, "Number of completed datasets (m)")
	cmd.Flags().IntVar(&coefficients, "coefficients", 5, "Number of synthetic coefficients")
	cmd.Flags().Int64Var(&seed, "seed", 42, "RNG seed (deterministic)")
	cmd.Flags().Float64Var(&missingRate, "missing-rate", 0.3, "Target fraction of missing information, in [0, 1)")
	cmd.Flags().Float64Var(&completeDF, "df", 50, "Complete-data residual degrees of freedom")

	return cmd
}

func runGenerate(output string, imputations, coefficients int, seed int64, missingRate, completeDF float64) error {
	cfg := simstudy.DefaultConfig()
	cfg.Imputations = imputations
	cfg.Coefficients = coefficients
	cfg.Seed = seed
	cfg.MissingRate = missingRate
	cfg.CompleteDF = completeDF

	ds, err := simstudy.Generate(cfg)
	if err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(output)); ext {
	case ".csv":
		err = simstudy.WriteCSV(output, ds.Records)
	case ".xlsx":
		err = simstudy.WriteXLSX(output, ds.Records)
	default:
		return fmt.Errorf("unsupported output file type: %s (supported: .xlsx, .csv)", ext)
	}
	if err != nil {
		return apperrors.IOError("failed to write estimates", err)
	}

	fmt.Printf("Synthetic study written to %s\n", output)
	fmt.Printf("Coefficients: %d | Imputations: %d | Records: %d\n",
		len(ds.Truth), cfg.Imputations, len(ds.Records))
	return nil
}
