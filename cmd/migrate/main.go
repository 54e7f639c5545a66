package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"mipool/adapters/excel"
	"mipool/adapters/postgres"
	"mipool/app"
	"mipool/internal/migration"
)

// Backfills a run store from a directory of estimate files. Each csv/xlsx
// file becomes one persisted pooling run.
func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <database_url> <estimates_dir>")
	}

	databaseURL := os.Args[1]
	estimatesDir := os.Args[2]

	log.Printf("Starting backfill from %s to database %s", estimatesDir, databaseURL)

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	service := app.NewPoolingService(postgres.NewRunRepository(db), 4)

	files, err := findEstimateFiles(estimatesDir)
	if err != nil {
		log.Fatalf("Failed to find estimate files: %v", err)
	}

	log.Printf("Found %d estimate files to backfill", len(files))

	pooled := 0
	skipped := 0

	for _, file := range files {
		reader, err := excel.NewEstimateReader(file, "")
		if err != nil {
			log.Printf("Skipping %s: %v", file, err)
			skipped++
			continue
		}

		records, err := reader.ReadRecords(ctx)
		if err != nil {
			log.Printf("Failed to read estimates from %s: %v", file, err)
			skipped++
			continue
		}

		result, err := service.RunPooling(ctx, app.PoolRequest{
			Records: records,
			Source:  filepath.Base(file),
			Persist: true,
		})
		if err != nil {
			log.Printf("Failed to pool %s: %v", file, err)
			skipped++
			continue
		}

		pooled++
		log.Printf("Pooled %s as run %s (%d coefficients, %d failed)",
			filepath.Base(file), result.Run.ID, result.Run.Rows, result.Run.FailedRows)
	}

	log.Printf("Backfill complete: %d pooled, %d skipped", pooled, skipped)
}

func findEstimateFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv", ".xlsx", ".xls":
			files = append(files, path)
		}

		return nil
	})

	return files, err
}
