package main

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"mipool/adapters/excel"
	"mipool/adapters/postgres"
	"mipool/app"
	"mipool/internal/config"
	"mipool/internal/errors"
	"mipool/internal/migration"
	"mipool/ports"
	"mipool/ui"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var repo ports.RunRepositoryPort
	if appConfig.Database.Enabled() {
		db, err := initDatabase(appConfig)
		if err != nil {
			log.Fatal("Failed to initialize database:", err)
		}
		defer db.Close()
		repo = postgres.NewRunRepository(db)
		log.Println("Run persistence enabled")
	} else {
		log.Println("DATABASE_URL not set, running without run persistence")
	}

	service := app.NewPoolingService(repo, appConfig.Pooling.MaxConcurrency)

	if appConfig.Data.EstimatesFile != "" {
		if err := poolStartupFile(appConfig, service, repo != nil); err != nil {
			log.Fatalf("Failed to pool %s: %v", appConfig.Data.EstimatesFile, err)
		}
	}

	apiApp := ui.NewApp(ui.Config{Port: appConfig.Server.Port}, service)
	log.Fatal(apiApp.Start())
}

// initDatabase connects to PostgreSQL and runs migrations
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	dsn := appConfig.Database.URL
	if !strings.Contains(dsn, "sslmode=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "sslmode=" + appConfig.Database.SSLMode
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	db.SetMaxOpenConns(appConfig.Database.MaxOpenConns)
	db.SetMaxIdleConns(appConfig.Database.MaxIdleConns)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}

	return db, nil
}

// poolStartupFile ingests a configured estimates file once at boot so the
// run list is populated before the first request arrives.
func poolStartupFile(appConfig *config.Config, service *app.PoolingService, persist bool) error {
	reader, err := excel.NewEstimateReader(appConfig.Data.EstimatesFile, appConfig.Data.SheetName)
	if err != nil {
		return err
	}
	records, err := reader.ReadRecords(context.Background())
	if err != nil {
		return err
	}

	result, err := service.RunPooling(context.Background(), app.PoolRequest{
		Records:         records,
		Source:          filepath.Base(appConfig.Data.EstimatesFile),
		ConfidenceLevel: appConfig.Pooling.ConfidenceLevel,
		NullValue:       appConfig.Pooling.NullValue,
		Persist:         persist,
	})
	if err != nil {
		return err
	}

	log.Printf("Pooled %s: %d coefficients (%d failed), fingerprint %s",
		appConfig.Data.EstimatesFile, result.Run.Rows, result.Run.FailedRows, result.Fingerprint)
	return nil
}
