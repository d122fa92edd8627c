package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"funnelab/adapters/postgres"
	"funnelab/adapters/stats"
	appsvc "funnelab/app"
	"funnelab/internal"
	"funnelab/internal/api"
	"funnelab/internal/config"
	"funnelab/internal/errors"
	"funnelab/internal/migration"
)

// initDatabase opens the warehouse connection and brings the schema up
// to date.
func initDatabase(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	logger := internal.NewDefaultLogger()
	store := postgres.NewEventRepository(db)
	reader := postgres.NewAggregateRepository(db)
	engine := stats.NewEngine(cfg.Analysis.ConfidenceLevel, cfg.Analysis.MinSampleSize)
	analyzer := appsvc.NewAnalyzerService(reader, engine, logger)

	collector := api.NewApp(api.Config{MaxBatchSize: cfg.Ingest.MaxBatchSize}, store, analyzer, logger)
	if err := collector.ListenAndServe(cfg.Server.Port); err != nil {
		log.Fatalf("Collector server failed: %v", err)
	}
}
