package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"funnelab/adapters/postgres"
	"funnelab/adapters/stats"
	appsvc "funnelab/app"
	"funnelab/domain/experiment"
	"funnelab/internal"
	"funnelab/internal/config"
)

// analyze runs the experiment decision engine against the warehouse and
// prints one report per experiment.
func main() {
	confidence := flag.Float64("confidence", stats.DefaultConfidenceLevel, "confidence level for the z-test")
	minSample := flag.Int("min-sample", stats.DefaultMinSampleSize, "minimum users per variant")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	logger := internal.NewDefaultLogger()
	reader := postgres.NewAggregateRepository(db)
	engine := stats.NewEngine(*confidence, *minSample)
	analyzer := appsvc.NewAnalyzerService(reader, engine, logger)

	results, err := analyzer.AnalyzeAll(context.Background())
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	if len(results) == 0 {
		fmt.Println("No experiment data found in warehouse.")
		return
	}

	for _, r := range results {
		fmt.Println(experiment.FormatReport(r))
		fmt.Println()
	}
}
