package main

import (
	"context"
	"flag"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"funnelab/adapters/postgres"
	"funnelab/adapters/stats"
	appsvc "funnelab/app"
	"funnelab/internal"
	"funnelab/internal/config"
)

// export writes the dashboard JSON document, plus optional Excel and
// HTML renderings of the experiment results.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	out := flag.String("out", cfg.Export.OutputPath, "output JSON path")
	xlsx := flag.String("xlsx", cfg.Export.ExcelPath, "optional Excel workbook path")
	html := flag.String("html", cfg.Export.HTMLPath, "optional HTML report path")
	flag.Parse()

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	logger := internal.NewDefaultLogger()
	reader := postgres.NewAggregateRepository(db)
	engine := stats.NewEngine(cfg.Analysis.ConfidenceLevel, cfg.Analysis.MinSampleSize)
	exporter := appsvc.NewExportService(reader, engine, logger)

	ctx := context.Background()
	if _, err := exporter.ExportJSON(ctx, *out); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	if *xlsx != "" {
		if err := exporter.ExportExcel(ctx, *xlsx); err != nil {
			log.Fatalf("Excel export failed: %v", err)
		}
	}
	if *html != "" {
		if err := exporter.ExportHTML(ctx, *html); err != nil {
			log.Fatalf("HTML export failed: %v", err)
		}
	}
}
