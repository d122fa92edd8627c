package main

import (
	"context"
	"flag"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"funnelab/adapters/postgres"
	"funnelab/internal/config"
	"funnelab/internal/migration"
	"funnelab/internal/testkit"
)

// simulate loads a deterministic synthetic dataset into the warehouse
// so the funnel and experiment pipeline can be exercised end to end.
func main() {
	defaults := testkit.DefaultSimulatorConfig()
	users := flag.Int("users", defaults.UserCount, "number of simulated users")
	seed := flag.Int64("seed", defaults.Seed, "random seed")
	lift := flag.Float64("lift", defaults.TreatmentLift, "relative treatment conversion lift")
	experimentID := flag.String("experiment", defaults.ExperimentID, "experiment id to assign")
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

	ctx := context.Background()
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	simCfg := defaults
	simCfg.UserCount = *users
	simCfg.Seed = *seed
	simCfg.TreatmentLift = *lift
	simCfg.ExperimentID = *experimentID

	events := testkit.NewEventSimulator(simCfg).GenerateEvents()
	log.Printf("Generated %d events for %d users", len(events), *users)

	store := postgres.NewEventRepository(db)
	inserted, duplicates, err := store.InsertEvents(ctx, events)
	if err != nil {
		log.Fatalf("Insert failed: %v", err)
	}
	log.Printf("Inserted %d events (%d duplicates skipped)", inserted, duplicates)
}
