package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"living-population/internal/config"
	"living-population/internal/repository"
	"living-population/internal/services"
	"living-population/pkg/database"
	"living-population/pkg/logging"
	"living-population/pkg/metrics"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	seed := flag.Bool("seed", false, "Load the region table after migrating up")
	seedSource := flag.String("seed-source", services.RegionSourceEmbedded, "Region source for -seed: embedded or file")
	seedPath := flag.String("seed-path", "", "Region TSV file for -seed-source=file")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("population-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	logger.SetOutput(os.Stderr)
	logger.SetFormat(logging.ParseFormat(cfg.Logging.Format))
	metricsCollector := metrics.NewCollector("living_population_migrate")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("Connected to database successfully")

	repo := repository.NewRegionRepository(db, logger, metricsCollector)

	fmt.Printf("Running migration: %s\n", *direction)
	if err := repo.Migrate(ctx, *direction); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Migration completed successfully")

	if !*seed || *direction != "up" {
		return
	}

	lookup, err := services.LoadLookup(ctx, *seedSource, *seedPath, nil, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load regions: %v\n", err)
		os.Exit(1)
	}

	n, err := services.NewRegionService(lookup, logger, metricsCollector).Sync(ctx, repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to seed regions: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded %d regions\n", n)
}
