package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"living-population/internal/config"
	"living-population/internal/regions"
	"living-population/internal/repository"
	"living-population/internal/services"
	"living-population/pkg/database"
	"living-population/pkg/logging"
	"living-population/pkg/metrics"
)

// app carries what every subcommand needs
type app struct {
	cfg     *config.Config
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	db      *database.DB
}

func newApp(logLevel, logFormat string) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewStructuredLogger("population-merger", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	logger.SetOutput(os.Stderr)
	logger.SetFormat(logging.ParseFormat(cfg.Logging.Format))

	return &app{
		cfg:     cfg,
		logger:  logger,
		// one-shot runs are never scraped
		metrics: metrics.NewCollectorWithRegistry("living_population_cli", prometheus.NewRegistry()),
	}, nil
}

// lookup loads regions, opening the database when they are stored there
func (a *app) lookup(ctx context.Context) (*regions.Lookup, error) {
	var repo repository.RegionRepository
	if a.cfg.Regions.Source == services.RegionSourceDatabase {
		db, err := database.Open(a.cfg.Database.Connection(), a.logger, a.metrics)
		if err != nil {
			return nil, err
		}
		a.db = db
		repo = repository.NewRegionRepository(db, a.logger, a.metrics)
	}
	return services.LoadLookup(ctx, a.cfg.Regions.Source, a.cfg.Regions.Path, repo, a.logger)
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

func newRootCommand() *cobra.Command {
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:           "merger",
		Short:         "Merge Seoul living population exports into one workbook",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format on stderr: text or json")

	setup := func() (*app, error) { return newApp(logLevel, logFormat) }
	root.AddCommand(
		newRunCommand(setup),
		newPreviewCommand(setup),
		newRegionsCommand(setup),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
