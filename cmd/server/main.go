package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"living-population/internal/config"
	"living-population/internal/handlers"
	"living-population/internal/models"
	"living-population/internal/repository"
	"living-population/internal/services"
	"living-population/pkg/database"
	"living-population/pkg/logging"
	"living-population/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("population-api", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	logger.SetFormat(logging.ParseFormat(cfg.Logging.Format))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting living population merge server", logging.Fields{
		"version":        "1.0.0",
		"server_host":    cfg.Server.Host,
		"server_port":    cfg.Server.Port,
		"workers":        cfg.Merge.Workers,
		"regions_source": cfg.Regions.Source,
	})

	metricsCollector := metrics.NewCollector("living_population")

	// The region store is only needed when regions are served from it
	var (
		regionRepo repository.RegionRepository
		health     handlers.HealthChecker
	)
	if cfg.Regions.Source == services.RegionSourceDatabase {
		db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()

		regionRepo = repository.NewRegionRepository(db, logger, metricsCollector)
		health = regionRepo
	}

	lookup, err := services.LoadLookup(ctx, cfg.Regions.Source, cfg.Regions.Path, regionRepo, logger)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load regions", logging.Fields{}, err)
	}

	// Initialize services
	mergeService, err := services.NewMergeService(services.MergeOptions{
		Workers:          cfg.Merge.Workers,
		ChunkSize:        cfg.Merge.ChunkSize,
		Encodings:        cfg.Merge.Encodings,
		RequireSelection: cfg.Merge.RequireSelection,
	}, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Invalid merge settings", logging.Fields{}, err)
	}
	exportService := services.NewExportService(models.LabelsByName(cfg.Merge.Labels), logger, metricsCollector)
	summaryService := services.NewSummaryService(lookup)
	regionService := services.NewRegionService(lookup, logger, metricsCollector)

	// Initialize handlers
	populationHandler := handlers.NewPopulationHandler(
		mergeService,
		exportService,
		summaryService,
		regionService,
		health,
		handlers.Options{
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			PreviewRows:    cfg.Merge.PreviewRows,
			OutputPrefix:   cfg.Merge.OutputPrefix,
		},
		logger,
		metricsCollector,
	)

	// Setup router
	router := mux.NewRouter()
	populationHandler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
