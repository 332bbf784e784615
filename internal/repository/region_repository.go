package repository

import (
	"context"
	"fmt"
	"time"

	"living-population/internal/models"
	"living-population/migrations"
	"living-population/pkg/database"
	"living-population/pkg/logging"
	"living-population/pkg/metrics"
)

// RegionRepository stores the region reference table
type RegionRepository interface {
	Migrate(ctx context.Context, direction string) error
	ReplaceRegions(ctx context.Context, entries []models.RegionEntry) (int, error)
	ListRegions(ctx context.Context) ([]models.RegionEntry, error)
	ListByDistrict(ctx context.Context, district string) ([]models.RegionEntry, error)
	CountRegions(ctx context.Context) (int, error)
	HealthCheck(ctx context.Context) error
}

// regionRepository implements RegionRepository
type regionRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewRegionRepository creates a new region repository
func NewRegionRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) RegionRepository {
	return &regionRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Migrate applies the bundled schema in the given direction
func (r *regionRepository) Migrate(ctx context.Context, direction string) error {
	stmts, err := migrations.Statements(direction)
	if err != nil {
		return err
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, "migrate_"+direction, stmt); err != nil {
			return fmt.Errorf("failed to run %s migration: %w", direction, err)
		}
	}

	r.logger.Info(ctx, "[REPO_MIGRATE] Schema migration applied", logging.Fields{
		"direction":  direction,
		"statements": len(stmts),
	})
	return nil
}

// ReplaceRegions swaps the whole table for entries in one transaction
func (r *regionRepository) ReplaceRegions(ctx context.Context, entries []models.RegionEntry) (int, error) {
	timer := time.Now()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM regions"); err != nil {
		return 0, fmt.Errorf("failed to clear regions: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO regions (admin_code, province, district, sub_district, prefix7, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.AdminCode, e.Province, e.District, e.SubDistrict, models.CodePrefix(e.AdminCode), now); err != nil {
			return 0, fmt.Errorf("failed to insert region %s: %w", e.AdminCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.DBQueryDuration.WithLabelValues("replace_regions").Observe(time.Since(timer).Seconds())
	r.logger.Info(ctx, "[REPO_REPLACE_REGIONS] Region table replaced", logging.Fields{
		"count":       len(entries),
		"duration_ms": time.Since(timer).Milliseconds(),
	})

	return len(entries), nil
}

// ListRegions returns every region ordered by district and name
func (r *regionRepository) ListRegions(ctx context.Context) ([]models.RegionEntry, error) {
	query := `
		SELECT admin_code, province, district, sub_district, prefix7
		FROM regions
		ORDER BY district, sub_district, admin_code
	`

	var entries []models.RegionEntry
	if err := r.db.SelectContext(ctx, "list_regions", &entries, query); err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	return entries, nil
}

// ListByDistrict returns the regions of one district
func (r *regionRepository) ListByDistrict(ctx context.Context, district string) ([]models.RegionEntry, error) {
	query := r.db.Rebind(`
		SELECT admin_code, province, district, sub_district, prefix7
		FROM regions
		WHERE district = ?
		ORDER BY sub_district, admin_code
	`)

	var entries []models.RegionEntry
	if err := r.db.SelectContext(ctx, "list_regions_by_district", &entries, query, district); err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	if len(entries) == 0 {
		return nil, &models.NotFoundError{Resource: "district", ID: district}
	}
	return entries, nil
}

// CountRegions returns the number of stored regions
func (r *regionRepository) CountRegions(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, "count_regions", &n, "SELECT COUNT(*) FROM regions"); err != nil {
		return 0, fmt.Errorf("failed to count regions: %w", err)
	}
	return n, nil
}

// HealthCheck performs a repository health check
func (r *regionRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
