package services

import (
	"context"
	"fmt"

	"living-population/internal/models"
	"living-population/internal/regions"
	"living-population/internal/repository"
	"living-population/pkg/logging"
	"living-population/pkg/metrics"
)

// Region sources
const (
	RegionSourceEmbedded = "embedded"
	RegionSourceFile     = "file"
	RegionSourceDatabase = "database"
)

// RegionService answers region selection queries from an immutable lookup
type RegionService struct {
	lookup  *regions.Lookup
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewRegionService creates a region service
func NewRegionService(lookup *regions.Lookup, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *RegionService {
	return &RegionService{
		lookup:  lookup,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// LoadLookup builds the lookup once from the configured source. repo is
// only used for the database source.
func LoadLookup(ctx context.Context, source, path string, repo repository.RegionRepository, logger *logging.StructuredLogger) (*regions.Lookup, error) {
	var (
		lookup *regions.Lookup
		err    error
	)

	switch source {
	case RegionSourceEmbedded, "":
		lookup, err = regions.Embedded()
	case RegionSourceFile:
		lookup, err = regions.LoadFile(path)
	case RegionSourceDatabase:
		if repo == nil {
			return nil, fmt.Errorf("region source %q requires a database", source)
		}
		var entries []models.RegionEntry
		entries, err = repo.ListRegions(ctx)
		if err == nil {
			lookup, err = regions.NewLookup(entries)
		}
	default:
		return nil, fmt.Errorf("unsupported region source %q", source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load regions from %s: %w", source, err)
	}

	logger.Info(ctx, "[REGIONS_LOADED] Region lookup ready", logging.Fields{
		"source":    source,
		"path":      path,
		"regions":   lookup.Len(),
		"districts": len(lookup.Districts()),
	})
	return lookup, nil
}

// Lookup returns the underlying lookup
func (s *RegionService) Lookup() *regions.Lookup {
	return s.lookup
}

// Districts returns the selectable districts
func (s *RegionService) Districts() []string {
	return s.lookup.Districts()
}

// SubDistricts returns the selectable sub-districts of a district
func (s *RegionService) SubDistricts(district string) ([]string, error) {
	return s.lookup.SubDistricts(district)
}

// FilterFor translates a district and sub-district selection into a filter.
// Explicit codes are added to the selection.
func (s *RegionService) FilterFor(ctx context.Context, district string, subDistricts []string, codes string) (models.FilterSpec, error) {
	filter, err := s.lookup.FilterFor(district, subDistricts)
	if err != nil {
		return models.FilterSpec{}, err
	}
	if extra := models.ParseFilterSpec(codes); !extra.IsEmpty() {
		filter = filter.Union(extra)
	}

	s.logger.Debug(ctx, "[REGIONS_FILTER] Selection translated", logging.Fields{
		"district":      district,
		"sub_districts": subDistricts,
		"prefixes":      filter.Len(),
	})
	return filter, nil
}

// Describe returns the regions behind a set of codes
func (s *RegionService) Describe(codes []string) []models.RegionEntry {
	return s.lookup.Describe(codes)
}

// Sync copies the lookup into the region store
func (s *RegionService) Sync(ctx context.Context, repo repository.RegionRepository) (int, error) {
	n, err := repo.ReplaceRegions(ctx, s.lookup.Entries())
	if err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "[REGIONS_SYNCED] Region store updated", logging.Fields{
		"regions": n,
	})
	return n, nil
}
