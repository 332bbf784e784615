package repository

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"living-population/internal/models"
	"living-population/pkg/database"
	"living-population/pkg/logging"
	"living-population/pkg/metrics"
)

func newTestRepository(t *testing.T) RegionRepository {
	t.Helper()

	logger := logging.NewStructuredLogger("test", "0.0.0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())

	// a single connection keeps the in-memory database alive
	db, err := database.Open(&database.Config{
		Driver:       database.DriverSQLite,
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger, collector)
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewRegionRepository(db, logger, collector)
	if err := repo.Migrate(context.Background(), "up"); err != nil {
		t.Fatalf("Migrate(up) error = %v", err)
	}
	return repo
}

func TestRegionRepository_ReplaceAndList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	entries := []models.RegionEntry{
		{AdminCode: "11040650", Province: "서울특별시", District: "성동구", SubDistrict: "왕십리도선동"},
		{AdminCode: "11010530", Province: "서울특별시", District: "종로구", SubDistrict: "사직동"},
		{AdminCode: "11040520", Province: "서울특별시", District: "성동구", SubDistrict: "왕십리2동"},
	}
	n, err := repo.ReplaceRegions(ctx, entries)
	if err != nil {
		t.Fatalf("ReplaceRegions() error = %v", err)
	}
	if n != 3 {
		t.Errorf("ReplaceRegions() = %d, want 3", n)
	}

	all, err := repo.ListRegions(ctx)
	if err != nil {
		t.Fatalf("ListRegions() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListRegions() = %d rows, want 3", len(all))
	}
	if all[0].SubDistrict != "왕십리2동" || all[0].Prefix != "1104052" {
		t.Errorf("first row = %+v, want 왕십리2동 / 1104052", all[0])
	}

	seongdong, err := repo.ListByDistrict(ctx, "성동구")
	if err != nil {
		t.Fatalf("ListByDistrict() error = %v", err)
	}
	if len(seongdong) != 2 {
		t.Errorf("ListByDistrict(성동구) = %d rows, want 2", len(seongdong))
	}

	var nf *models.NotFoundError
	if _, err := repo.ListByDistrict(ctx, "강서구"); !errors.As(err, &nf) {
		t.Errorf("ListByDistrict(unknown) error = %v, want NotFoundError", err)
	}

	// replacing drops the previous rows
	if _, err := repo.ReplaceRegions(ctx, entries[:1]); err != nil {
		t.Fatalf("ReplaceRegions() error = %v", err)
	}
	count, err := repo.CountRegions(ctx)
	if err != nil {
		t.Fatalf("CountRegions() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountRegions() = %d, want 1", count)
	}
}

func TestRegionRepository_MigrateDown(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.Migrate(ctx, "down"); err != nil {
		t.Fatalf("Migrate(down) error = %v", err)
	}
	if _, err := repo.CountRegions(ctx); err == nil {
		t.Error("CountRegions() after down migration should fail")
	}
	if err := repo.Migrate(ctx, "sideways"); err == nil {
		t.Error("Migrate(sideways) should fail")
	}
	if err := repo.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
