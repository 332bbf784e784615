package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"living-population/internal/models"
)

func sampleTable() *models.Table {
	return &models.Table{
		Shape: models.ForeignShape,
		Records: []models.Record{
			{
				Date:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
				Hour:   14,
				Code:   "0104065001",
				Values: []decimal.Decimal{decimal.RequireFromString("10.5"), decimal.NewFromInt(3), decimal.NewFromInt(2)},
			},
			{
				Date:   time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
				Hour:   0,
				Code:   "1104065001",
				Values: []decimal.Decimal{decimal.NewFromInt(1), decimal.Zero, decimal.NewFromInt(1)},
			},
		},
	}
}

func TestExportService_FileName(t *testing.T) {
	logger, m := testDeps(t)
	svc := NewExportService(models.EnglishLabels, logger, m)

	now := time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)
	if got := svc.FileName("merged", now); got != "merged_20240305_070809.xlsx" {
		t.Errorf("FileName() = %q, want merged_20240305_070809.xlsx", got)
	}
}

func TestExportService_WriteWorkbook(t *testing.T) {
	tests := []struct {
		name    string
		labels  models.Labels
		header  []string
		weekday string
		dayType string
	}{
		{
			name:    "english",
			labels:  models.EnglishLabels,
			header:  []string{"DATE", "WEEKDAY", "DAY_TYPE", "TIME", "CODE", "ALL", "CHN", "EXP_CHN"},
			weekday: "Friday",
			dayType: "weekday",
		},
		{
			name:    "korean",
			labels:  models.KoreanLabels,
			header:  []string{"DATE", "요일", "주중_or_주말", "TIME", "CODE", "ALL", "CHN", "EXP_CHN"},
			weekday: "금요일",
			dayType: "주중",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, m := testDeps(t)
			svc := NewExportService(tt.labels, logger, m)

			var buf bytes.Buffer
			if err := svc.WriteWorkbook(context.Background(), &buf, sampleTable()); err != nil {
				t.Fatalf("WriteWorkbook() error = %v", err)
			}

			f, err := excelize.OpenReader(&buf)
			if err != nil {
				t.Fatalf("OpenReader() error = %v", err)
			}
			defer f.Close()

			rows, err := f.GetRows(SheetName)
			if err != nil {
				t.Fatalf("GetRows() error = %v", err)
			}
			if len(rows) != 3 {
				t.Fatalf("rows = %d, want 3", len(rows))
			}
			if strings.Join(rows[0], ",") != strings.Join(tt.header, ",") {
				t.Errorf("header = %v, want %v", rows[0], tt.header)
			}

			first := rows[1]
			if first[0] != "2024-03-01" || first[1] != tt.weekday || first[2] != tt.dayType {
				t.Errorf("first row = %v", first)
			}
			if first[3] != "14" || first[4] != "0104065001" || first[5] != "10.5" {
				t.Errorf("first row = %v, want TIME 14, CODE 0104065001, ALL 10.5", first)
			}
			if rows[2][2] != tt.labels.Weekend {
				t.Errorf("2024-03-02 DAY_TYPE = %q, want %q", rows[2][2], tt.labels.Weekend)
			}

			if got := testutil.ToFloat64(m.ExportsTotal.WithLabelValues("ok")); got != 1 {
				t.Errorf("ok exports = %v, want 1", got)
			}
		})
	}
}

func TestExportService_WriteWorkbookEmpty(t *testing.T) {
	logger, m := testDeps(t)
	svc := NewExportService(models.EnglishLabels, logger, m)

	err := svc.WriteWorkbook(context.Background(), &bytes.Buffer{}, &models.Table{Shape: models.ForeignShape})
	if !errors.Is(err, models.ErrEmptyResult) {
		t.Errorf("error = %v, want ErrEmptyResult", err)
	}
	if got := testutil.ToFloat64(m.ExportsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("error exports = %v, want 1", got)
	}
}

func TestExportService_RowLimit(t *testing.T) {
	logger, m := testDeps(t)
	svc := NewExportService(models.EnglishLabels, logger, m)

	if err := svc.CheckTable(sampleTable()); err != nil {
		t.Fatalf("CheckTable() with default limit error = %v", err)
	}

	svc.SetMaxRows(1)
	var buf bytes.Buffer
	err := svc.WriteWorkbook(context.Background(), &buf, sampleTable())
	var limitErr *models.RowLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("error = %v, want *models.RowLimitError", err)
	}
	if limitErr.Rows != 2 || limitErr.Limit != 1 {
		t.Errorf("RowLimitError = %+v, want 2 rows over 1", limitErr)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes, want none", buf.Len())
	}

	dir := t.TempDir()
	if _, err := svc.SaveWorkbook(context.Background(), dir, "merged", sampleTable(), time.Now()); !errors.As(err, &limitErr) {
		t.Errorf("SaveWorkbook() error = %v, want *models.RowLimitError", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("SaveWorkbook() left %d files behind", len(entries))
	}

	svc.SetMaxRows(excelize.TotalRows)
	if err := svc.CheckTable(sampleTable()); err == nil {
		t.Error("limit above the worksheet capacity should be ignored")
	}
}

func TestExportService_SaveWorkbook(t *testing.T) {
	logger, m := testDeps(t)
	svc := NewExportService(models.EnglishLabels, logger, m)
	dir := filepath.Join(t.TempDir(), "out")

	now := time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)
	path, err := svc.SaveWorkbook(context.Background(), dir, "merged", sampleTable(), now)
	if err != nil {
		t.Fatalf("SaveWorkbook() error = %v", err)
	}
	if filepath.Base(path) != "merged_20240305_070809.xlsx" {
		t.Errorf("path = %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("workbook not written: %v", err)
	}

	if _, err := svc.SaveWorkbook(context.Background(), dir, "empty", &models.Table{Shape: models.ForeignShape}, now); !errors.Is(err, models.ErrEmptyResult) {
		t.Errorf("empty table error = %v, want ErrEmptyResult", err)
	}
}
