package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"living-population/internal/models"
	"living-population/pkg/logging"
	"living-population/pkg/metrics"
)

// SheetName is the name of the single worksheet in exported workbooks
const SheetName = "merged"

// ExportService writes merged tables as spreadsheets
type ExportService struct {
	labels  models.Labels
	maxRows int
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewExportService creates an export service using labels for the derived columns
func NewExportService(labels models.Labels, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ExportService {
	return &ExportService{
		labels:  labels,
		maxRows: excelize.TotalRows - 1,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// SetMaxRows lowers the number of data rows a workbook may hold. Values
// outside (0, excelize.TotalRows-1] are ignored.
func (s *ExportService) SetMaxRows(n int) {
	if n > 0 && n < excelize.TotalRows {
		s.maxRows = n
	}
}

// CheckTable reports whether table can be written as one worksheet
func (s *ExportService) CheckTable(table *models.Table) error {
	if table.Len() == 0 {
		return models.ErrEmptyResult
	}
	if table.Len() > s.maxRows {
		return &models.RowLimitError{Rows: table.Len(), Limit: s.maxRows}
	}
	return nil
}

// FileName returns <prefix>_YYYYMMDD_HHMMSS.xlsx for now
func (s *ExportService) FileName(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", prefix, now.Format("20060102_150405"))
}

// Row returns the output cells of one record in header order
func (s *ExportService) Row(r *models.Record) []interface{} {
	row := make([]interface{}, 0, 5+len(r.Values))
	row = append(row,
		r.DateString(),
		s.labels.WeekdayName(r.Date),
		s.labels.DayType(r.Date),
		r.Hour,
		r.Code,
	)
	for _, v := range r.Values {
		row = append(row, v.InexactFloat64())
	}
	return row
}

// WriteWorkbook streams table into a one sheet workbook. Tables refused by
// CheckTable are not written.
func (s *ExportService) WriteWorkbook(ctx context.Context, w io.Writer, table *models.Table) (err error) {
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.ExportsTotal.WithLabelValues(status).Inc()
	}()

	if err := s.CheckTable(table); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := table.Shape.Header(s.labels)
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range table.Records {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, s.Row(&table.Records[i])); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Debug(ctx, "[EXPORT_WRITTEN] Workbook written", logging.Fields{
		"shape": table.Shape.Name,
		"rows":  table.Len(),
	})
	return nil
}

// SaveWorkbook writes table to dir under a timestamped name and returns the path
func (s *ExportService) SaveWorkbook(ctx context.Context, dir, prefix string, table *models.Table, now time.Time) (string, error) {
	if err := s.CheckTable(table); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, s.FileName(prefix, now))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := s.WriteWorkbook(ctx, file, table); err != nil {
		file.Close()
		os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	s.logger.Info(ctx, "[EXPORT_SAVED] Workbook saved", logging.Fields{
		"path":  path,
		"shape": table.Shape.Name,
		"rows":  table.Len(),
	})
	return path, nil
}
