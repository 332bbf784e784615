package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"living-population/internal/models"
	"living-population/internal/pipeline"
	"living-population/pkg/logging"
	"living-population/pkg/metrics"
	"living-population/pkg/workerpool"
)

// InputFile is one uploaded or discovered file
type InputFile struct {
	Name    string
	Content []byte
}

// MergeOptions configures a MergeService
type MergeOptions struct {
	Workers          int
	ChunkSize        int
	Encodings        []string
	RequireSelection bool
}

// MergeService runs the per-file pipeline over a batch and merges the results
type MergeService struct {
	decoders         []pipeline.Decoder
	workers          int
	chunkSize        int
	requireSelection bool
	logger           *logging.StructuredLogger
	metrics          *metrics.Collector
}

// MergeRequest is one merge of files sharing a shape
type MergeRequest struct {
	Shape  *models.ShapeDescriptor
	Files  []InputFile
	Filter models.FilterSpec
}

// FileOutcome reports what happened to one file
type FileOutcome struct {
	Filename  string            `json:"filename"`
	Shape     string            `json:"shape,omitempty"`
	Rows      int               `json:"rows"`
	Encoding  string            `json:"encoding,omitempty"`
	Delimiter string            `json:"delimiter,omitempty"`
	Stats     pipeline.RowStats `json:"stats"`
	Warning   string            `json:"warning,omitempty"`
	Error     string            `json:"error,omitempty"`
	Err       error             `json:"-"`
}

// OK reports whether the file was processed, including files with zero rows
func (o FileOutcome) OK() bool {
	return o.Err == nil
}

// MergeResult is the merged table plus every file's outcome in input order
type MergeResult struct {
	RequestID string
	Shape     *models.ShapeDescriptor
	Filter    models.FilterSpec
	Table     *models.Table
	Outcomes  []FileOutcome
	Duration  time.Duration
}

// Succeeded returns the number of files processed without error
func (r *MergeResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of files skipped because of an error
func (r *MergeResult) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// NewMergeService creates a merge service
func NewMergeService(opts MergeOptions, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*MergeService, error) {
	decoders, err := pipeline.ResolveDecoders(opts.Encodings)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &MergeService{
		decoders:         decoders,
		workers:          workers,
		chunkSize:        opts.ChunkSize,
		requireSelection: opts.RequireSelection,
		logger:           logger,
		metrics:          metricsCollector,
	}, nil
}

// Decoders returns the configured encoding candidates
func (s *MergeService) Decoders() []pipeline.Decoder {
	return s.decoders
}

// withRequestID reuses the caller's request id or starts a new one
func withRequestID(ctx context.Context) (context.Context, string) {
	if id := logging.RequestIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return logging.WithRequestID(ctx, id), id
}

// CheckSelection applies the empty selection policy
func (s *MergeService) CheckSelection(filter models.FilterSpec) error {
	if s.requireSelection && filter.IsEmpty() {
		return models.ErrSelectionRequired
	}
	return nil
}

type fileRun struct {
	outcome FileOutcome
	table   *models.Table
}

// Merge processes every file on a bounded pool and merges the successful
// tables. A failing file never stops the others; only when no file
// succeeds is an *models.AggregateFailure returned.
func (s *MergeService) Merge(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	ctx, requestID := withRequestID(ctx)
	startTime := time.Now()

	if req.Shape == nil {
		return nil, &models.ValidationError{Field: "shape", Message: "merge requires a shape"}
	}
	if len(req.Files) == 0 {
		return nil, &models.ValidationError{Field: "files", Message: "no input files"}
	}
	if err := s.CheckSelection(req.Filter); err != nil {
		return nil, err
	}

	p, err := pipeline.New(req.Shape, req.Filter, pipeline.Options{
		Decoders:  s.decoders,
		ChunkSize: s.chunkSize,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ActiveMerges.Inc()
	defer s.metrics.ActiveMerges.Dec()

	s.logger.Info(ctx, "[MERGE_START] Starting merge", logging.Fields{
		"shape":      req.Shape.Name,
		"file_count": len(req.Files),
		"filter":     req.Filter.String(),
		"workers":    s.workers,
		"stage":      "INITIALIZATION",
	})

	runs := workerpool.Map(ctx, s.workers, len(req.Files), func(ctx context.Context, i int) fileRun {
		return s.processFile(ctx, p, req.Files[i])
	})
	if err := ctx.Err(); err != nil {
		s.logger.Warn(ctx, "[MERGE_CANCELLED] Merge abandoned", logging.Fields{
			"shape": req.Shape.Name,
		})
		return nil, err
	}

	result := &MergeResult{
		RequestID: requestID,
		Shape:     req.Shape,
		Filter:    req.Filter,
		Outcomes:  make([]FileOutcome, len(runs)),
	}

	var tables []*models.Table
	var failures []models.FileError
	for i, run := range runs {
		result.Outcomes[i] = run.outcome
		if run.outcome.Err != nil {
			failures = append(failures, models.FileError{Filename: run.outcome.Filename, Err: run.outcome.Err})
			continue
		}
		tables = append(tables, run.table)
	}

	if len(tables) == 0 {
		s.logger.Error(ctx, "[MERGE_FAILED] No file could be processed", logging.Fields{
			"shape":      req.Shape.Name,
			"file_count": len(req.Files),
			"stage":      "COMPLETE",
		}, nil)
		return nil, models.NewAggregateFailure(failures)
	}

	merged, err := pipeline.MergeTables(tables)
	if err != nil {
		return nil, fmt.Errorf("failed to merge tables: %w", err)
	}
	result.Table = merged
	result.Duration = time.Since(startTime)

	s.metrics.MergeDuration.Observe(result.Duration.Seconds())
	s.metrics.MergedRows.Observe(float64(merged.Len()))

	s.logger.Info(ctx, "[MERGE_COMPLETE] Merge completed", logging.Fields{
		"shape":            req.Shape.Name,
		"file_count":       len(req.Files),
		"succeeded":        len(tables),
		"failed":           len(failures),
		"merged_rows":      merged.Len(),
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

func (s *MergeService) processFile(ctx context.Context, p *pipeline.Pipeline, file InputFile) fileRun {
	fileLogger := s.logger.WithFields(logging.Fields{
		"file":  file.Name,
		"shape": p.Shape().Name,
	})
	timer := s.metrics.NewTimer(s.metrics.FileProcessingDuration)
	outcome := FileOutcome{Filename: file.Name, Shape: p.Shape().Name}

	res, err := p.Process(ctx, file.Name, file.Content)
	duration := timer.ObserveDuration()
	if err != nil {
		outcome.Err = err
		outcome.Error = err.Error()
		s.metrics.RecordFileOutcome(outcomeLabel(err))
		fileLogger.Error(ctx, "[MERGE_FILE_ERROR] File skipped", logging.Fields{
			"stage": "FILE_PROCESSING",
		}, err)
		return fileRun{outcome: outcome}
	}

	outcome.Rows = res.Table.Len()
	outcome.Encoding = res.Encoding
	outcome.Delimiter = pipeline.DelimiterName(res.Delimiter)
	outcome.Stats = res.Stats

	s.metrics.RecordRows("read", res.Stats.Read)
	s.metrics.RecordRows("dropped", res.Stats.Dropped)
	s.metrics.RecordRows("filtered", res.Stats.Filtered)
	s.metrics.RecordRows("emitted", res.Stats.Emitted)

	if outcome.Rows == 0 {
		warning := &models.EmptyResultWarning{
			Filename: file.Name,
			RowsRead: res.Stats.Read,
			Filter:   p.Filter().String(),
		}
		outcome.Warning = warning.Error()
		s.metrics.RecordFileOutcome("empty")
		fileLogger.Warn(ctx, "[MERGE_FILE_EMPTY] File produced no rows", logging.Fields{
			"rows_read": res.Stats.Read,
			"dropped":   res.Stats.Dropped,
			"filtered":  res.Stats.Filtered,
			"stage":     "FILE_COMPLETE",
		})
	} else {
		s.metrics.RecordFileOutcome("ok")
		fileLogger.Info(ctx, "[MERGE_FILE_SUCCESS] File processed", logging.Fields{
			"rows":        outcome.Rows,
			"rows_read":   res.Stats.Read,
			"dropped":     res.Stats.Dropped,
			"filtered":    res.Stats.Filtered,
			"encoding":    res.Encoding,
			"delimiter":   outcome.Delimiter,
			"duration_ms": duration.Milliseconds(),
			"stage":       "FILE_COMPLETE",
		})
	}

	return fileRun{outcome: outcome, table: res.Table}
}

func outcomeLabel(err error) string {
	var encErr *models.EncodingError
	var schemaErr *models.SchemaError
	switch {
	case errors.As(err, &encErr):
		return "encoding_error"
	case errors.As(err, &schemaErr):
		return "schema_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

// ShapeMerge is the merge of one shape group within an automatic merge
type ShapeMerge struct {
	Shape  *models.ShapeDescriptor
	Files  []string
	Result *MergeResult
	Err    error
}

// AutoMergeResult groups files by shape. Files matching no shape are
// reported in Other.
type AutoMergeResult struct {
	RequestID string
	Groups    []ShapeMerge
	Other     []FileOutcome
}

// Merged returns the groups that produced a table
func (r *AutoMergeResult) Merged() []ShapeMerge {
	var out []ShapeMerge
	for _, g := range r.Groups {
		if g.Err == nil && g.Result != nil {
			out = append(out, g)
		}
	}
	return out
}

// Failures returns the files in Other that could not be read. Files that
// were read but match no shape are not failures.
func (r *AutoMergeResult) Failures() []FileOutcome {
	var out []FileOutcome
	for _, o := range r.Other {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// MergeAuto classifies files by name, falling back to their header, and
// runs one merge per shape so shapes are never mixed in one table.
func (s *MergeService) MergeAuto(ctx context.Context, files []InputFile, filter models.FilterSpec) (*AutoMergeResult, error) {
	ctx, requestID := withRequestID(ctx)

	if len(files) == 0 {
		return nil, &models.ValidationError{Field: "files", Message: "no input files"}
	}
	if err := s.CheckSelection(filter); err != nil {
		return nil, err
	}

	result := &AutoMergeResult{RequestID: requestID}
	groups := make(map[models.ShapeKind][]InputFile)

	for _, f := range files {
		kind, err := pipeline.SniffShape(f.Name, f.Content, s.decoders)
		if err != nil {
			result.Other = append(result.Other, FileOutcome{Filename: f.Name, Err: err, Error: err.Error()})
			s.metrics.RecordFileOutcome(outcomeLabel(err))
			continue
		}
		if kind == models.ShapeUnknown {
			result.Other = append(result.Other, FileOutcome{
				Filename: f.Name,
				Shape:    kind.String(),
				Warning:  "file matches no known shape",
			})
			s.metrics.RecordFileOutcome("unmatched")
			continue
		}
		groups[kind] = append(groups[kind], f)
	}

	s.logger.Info(ctx, "[MERGE_AUTO_CLASSIFIED] Files grouped by shape", logging.Fields{
		"foreign":  len(groups[models.ShapeForeign]),
		"domestic": len(groups[models.ShapeDomestic]),
		"other":    len(result.Other),
	})

	for _, shape := range models.Shapes {
		group := groups[shape.Kind]
		if len(group) == 0 {
			continue
		}
		names := make([]string, len(group))
		for i, f := range group {
			names[i] = f.Name
		}

		res, err := s.Merge(ctx, MergeRequest{Shape: shape, Files: group, Filter: filter})
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.Groups = append(result.Groups, ShapeMerge{Shape: shape, Files: names, Result: res, Err: err})
	}

	return result, nil
}
