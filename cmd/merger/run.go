package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"living-population/internal/models"
	"living-population/internal/regions"
	"living-population/internal/services"
	"living-population/pkg/logging"
)

type runOptions struct {
	shape        string
	district     string
	subDistricts []string
	codes        string
	outputDir    string
	prefix       string
	labels       string
	workers      int
	dryRun       bool
}

func newRunCommand(setup func() (*app, error)) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [files or directories...]",
		Short: "Merge files and write the workbook",
		Long: "Normalizes every input file, keeps the rows of the selected regions, " +
			"removes duplicates and writes one sorted workbook per shape.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()
			return runMerge(cmd.Context(), a, opts, args, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.shape, "shape", "auto", "Source layout: auto, foreign or domestic")
	f.StringVar(&opts.district, "district", regions.AllDistricts, "District name, "+regions.AllDistricts+" for all")
	f.StringSliceVar(&opts.subDistricts, "sub-district", nil, "Sub-districts of the district (repeatable)")
	f.StringVar(&opts.codes, "codes", "", "Extra region codes, comma or space separated")
	f.StringVar(&opts.outputDir, "output-dir", "", "Output directory (default MERGE_OUTPUT_DIR)")
	f.StringVar(&opts.prefix, "prefix", "", "Output file prefix (default MERGE_OUTPUT_PREFIX)")
	f.StringVar(&opts.labels, "labels", "", "Weekday labels: english or korean (default MERGE_LABELS)")
	f.IntVar(&opts.workers, "workers", 0, "Concurrent files (default MERGE_WORKERS)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Report without writing a workbook")
	return cmd
}

func runMerge(ctx context.Context, a *app, opts *runOptions, args []string, out io.Writer) error {
	cfg := a.cfg
	if opts.outputDir == "" {
		opts.outputDir = cfg.Merge.OutputDir
	}
	if opts.prefix == "" {
		opts.prefix = cfg.Merge.OutputPrefix
	}
	if opts.labels == "" {
		opts.labels = cfg.Merge.Labels
	}
	if opts.workers <= 0 {
		opts.workers = cfg.Merge.Workers
	}

	lookup, err := a.lookup(ctx)
	if err != nil {
		return err
	}
	regionService := services.NewRegionService(lookup, a.logger, a.metrics)
	filter, err := regionService.FilterFor(ctx, opts.district, opts.subDistricts, opts.codes)
	if err != nil {
		return err
	}

	files, err := collectInputs(args)
	if err != nil {
		return err
	}

	mergeService, err := services.NewMergeService(services.MergeOptions{
		Workers:          opts.workers,
		ChunkSize:        cfg.Merge.ChunkSize,
		Encodings:        cfg.Merge.Encodings,
		RequireSelection: cfg.Merge.RequireSelection,
	}, a.logger, a.metrics)
	if err != nil {
		return err
	}
	exportService := services.NewExportService(models.LabelsByName(opts.labels), a.logger, a.metrics)
	summaryService := services.NewSummaryService(lookup)

	ctx = logging.WithRequestID(ctx, fmt.Sprintf("cli-%d", time.Now().Unix()))

	var groups []services.ShapeMerge
	var other []services.FileOutcome
	if opts.shape == "" || opts.shape == "auto" {
		auto, err := mergeService.MergeAuto(ctx, files, filter)
		if err != nil {
			return err
		}
		groups, other = auto.Groups, auto.Other
	} else {
		kind, err := models.ParseShapeKind(opts.shape)
		if err != nil {
			return err
		}
		shape := models.ShapeByKind(kind)
		res, err := mergeService.Merge(ctx, services.MergeRequest{Shape: shape, Files: files, Filter: filter})
		if err != nil && ctx.Err() != nil {
			return err
		}
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = f.Name
		}
		groups = []services.ShapeMerge{{Shape: shape, Files: names, Result: res, Err: err}}
	}

	now := time.Now()
	written := 0
	for _, g := range groups {
		printGroup(out, g, filter, summaryService)
		if g.Err != nil || g.Result == nil {
			continue
		}
		if g.Result.Table.Len() == 0 {
			fmt.Fprintln(out, "No rows matched the selection; no workbook written")
			continue
		}
		if opts.dryRun {
			continue
		}

		prefix := opts.prefix
		if len(groups) > 1 {
			prefix = opts.prefix + "_" + g.Shape.Name
		}
		path, err := exportService.SaveWorkbook(ctx, opts.outputDir, prefix, g.Result.Table, now)
		if err != nil {
			return fmt.Errorf("failed to save %s workbook: %w", g.Shape.Name, err)
		}
		fmt.Fprintf(out, "Output:             %s\n", path)
		written++
	}

	if len(other) > 0 {
		fmt.Fprintf(out, "\nUnrecognized files (%d):\n", len(other))
		for _, o := range other {
			fmt.Fprintf(out, "  %s\n", outcomeLine(o))
		}
	}

	if len(groups) == 0 {
		var failures []models.FileError
		for _, o := range other {
			if !o.OK() {
				failures = append(failures, models.FileError{Filename: o.Filename, Err: o.Err})
			}
		}
		if len(failures) > 0 {
			return models.NewAggregateFailure(failures)
		}
		return fmt.Errorf("no input file matches a known shape")
	}
	for _, g := range groups {
		if g.Err != nil {
			return fmt.Errorf("%s merge failed: %w", g.Shape.Name, g.Err)
		}
	}
	if written == 0 && !opts.dryRun {
		return models.ErrEmptyResult
	}
	return nil
}

func printGroup(out io.Writer, g services.ShapeMerge, filter models.FilterSpec, summaryService *services.SummaryService) {
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintf(out, "MERGE %s\n", strings.ToUpper(g.Shape.Name))
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintf(out, "Files:              %d\n", len(g.Files))
	fmt.Fprintf(out, "Selection:          %s\n", filter.String())

	if g.Err != nil {
		fmt.Fprintf(out, "Result:             failed\n")
		var agg *models.AggregateFailure
		if errors.As(g.Err, &agg) {
			printReasons(out, agg.Reasons())
		} else {
			fmt.Fprintf(out, "  - %v\n", g.Err)
		}
		return
	}

	res := g.Result
	summary := summaryService.Summarize(res.Table)
	fmt.Fprintf(out, "Succeeded:          %d\n", res.Succeeded())
	fmt.Fprintf(out, "Failed:             %d\n", res.Failed())
	fmt.Fprintf(out, "Rows:               %d\n", summary.Rows)
	if summary.Rows > 0 {
		fmt.Fprintf(out, "Dates:              %s .. %s\n", summary.FirstDate, summary.LastDate)
		fmt.Fprintf(out, "Regions:            %d codes in %d prefixes\n", summary.DistinctCodes, len(summary.Regions))
	}
	fmt.Fprintf(out, "Duration:           %v\n", res.Duration)

	fmt.Fprintf(out, "\nFiles (%d):\n", len(res.Outcomes))
	for _, o := range res.Outcomes {
		fmt.Fprintf(out, "  %s\n", outcomeLine(o))
	}
}

// outcomeLine renders one file's row count, or the reason it was skipped
func outcomeLine(o services.FileOutcome) string {
	// reasons usually carry the file name already
	reason := func(s string) string { return strings.TrimPrefix(s, o.Filename+": ") }
	switch {
	case o.Err != nil:
		return fmt.Sprintf("FAIL %s: %s", o.Filename, reason(o.Error))
	case o.Warning != "":
		return fmt.Sprintf("WARN %s: %s", o.Filename, reason(o.Warning))
	default:
		return fmt.Sprintf("OK   %s: %d rows (%s, %s)", o.Filename, o.Rows, o.Encoding, o.Delimiter)
	}
}

func printReasons(out io.Writer, reasons []string) {
	if len(reasons) == 0 {
		return
	}
	fmt.Fprintf(out, "\nIssues (%d):\n", len(reasons))
	for i, r := range reasons {
		if i < 10 {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	if len(reasons) > 10 {
		fmt.Fprintf(out, "  ... and %d more\n", len(reasons)-10)
	}
}
