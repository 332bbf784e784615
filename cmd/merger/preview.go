package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"living-population/internal/pipeline"
)

func newPreviewCommand(setup func() (*app, error)) *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "preview [files or directories...]",
		Short: "Show the detected layout and first rows of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			if rows <= 0 {
				rows = a.cfg.Merge.PreviewRows
			}
			decoders, err := pipeline.ResolveDecoders(a.cfg.Merge.Encodings)
			if err != nil {
				return err
			}
			files, err := collectInputs(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, f := range files {
				res, err := pipeline.Preview(f.Name, f.Content, rows, decoders)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n\n", f.Name, err)
					continue
				}
				printPreview(out, res)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&rows, "rows", 0, "Rows per file (default MERGE_PREVIEW_ROWS)")
	return cmd
}

func printPreview(out io.Writer, res *pipeline.PreviewResult) {
	fmt.Fprintln(out, strings.Repeat("-", 80))
	fmt.Fprintf(out, "%s  [%s, %s, %s]\n", res.Filename, res.Shape, res.Encoding, res.Delimiter)
	fmt.Fprintln(out, strings.Repeat("-", 80))
	fmt.Fprintln(out, strings.Join(res.Header, " | "))
	for _, row := range res.Rows {
		fmt.Fprintln(out, strings.Join(row, " | "))
	}
	fmt.Fprintln(out)
}
