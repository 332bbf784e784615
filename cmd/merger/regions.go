package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRegionsCommand(setup func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "regions [district]",
		Short: "List districts, or the sub-districts and code prefixes of one district",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()

			lookup, err := a.lookup(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, d := range lookup.Districts() {
					fmt.Fprintln(out, d)
				}
				return nil
			}

			subs, err := lookup.SubDistricts(args[0])
			if err != nil {
				return err
			}
			for _, sub := range subs {
				filter, err := lookup.FilterFor(args[0], []string{sub})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-20s %s\n", sub, strings.Join(filter.Prefixes(), ","))
			}
			return nil
		},
	}
}
