package main

import (
	"github.com/spf13/cobra"

	"github.com/aggregator-project/msdelivery/internal/installedprograms"
)

// newInstalledCmd exposes InstalledPrograms as a standalone queryable
// component (SPEC_FULL.md §9 "Recovered features") rather than only the
// label-only side table storepipeline's resolveMSIX uses internally.
func newInstalledCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "installed",
		Short: "Scan installed win32/appx programs (C12), independent of any Store lookup",
	}
	cmd.AddCommand(newInstalledListCmd())
	return cmd
}

func newInstalledListCmd() *cobra.Command {
	var includeAppx bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every installed program found in the uninstall registry roots (and AppX, unless --appx=false)",
		RunE: func(cmd *cobra.Command, args []string) error {
			programs, err := installedprograms.Scan(installedprograms.Options{IncludeAppx: includeAppx})
			if err != nil {
				return err
			}
			return printJSON(programs)
		},
	}

	cmd.Flags().BoolVar(&includeAppx, "appx", true, "also scan AppX packages")

	return cmd
}
