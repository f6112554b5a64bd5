package main

import (
	"github.com/spf13/cobra"

	"github.com/aggregator-project/msdelivery/internal/token"
)

// newInternalExtractTokenCmd registers the hidden subcommand that
// token_windows.go's extractAsSystem and extractViaElevatedHelper spawn as
// a child process (via schtasks or ShellExecute "runas") to run the
// SYSTEM/elevated half of device-token extraction out of process and hand
// the result back through a file (spec §4.2 steps 2/3).
func newInternalExtractTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "internal-extract-token <outPath>",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return token.ExtractDeviceTicketToFile(app.Logger, args[0])
		},
	}
}
