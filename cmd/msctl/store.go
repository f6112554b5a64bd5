package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aggregator-project/msdelivery/internal/display"
	"github.com/aggregator-project/msdelivery/internal/storepipeline"
)

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Resolve Microsoft Store / Win32 products via C5-C8",
	}
	cmd.AddCommand(newStoreGetCmd(), newStoreCVCmd())
	return cmd
}

func newStoreGetCmd() *cobra.Command {
	var architecture string
	var explicitArch string
	var latestOnly bool
	var format string

	cmd := &cobra.Command{
		Use:   "get <productId>",
		Short: "Resolve a product id to a UnifiedStoreApp and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := storepipeline.ArchAutodetect
			switch architecture {
			case "all":
				policy = storepipeline.ArchAll
			case "exact":
				policy = storepipeline.ArchExact
			}

			req := storepipeline.Request{
				ProductId:          args[0],
				Market:             app.Config.DefaultMarket,
				Language:           app.Config.DefaultLanguage,
				Architecture:       policy,
				ExplicitArch:       explicitArch,
				LatestVersionsOnly: latestOnly,
			}

			result, err := app.Pipeline().GetUnifiedStoreAppInfo(context.Background(), req)
			if err != nil {
				return err
			}

			return display.PrintStoreApp(os.Stdout, result, format)
		},
	}

	cmd.Flags().StringVar(&architecture, "arch-policy", "autodetect", "all, autodetect, or exact")
	cmd.Flags().StringVar(&explicitArch, "arch", "", "exact architecture to match when --arch-policy=exact")
	cmd.Flags().BoolVar(&latestOnly, "latest-only", false, "keep only the greatest version per package name")
	cmd.Flags().StringVar(&format, "export", "", "json or csv; default is a colorized summary")

	return cmd
}

func newStoreCVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cv",
		Short: "Print a fresh correlation-vector sequence (diagnostic)",
		RunE: func(cmd *cobra.Command, args []string) error {
			for i := 0; i < 5; i++ {
				fmt.Println(app.CV.Value())
				app.CV.Increment()
			}
			return nil
		},
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
