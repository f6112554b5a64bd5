package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aggregator-project/msdelivery/internal/display"
	"github.com/aggregator-project/msdelivery/internal/wingetcatalog"
	"github.com/aggregator-project/msdelivery/internal/wingetmanifest"
)

func newWingetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "winget",
		Short: "Download, query, and fetch manifests from the WinGet catalog (C9/C10)",
	}
	cmd.AddCommand(newWingetOpenCmd(), newWingetSearchCmd(), newWingetShowCmd(), newWingetManifestCmd())
	return cmd
}

func newWingetOpenCmd() *cobra.Command {
	var sourceURL string
	var keepArchive bool
	var force bool

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Download and open the WinGet source database, printing its resolved path",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := wingetcatalog.OpenOptions{
				SourceUrl:   sourceURL,
				KeepArchive: keepArchive,
			}
			if force {
				opts.MaxAge = -1
			}
			handle, err := app.OpenWingetCatalog(context.Background(), opts)
			if err != nil {
				return err
			}
			fmt.Printf("database: %s (%.1f MB)\n", handle.DatabasePath, handle.DatabaseSizeMB)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceURL, "source", "", "override the WinGet source URL")
	cmd.Flags().BoolVar(&keepArchive, "keep-archive", false, "keep the downloaded source2.msix after extraction")
	cmd.Flags().BoolVar(&force, "force", false, "ignore any cached database and re-download")

	return cmd
}

func requireCatalog(cmd *cobra.Command) (*wingetcatalog.Handle, error) {
	handle := app.WingetCatalog()
	if handle != nil {
		return handle, nil
	}
	return app.OpenWingetCatalog(cmd.Context(), wingetcatalog.OpenOptions{})
}

func newWingetSearchCmd() *cobra.Command {
	var includePublisher bool
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search packages by name, id, or moniker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := requireCatalog(cmd)
			if err != nil {
				return err
			}
			results, err := handle.SearchPackages(context.Background(), args[0], includePublisher, limit)
			if err != nil {
				return err
			}
			return display.PrintPackages(os.Stdout, results, format)
		},
	}

	cmd.Flags().BoolVar(&includePublisher, "include-publisher", false, "also match against normalized publisher")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum rows to return")
	cmd.Flags().StringVar(&format, "export", "", "json or csv; default is a colorized table")

	return cmd
}

func newWingetShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single package row and its product codes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := requireCatalog(cmd)
			if err != nil {
				return err
			}
			packages, err := handle.GetPackages(context.Background(), wingetcatalog.GetPackagesOptions{ID: args[0], Limit: 1})
			if err != nil {
				return err
			}
			if format != "" {
				codes, err := handle.GetProductCodes(context.Background(), args[0])
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"packages": packages, "productCodes": codes})
			}
			if err := display.PrintPackages(os.Stdout, packages, ""); err != nil {
				return err
			}
			codes, err := handle.GetProductCodes(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("  %sProduct codes:%s %v\n", display.ColorBold, display.ColorReset, codes)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "export", "", "json for a machine-readable packages+productCodes document")

	return cmd
}

func newWingetManifestCmd() *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "manifest <id>",
		Short: "Fetch and print a package's YAML manifest (decoded from MSZIP)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := requireCatalog(cmd)
			if err != nil {
				return err
			}

			manifest, err := wingetmanifest.GetManifest(context.Background(), handle, httpFetch, app.Config.Endpoints.WingetSourceDefault, args[0], version)
			if err != nil {
				return err
			}
			return printJSON(manifest)
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "specific version to fetch; defaults to the package's latest_version")

	return cmd
}
