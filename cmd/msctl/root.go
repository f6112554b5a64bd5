// Command msctl is the CLI surface for the toolkit: store resolution
// (C5-C8), WinGet catalog/manifest queries (C9/C10), and MSI database
// editing (C11), for manual and scripted use (spec A4).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aggregator-project/msdelivery/internal/appctx"
	"github.com/aggregator-project/msdelivery/internal/config"
)

var flags config.CLIFlags

var app *appctx.Context

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "msctl",
		Short: "Microsoft Store / WinGet / MSI toolkit CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.ConfigFile, &flags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			app = appctx.NewContext(cfg)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "path to a JSON config file")
	root.PersistentFlags().StringVar(&flags.CacheDir, "cache-dir", "", "override the cache/scratch directory")
	root.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "debug, info, warn, or error")
	root.PersistentFlags().BoolVar(&flags.LogJSON, "log-json", false, "emit structured JSON logs instead of tinted text")
	root.PersistentFlags().StringVar(&flags.Market, "market", "", "override the default market (e.g. US)")
	root.PersistentFlags().StringVar(&flags.Language, "language", "", "override the default language (e.g. en-US)")
	root.PersistentFlags().StringVar(&flags.ProxyHTTP, "proxy-http", "", "HTTP proxy URL (recorded in the config; not applied by the HTTP clients)")
	root.PersistentFlags().StringVar(&flags.ProxyHTTPS, "proxy-https", "", "HTTPS proxy URL (recorded in the config; not applied by the HTTP clients)")
	root.PersistentFlags().BoolVar(&flags.InsecureTLS, "insecure-tls", false, "skip TLS certificate verification (recorded in the config; not applied by the HTTP clients)")

	root.AddCommand(newStoreCmd(), newWingetCmd(), newMSICmd(), newInstalledCmd(), newInternalExtractTokenCmd())

	return root
}
