// Package display renders pipeline results to a terminal, and re-exports
// the same data as JSON or CSV for scripting (spec §6 "human + automation
// consumers").
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aggregator-project/msdelivery/internal/storepipeline"
	"github.com/aggregator-project/msdelivery/internal/wingetcatalog"
)

// Color codes for terminal output.
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorBold   = "\033[1m"
)

// appTypeIcons maps a UnifiedStoreApp's delivery mechanism to a display icon.
var appTypeIcons = map[storepipeline.AppType]string{
	storepipeline.MSIXAppX: "📦",
	storepipeline.Win32:    "💿",
}

// PrintStoreApp renders a resolved UnifiedStoreApp (spec §3) to w, or
// encodes it as json/csv when format is non-empty.
func PrintStoreApp(w io.Writer, app *storepipeline.UnifiedStoreApp, format string) error {
	switch strings.ToLower(format) {
	case "":
		// fall through to the pretty printer below
	case "json":
		return exportJSON(w, app)
	case "csv":
		return exportStoreAppCSV(w, app)
	default:
		return fmt.Errorf("display: unsupported format %q (supported: json, csv)", format)
	}

	icon := appTypeIcons[app.AppType]
	fmt.Fprintf(w, "%s%s %s%s\n", ColorBold, icon, app.DisplayName, ColorReset)
	fmt.Fprintf(w, "  %sProduct ID:%s %s\n", ColorBold, ColorReset, app.ProductId)
	fmt.Fprintf(w, "  %sType:%s %s\n", ColorBold, ColorReset, app.AppType)
	fmt.Fprintf(w, "  %sPublisher:%s %s\n", ColorBold, ColorReset, app.Publisher)
	fmt.Fprintf(w, "  %sVersion:%s %s\n", ColorBold, ColorReset, app.Version)

	if !app.ReleaseDate.IsZero() {
		fmt.Fprintf(w, "  %sReleased:%s %s\n", ColorBold, ColorReset, formatTimeSince(app.ReleaseDate))
	}

	if app.IsFree {
		fmt.Fprintf(w, "  %sPrice:%s %sFree%s\n", ColorBold, ColorReset, ColorGreen, ColorReset)
	} else if app.Price > 0 {
		fmt.Fprintf(w, "  %sPrice:%s %.2f\n", ColorBold, ColorReset, app.Price)
	}

	if app.Description != "" {
		fmt.Fprintf(w, "  %sDescription:%s %s\n", ColorBold, ColorReset, truncateString(app.Description, 120))
	}

	switch {
	case app.DownloadInfo != nil:
		fmt.Fprintf(w, "  %s%sMSIX/AppX packages (%s):%s\n", ColorBold, ColorBlue, formatBytes(app.DownloadInfo.TotalSize), ColorReset)
		for _, pkg := range app.DownloadInfo.Packages {
			marker := " "
			if pkg.IsMainPackage {
				marker = "*"
			}
			fmt.Fprintf(w, "    %s %s%s%s (%s, %s)\n", marker, ColorCyan, pkg.PackageMoniker, ColorReset, pkg.Architecture, formatBytes(pkg.Size))
		}
	case app.InstallerInfo != nil:
		inst := app.InstallerInfo
		fmt.Fprintf(w, "  %s%sWin32 installer:%s\n", ColorBold, ColorBlue, ColorReset)
		fmt.Fprintf(w, "    %sURL:%s %s\n", ColorBold, ColorReset, inst.InstallerUrl)
		fmt.Fprintf(w, "    %sSHA-256:%s %s\n", ColorBold, ColorReset, inst.InstallerSha256)
		fmt.Fprintf(w, "    %sArchitecture:%s %s\n", ColorBold, ColorReset, inst.Architecture)
		if inst.SilentSwitches != "" {
			fmt.Fprintf(w, "    %sSilent switches:%s %s\n", ColorBold, ColorReset, inst.SilentSwitches)
		}
	}

	return nil
}

// PrintPackages renders WinGet catalog rows (spec §4.9) as a table, or
// encodes them as json/csv when format is non-empty.
func PrintPackages(w io.Writer, packages []wingetcatalog.Package, format string) error {
	switch strings.ToLower(format) {
	case "":
		// fall through
	case "json":
		return exportJSON(w, packages)
	case "csv":
		return exportPackagesCSV(w, packages)
	default:
		return fmt.Errorf("display: unsupported format %q (supported: json, csv)", format)
	}

	if len(packages) == 0 {
		fmt.Fprintf(w, "%sno matching packages%s\n", ColorYellow, ColorReset)
		return nil
	}

	fmt.Fprintln(w, strings.Repeat("─", 60))
	for _, pkg := range packages {
		fmt.Fprintf(w, "%s%s%s  %s\n", ColorBold, pkg.ID, ColorReset, pkg.Name)
		if pkg.Publisher != "" {
			fmt.Fprintf(w, "  %sPublisher:%s %s\n", ColorBold, ColorReset, pkg.Publisher)
		}
		if pkg.Moniker != "" {
			fmt.Fprintf(w, "  %sMoniker:%s %s\n", ColorBold, ColorReset, pkg.Moniker)
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "%s%d package(s)%s\n", ColorCyan, len(packages), ColorReset)

	return nil
}

func exportJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func exportStoreAppCSV(w io.Writer, app *storepipeline.UnifiedStoreApp) error {
	fmt.Fprintln(w, "ProductId,AppType,DisplayName,Publisher,Version,IsFree,Price")
	fmt.Fprintf(w, "%s,%s,%s,%s,%s,%t,%.2f\n",
		app.ProductId, app.AppType, csvEscape(app.DisplayName), csvEscape(app.Publisher), app.Version, app.IsFree, app.Price)
	return nil
}

func exportPackagesCSV(w io.Writer, packages []wingetcatalog.Package) error {
	fmt.Fprintln(w, "RowID,ID,Name,Moniker,Publisher")
	for _, pkg := range packages {
		fmt.Fprintf(w, "%d,%s,%s,%s,%s\n", pkg.RowID, pkg.ID, csvEscape(pkg.Name), csvEscape(pkg.Moniker), csvEscape(pkg.Publisher))
	}
	return nil
}

func csvEscape(s string) string {
	s = strings.ReplaceAll(s, ",", ";")
	return strings.ReplaceAll(s, "\n", " ")
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatTimeSince(t time.Time) string {
	duration := time.Since(t)
	switch {
	case duration < time.Minute:
		return fmt.Sprintf("%d seconds ago", int(duration.Seconds()))
	case duration < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(duration.Minutes()))
	case duration < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(duration.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(duration.Hours()/24))
	}
}
