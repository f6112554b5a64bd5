// Package wingetcatalog implements WingetCatalog (spec C9): download,
// extraction, and SQLite querying of the public WinGet source archive
// without the WinGet CLI.
package wingetcatalog

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/aggregator-project/msdelivery/internal/catalogcache"
	"github.com/aggregator-project/msdelivery/internal/toolkiterr"
)

// defaultMaxAge is how long a cached, previously-extracted database is
// reused before OpenOptions.CacheDir triggers a fresh download.
const defaultMaxAge = 24 * time.Hour

const component = "wingetcatalog"

// defaultSourceBase is used when no sourceUrl is supplied and no host CLI
// source export is available to read instead (spec §4.9/§6).
const defaultSourceBase = "https://cdn.winget.microsoft.com/cache"

// wellKnownSourceName is the source name whose exported URL Open prefers
// over defaultSourceBase (spec §6 "default is the URL named `winget`").
const wellKnownSourceName = "winget"

// Handle is a resolved, opened WinGet catalog (spec §3 WingetCatalog).
type Handle struct {
	DatabasePath   string
	ExtractPath    string
	SourceUrl      string
	DownloadDate   time.Time
	DatabaseSizeMB float64

	db *sqlx.DB
}

// Package is a WinGet packages-table row.
type Package struct {
	RowID     int64  `db:"rowid"`
	ID        string `db:"id"`
	Name      string `db:"name"`
	Moniker   string `db:"moniker"`
	Publisher string `db:"publisher"`
}

// OpenOptions controls Open.
type OpenOptions struct {
	SourceUrl   string
	OutputDir   string
	KeepArchive bool

	// CacheDir, when set, is checked for a previously extracted database
	// before downloading source2.msix again (spec A3 "cache/scratch
	// directories"). MaxAge overrides defaultMaxAge for the freshness
	// check.
	CacheDir string
	MaxAge   time.Duration
}

// defaultHandle is the process-wide default catalog handle set by Open,
// used by later calls unless a caller passes an explicit handle (spec §5
// "Winget catalog handle").
var (
	defaultMu     sync.Mutex
	defaultHandle *Handle
)

// Default returns the process-wide default handle, if one has been set by
// a prior Open call.
func Default() *Handle {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultHandle
}

// Open downloads (or reuses) the WinGet source archive, extracts it as a
// ZIP, locates the SQLite database, opens it, and installs the result as
// the process-wide default handle (spec §4.9).
func Open(ctx context.Context, opts OpenOptions) (*Handle, error) {
	if opts.CacheDir != "" {
		if handle := tryReuseCached(opts); handle != nil {
			defaultMu.Lock()
			defaultHandle = handle
			defaultMu.Unlock()
			return handle, nil
		}
	}

	sourceURL := opts.SourceUrl
	if sourceURL == "" {
		sourceBase := defaultSourceBase
		if hostBase, ok := hostWingetSourceURL(ctx); ok {
			sourceBase = hostBase
		}
		sourceURL = sourceBase + "/source2.msix"
	}
	if !strings.HasSuffix(strings.ToLower(sourceURL), "msix") {
		sourceURL = strings.TrimRight(sourceURL, "/") + "/source2.msix"
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(os.TempDir(), "msdelivery-winget-"+uuid.NewString())
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Transport, fmt.Errorf("creating extract dir: %w", err))
	}

	archivePath := filepath.Join(outputDir, "source2.msix")
	if err := downloadFile(ctx, sourceURL, archivePath); err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Transport, err)
	}
	if !opts.KeepArchive {
		defer os.Remove(archivePath)
	}

	dbPath, err := extractDatabase(archivePath, outputDir)
	if err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Decode, err)
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Decode, err)
	}

	db, err := sqlx.Open("sqlite3", dbPath+"?mode=ro")
	if err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Schema, err)
	}

	handle := &Handle{
		DatabasePath:   dbPath,
		ExtractPath:    outputDir,
		SourceUrl:      sourceURL,
		DownloadDate:   time.Now(),
		DatabaseSizeMB: float64(info.Size()) / (1024 * 1024),
		db:             db,
	}

	defaultMu.Lock()
	defaultHandle = handle
	defaultMu.Unlock()

	if opts.CacheDir != "" {
		entry := &catalogcache.Manifest{
			DatabasePath:   handle.DatabasePath,
			ExtractPath:    handle.ExtractPath,
			SourceUrl:      handle.SourceUrl,
			DownloadDate:   handle.DownloadDate,
			DatabaseSizeMB: handle.DatabaseSizeMB,
		}
		if err := entry.Save(opts.CacheDir); err != nil {
			return nil, toolkiterr.New(component, toolkiterr.Transport, err)
		}
	}

	return handle, nil
}

// tryReuseCached opens a previously downloaded database recorded in
// opts.CacheDir, returning nil when no usable, fresh entry exists so Open
// falls through to a real download.
func tryReuseCached(opts OpenOptions) *Handle {
	entry, err := catalogcache.Load(opts.CacheDir)
	if err != nil || entry == nil || !entry.Usable() {
		return nil
	}

	// A negative MaxAge is an explicit "skip the cache" signal (e.g.
	// --force); zero means "use the default freshness window".
	if opts.MaxAge < 0 {
		return nil
	}
	maxAge := opts.MaxAge
	if maxAge == 0 {
		maxAge = defaultMaxAge
	}
	if entry.IsExpired(maxAge) {
		return nil
	}

	db, err := sqlx.Open("sqlite3", entry.DatabasePath+"?mode=ro")
	if err != nil {
		return nil
	}

	return &Handle{
		DatabasePath:   entry.DatabasePath,
		ExtractPath:    entry.ExtractPath,
		SourceUrl:      entry.SourceUrl,
		DownloadDate:   entry.DownloadDate,
		DatabaseSizeMB: entry.DatabaseSizeMB,
		db:             db,
	}
}

// wingetSourceEntry is one row of `winget source export`'s JSON array.
type wingetSourceEntry struct {
	SourceName string `json:"SourceName"`
	Arg        string `json:"Arg"`
}

// hostWingetSourceURL asks the host WinGet CLI for its exported sources
// and returns the Arg (base URL) of the source named "winget", if the CLI
// is installed and reports one (spec §6 "URL obtained from the host CLI's
// exported sources"). It returns ok=false on any failure, letting Open
// fall back to defaultSourceBase.
func hostWingetSourceURL(ctx context.Context) (string, bool) {
	if _, err := exec.LookPath("winget"); err != nil {
		return "", false
	}

	out, err := exec.CommandContext(ctx, "winget", "source", "export").Output()
	if err != nil {
		return "", false
	}
	return parseWingetSourceExport(out)
}

// parseWingetSourceExport finds wellKnownSourceName's Arg in the JSON array
// produced by `winget source export`.
func parseWingetSourceExport(out []byte) (string, bool) {
	var sources []wingetSourceEntry
	if err := json.Unmarshal(out, &sources); err != nil {
		return "", false
	}

	for _, s := range sources {
		if strings.EqualFold(s.SourceName, wellKnownSourceName) && s.Arg != "" {
			return strings.TrimRight(s.Arg, "/"), true
		}
	}
	return "", false
}

func downloadFile(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wingetcatalog: unexpected status %d downloading %s", resp.StatusCode, url)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// extractDatabase extracts archivePath as a ZIP (the archive is a ZIP
// renamed .msix, spec §6) and locates index.db, falling back to any
// *.db file (spec §4.9).
func extractDatabase(archivePath, outputDir string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive as zip: %w", err)
	}
	defer r.Close()

	var fallback string
	var indexPath string

	for _, f := range r.File {
		base := filepath.Base(f.Name)
		if !strings.HasSuffix(strings.ToLower(base), ".db") {
			continue
		}

		destPath := filepath.Join(outputDir, base)
		if err := extractZipEntry(f, destPath); err != nil {
			return "", err
		}

		if strings.EqualFold(base, "index.db") {
			indexPath = destPath
		} else if fallback == "" {
			fallback = destPath
		}
	}

	if indexPath != "" {
		return indexPath, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("no *.db file found in archive")
}

func extractZipEntry(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

// Close releases the underlying SQLite connection.
func (h *Handle) Close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}

// GetPackagesOptions filters GetPackages.
type GetPackagesOptions struct {
	Name      string
	ID        string
	Publisher string
	RowID     int64
	Limit     int
}

// GetPackages selects from the packages table, joining norm_publishers2
// when Publisher is set (spec §4.9).
func (h *Handle) GetPackages(ctx context.Context, opts GetPackagesOptions) ([]Package, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	var query string
	var args []any

	switch {
	case opts.Publisher != "":
		query = `SELECT p.rowid AS rowid, p.id AS id, p.name AS name, p.moniker AS moniker, np.normalized AS publisher
		          FROM packages p JOIN norm_publishers2 np ON np.package = p.rowid
		          WHERE np.normalized LIKE ? LIMIT ?`
		args = []any{"%" + opts.Publisher + "%", limit}
	case opts.Name != "":
		query = `SELECT rowid, id, name, moniker, '' AS publisher FROM packages WHERE name LIKE ? LIMIT ?`
		args = []any{"%" + opts.Name + "%", limit}
	case opts.ID != "":
		query = `SELECT rowid, id, name, moniker, '' AS publisher FROM packages WHERE id LIKE ? LIMIT ?`
		args = []any{"%" + opts.ID + "%", limit}
	case opts.RowID != 0:
		query = `SELECT rowid, id, name, moniker, '' AS publisher FROM packages WHERE rowid = ? LIMIT ?`
		args = []any{opts.RowID, limit}
	default:
		query = `SELECT rowid, id, name, moniker, '' AS publisher FROM packages LIMIT ?`
		args = []any{limit}
	}

	var packages []Package
	if err := h.db.SelectContext(ctx, &packages, query, args...); err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Schema, err)
	}
	return packages, nil
}

// SearchPackages matches term against name, id, moniker (and
// norm_publisher when includePublisher is set) with a LIKE scan (spec
// §4.9). Case-insensitivity is the caller's responsibility via the
// pattern, matching the vendor schema's own collation.
func (h *Handle) SearchPackages(ctx context.Context, term string, includePublisher bool, limit int) ([]Package, error) {
	if limit <= 0 {
		limit = 100
	}
	pattern := "%" + term + "%"

	query := `SELECT rowid, id, name, moniker, '' AS publisher FROM packages
	          WHERE name LIKE ? OR id LIKE ? OR moniker LIKE ? LIMIT ?`
	args := []any{pattern, pattern, pattern, limit}

	if includePublisher {
		query = `SELECT p.rowid AS rowid, p.id AS id, p.name AS name, p.moniker AS moniker, np.normalized AS publisher
		          FROM packages p LEFT JOIN norm_publishers2 np ON np.package = p.rowid
		          WHERE p.name LIKE ? OR p.id LIKE ? OR p.moniker LIKE ? OR np.normalized LIKE ? LIMIT ?`
		args = []any{pattern, pattern, pattern, pattern, limit}
	}

	var packages []Package
	if err := h.db.SelectContext(ctx, &packages, query, args...); err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Schema, err)
	}
	return packages, nil
}

// GetProductCodes looks up a package row by id, then selects its
// productcodes2 rows (spec §4.9).
func (h *Handle) GetProductCodes(ctx context.Context, packageId string) ([]string, error) {
	var rowid int64
	if err := h.db.GetContext(ctx, &rowid, `SELECT rowid FROM packages WHERE id = ?`, packageId); err != nil {
		return nil, toolkiterr.New(component, toolkiterr.NotFound, err)
	}

	var codes []string
	if err := h.db.SelectContext(ctx, &codes, `SELECT productcode FROM productcodes2 WHERE package = ?`, rowid); err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Schema, err)
	}
	return codes, nil
}

// PackageMeta is a package row's version/hash pair, used by C10 to
// compute the CDN hash8 path (spec §4.10 step A).
type PackageMeta struct {
	LatestVersion string `db:"latest_version"`
	Hash          []byte `db:"hash"`
}

// PackageMeta fetches the package row's latest_version and hash columns
// for packageId (spec §4.10 step A).
func (h *Handle) PackageMeta(ctx context.Context, packageId string) (PackageMeta, error) {
	var meta PackageMeta
	err := h.db.GetContext(ctx, &meta,
		`SELECT latest_version, hash FROM packages WHERE id = ?`, packageId)
	if err != nil {
		return PackageMeta{}, toolkiterr.New(component, toolkiterr.NotFound, err)
	}
	return meta, nil
}

// Count returns the total manifest row count (spec §4.9).
func (h *Handle) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := h.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM manifest`); err != nil {
		return 0, toolkiterr.New(component, toolkiterr.Schema, err)
	}
	return count, nil
}

// Tables lists every table name via sqlite_master (spec §4.9).
func (h *Handle) Tables(ctx context.Context) ([]string, error) {
	var tables []string
	err := h.db.SelectContext(ctx, &tables, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	if err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Schema, err)
	}
	return tables, nil
}

// ColumnInfo is one PRAGMA table_info row.
type ColumnInfo struct {
	CID       int    `db:"cid"`
	Name      string `db:"name"`
	Type      string `db:"type"`
	NotNull   bool   `db:"notnull"`
	DfltValue any    `db:"dflt_value"`
	PK        int    `db:"pk"`
}

// Schema returns table's column metadata via PRAGMA table_info (spec
// §4.9).
func (h *Handle) Schema(ctx context.Context, table string) ([]ColumnInfo, error) {
	var cols []ColumnInfo
	err := h.db.SelectContext(ctx, &cols, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(table)))
	if err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Schema, err)
	}
	return cols, nil
}

// quoteIdent double-quotes a SQL identifier pulled from a prior Tables()
// call; PRAGMA does not support bind parameters for its table argument.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
