// Package catalogcache persists WingetCatalog download metadata to disk so
// repeated CLI invocations can reuse an already-extracted source database
// instead of re-downloading source2.msix every time (spec §4.9, A3
// "cache/scratch directories").
package catalogcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// fileName is the cache entry written under a configured cache directory.
const fileName = "winget-catalog.json"

// Manifest records where a previously opened WinGet catalog database lives
// and when it was downloaded, mirroring wingetcatalog.Handle's own fields.
type Manifest struct {
	DatabasePath   string    `json:"database_path"`
	ExtractPath    string    `json:"extract_path"`
	SourceUrl      string    `json:"source_url"`
	DownloadDate   time.Time `json:"download_date"`
	DatabaseSizeMB float64   `json:"database_size_mb"`
}

// Path returns the cache file's full path under cacheDir.
func Path(cacheDir string) string {
	return filepath.Join(cacheDir, fileName)
}

// Load reads a previously saved Manifest. It returns (nil, nil) if no cache
// entry exists yet, matching the teacher's "empty cache is not an error"
// convention.
func Load(cacheDir string) (*Manifest, error) {
	path := Path(cacheDir)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalogcache: reading %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("catalogcache: parsing %s: %w", path, err)
	}
	return &m, nil
}

// Save writes m to cacheDir, creating the directory if needed.
func (m *Manifest) Save(cacheDir string) error {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("catalogcache: creating %s: %w", cacheDir, err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("catalogcache: marshaling manifest: %w", err)
	}

	if err := os.WriteFile(Path(cacheDir), data, 0o600); err != nil {
		return fmt.Errorf("catalogcache: writing %s: %w", Path(cacheDir), err)
	}
	return nil
}

// IsExpired reports whether m was downloaded more than maxAge ago.
func (m *Manifest) IsExpired(maxAge time.Duration) bool {
	return time.Since(m.DownloadDate) > maxAge
}

// Usable reports whether m's database file is still present on disk, i.e.
// nothing has cleaned up the extract directory out from under us.
func (m *Manifest) Usable() bool {
	if m == nil {
		return false
	}
	_, err := os.Stat(m.DatabasePath)
	return err == nil
}
