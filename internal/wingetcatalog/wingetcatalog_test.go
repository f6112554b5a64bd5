package wingetcatalog

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestExtractDatabasePrefersIndexDB(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "source2.msix")
	writeZip(t, archivePath, map[string]string{
		"Public/index.db":   "index-contents",
		"Public/schema.db":  "schema-contents",
		"AppxManifest.xml":  "<xml/>",
	})

	dbPath, err := extractDatabase(archivePath, dir)
	require.NoError(t, err)
	assert.Equal(t, "index.db", filepath.Base(dbPath))

	data, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "index-contents", string(data))
}

func TestExtractDatabaseFallsBackToAnyDBFile(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "source2.msix")
	writeZip(t, archivePath, map[string]string{
		"Public/winget.db": "winget-contents",
	})

	dbPath, err := extractDatabase(archivePath, dir)
	require.NoError(t, err)
	assert.Equal(t, "winget.db", filepath.Base(dbPath))
}

func TestExtractDatabaseErrorsWhenNoDBPresent(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "source2.msix")
	writeZip(t, archivePath, map[string]string{
		"AppxManifest.xml": "<xml/>",
	})

	_, err := extractDatabase(archivePath, dir)
	assert.Error(t, err)
}

func TestQuoteIdentEscapesDoubleQuotes(t *testing.T) {
	assert.Equal(t, `"packages"`, quoteIdent("packages"))
	assert.Equal(t, `"weird""table"`, quoteIdent(`weird"table`))
}

func TestDefaultHandleIsNilUntilOpen(t *testing.T) {
	defaultMu.Lock()
	saved := defaultHandle
	defaultHandle = nil
	defaultMu.Unlock()
	defer func() {
		defaultMu.Lock()
		defaultHandle = saved
		defaultMu.Unlock()
	}()

	assert.Nil(t, Default())
}

func TestParseWingetSourceExportFindsWingetSource(t *testing.T) {
	out := []byte(`[
		{"SourceName": "msstore", "Arg": "https://storeedgefd.dsx.mp.microsoft.com/v9.0"},
		{"SourceName": "winget", "Arg": "https://cdn.winget.microsoft.com/cache/"}
	]`)

	base, ok := parseWingetSourceExport(out)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.winget.microsoft.com/cache", base)
}

func TestParseWingetSourceExportNoMatch(t *testing.T) {
	out := []byte(`[{"SourceName": "msstore", "Arg": "https://storeedgefd.dsx.mp.microsoft.com/v9.0"}]`)

	_, ok := parseWingetSourceExport(out)
	assert.False(t, ok)
}

func TestParseWingetSourceExportInvalidJSON(t *testing.T) {
	_, ok := parseWingetSourceExport([]byte("not json"))
	assert.False(t, ok)
}

func TestHostWingetSourceURLFalseWithoutCLI(t *testing.T) {
	// This environment has no `winget` binary on PATH, matching every
	// non-Windows CI/build host; the lookup must fail closed rather than
	// erroring Open.
	_, ok := hostWingetSourceURL(context.Background())
	assert.False(t, ok)
}
