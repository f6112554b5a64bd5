package catalogcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReturnsNilWithoutError(t *testing.T) {
	dir := t.TempDir()

	m, err := Load(dir)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()

	m := &Manifest{
		DatabasePath:   dir + "/index.db",
		ExtractPath:    dir,
		SourceUrl:      "https://cdn.winget.microsoft.com/cache/source2.msix",
		DownloadDate:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		DatabaseSizeMB: 12.5,
	}
	require.NoError(t, m.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, m.DatabasePath, loaded.DatabasePath)
	assert.Equal(t, m.SourceUrl, loaded.SourceUrl)
	assert.True(t, m.DownloadDate.Equal(loaded.DownloadDate))
	assert.Equal(t, m.DatabaseSizeMB, loaded.DatabaseSizeMB)
}

func TestIsExpired(t *testing.T) {
	fresh := &Manifest{DownloadDate: time.Now()}
	assert.False(t, fresh.IsExpired(time.Hour))

	stale := &Manifest{DownloadDate: time.Now().Add(-2 * time.Hour)}
	assert.True(t, stale.IsExpired(time.Hour))
}

func TestUsableFalseWhenDatabaseMissing(t *testing.T) {
	m := &Manifest{DatabasePath: "/nonexistent/path/index.db"}
	assert.False(t, m.Usable())

	assert.False(t, (*Manifest)(nil).Usable())
}
