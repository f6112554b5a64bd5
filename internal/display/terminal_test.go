package display

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aggregator-project/msdelivery/internal/storepipeline"
	"github.com/aggregator-project/msdelivery/internal/wingetcatalog"
)

func TestPrintStoreAppPretty(t *testing.T) {
	app := &storepipeline.UnifiedStoreApp{
		ProductId:   "9WZDNCRFJBMP",
		AppType:     storepipeline.MSIXAppX,
		DisplayName: "Notepad",
		Publisher:   "Microsoft Corporation",
		Version:     "1.0.0.0",
		IsFree:      true,
		DownloadInfo: &storepipeline.DownloadInfo{
			TotalSize: 2048,
			Packages: []storepipeline.ResolvedPackage{
				{PackageMoniker: "notepad", Architecture: "x64", Size: 2048, IsMainPackage: true},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, PrintStoreApp(&buf, app, ""))
	out := buf.String()
	assert.Contains(t, out, "Notepad")
	assert.Contains(t, out, "9WZDNCRFJBMP")
	assert.Contains(t, out, "notepad")
}

func TestPrintStoreAppJSON(t *testing.T) {
	app := &storepipeline.UnifiedStoreApp{ProductId: "X", DisplayName: "App", ReleaseDate: time.Now()}

	var buf bytes.Buffer
	require.NoError(t, PrintStoreApp(&buf, app, "json"))
	assert.Contains(t, buf.String(), `"ProductId": "X"`)
}

func TestPrintStoreAppCSV(t *testing.T) {
	app := &storepipeline.UnifiedStoreApp{ProductId: "X", DisplayName: "A, B", Publisher: "Pub"}

	var buf bytes.Buffer
	require.NoError(t, PrintStoreApp(&buf, app, "csv"))
	assert.Contains(t, buf.String(), "A; B")
}

func TestPrintStoreAppUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := PrintStoreApp(&buf, &storepipeline.UnifiedStoreApp{}, "xml")
	assert.Error(t, err)
}

func TestPrintPackagesEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintPackages(&buf, nil, ""))
	assert.Contains(t, buf.String(), "no matching packages")
}

func TestPrintPackagesPretty(t *testing.T) {
	packages := []wingetcatalog.Package{
		{RowID: 1, ID: "Microsoft.PowerToys", Name: "PowerToys", Publisher: "Microsoft"},
	}

	var buf bytes.Buffer
	require.NoError(t, PrintPackages(&buf, packages, ""))
	out := buf.String()
	assert.Contains(t, out, "Microsoft.PowerToys")
	assert.Contains(t, out, "1 package(s)")
}

func TestPrintPackagesCSV(t *testing.T) {
	packages := []wingetcatalog.Package{{ID: "A.B", Name: "Name, with comma"}}

	var buf bytes.Buffer
	require.NoError(t, PrintPackages(&buf, packages, "csv"))
	assert.Contains(t, buf.String(), "Name; with comma")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KB", formatBytes(1024))
}
