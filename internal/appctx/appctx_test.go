package appctx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aggregator-project/msdelivery/internal/config"
)

func testConfig(t *testing.T, cacheDir string) *config.Config {
	t.Helper()
	return &config.Config{
		Endpoints: config.Endpoints{
			DisplayCatalogProduction: "https://displaycatalog.mp.microsoft.com/v7.0/products",
			PackageManifests:         "https://storeedgefd.dsx.mp.microsoft.com/v9.0/packageManifests",
			FE3:                      "https://fe3.delivery.mp.microsoft.com/ClientWebService/client.asmx/secured",
			WingetSourceDefault:      "https://cdn.winget.microsoft.com/cache",
		},
		Network: config.NetworkConfig{RESTTimeout: 30 * time.Second, SOAPTimeout: 60 * time.Second},
		Logging: config.LoggingConfig{Level: "info"},
		CacheDir: cacheDir,
	}
}

func TestNewContextWiresCollaborators(t *testing.T) {
	ctx := NewContext(testConfig(t, t.TempDir()))

	assert.NotNil(t, ctx.CV)
	assert.NotNil(t, ctx.Token)
	assert.NotNil(t, ctx.Installed)
	assert.NotNil(t, ctx.Logger)

	assert.NotNil(t, ctx.DisplayCatalogClient())
	assert.NotNil(t, ctx.PackageManifestsClient())
	assert.NotNil(t, ctx.FE3Client())
}

func TestPipelineWiresAllDeps(t *testing.T) {
	ctx := NewContext(testConfig(t, t.TempDir()))
	deps := ctx.Pipeline()

	assert.NotNil(t, deps.DisplayCatalog)
	assert.NotNil(t, deps.PackageManifests)
	assert.NotNil(t, deps.FE3)
	assert.NotNil(t, deps.Installed)
	assert.NotNil(t, deps.MSAToken)
}

func TestWingetCatalogIsNilBeforeOpen(t *testing.T) {
	ctx := NewContext(testConfig(t, t.TempDir()))
	assert.Nil(t, ctx.WingetCatalog())
}

func TestCloseWithoutCatalogIsNoop(t *testing.T) {
	ctx := NewContext(testConfig(t, t.TempDir()))
	require.NoError(t, ctx.Close())
}
