// Package appctx builds applicationContext (spec A1): the single place
// allowed to hold package-level mutable state. Every other component
// takes its dependencies as constructor arguments instead of reaching
// for globals.
package appctx

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/aggregator-project/msdelivery/internal/config"
	"github.com/aggregator-project/msdelivery/internal/cv"
	"github.com/aggregator-project/msdelivery/internal/displaycatalog"
	"github.com/aggregator-project/msdelivery/internal/fe3"
	"github.com/aggregator-project/msdelivery/internal/httpx"
	"github.com/aggregator-project/msdelivery/internal/installedprograms"
	"github.com/aggregator-project/msdelivery/internal/logging"
	"github.com/aggregator-project/msdelivery/internal/packagemanifests"
	"github.com/aggregator-project/msdelivery/internal/storepipeline"
	"github.com/aggregator-project/msdelivery/internal/token"
	"github.com/aggregator-project/msdelivery/internal/wingetcatalog"
)

// Context owns the shared CV, the token provider, the default WinGet
// catalog handle, and the memoized installed-programs snapshot (spec
// §4.13, §5 "shared mutable state").
type Context struct {
	Config *config.Config
	Logger *slog.Logger

	CV    *cv.CV
	Token *token.Provider

	Installed *installedprograms.Snapshot

	httpREST *httpx.Client
	httpSOAP *httpx.Client

	catalogMu sync.Mutex
	catalog   *wingetcatalog.Handle
}

// NewContext wires every shared component from cfg (spec §4.13).
func NewContext(cfg *config.Config) *Context {
	logger := logging.New(logging.Options{Level: logging.LevelFromString(cfg.Logging.Level), JSON: cfg.Logging.JSON})

	sharedCV := cv.New()

	tokenCachePath := filepath.Join(cfg.CacheDir, "device-token.xml")
	tokenProvider := token.NewProvider(tokenCachePath, logger)

	return &Context{
		Config:    cfg,
		Logger:    logger,
		CV:        sharedCV,
		Token:     tokenProvider,
		Installed: installedprograms.NewSnapshot(installedprograms.Options{IncludeAppx: true}),
		httpREST:  httpx.New(sharedCV, cfg.Network.RESTTimeout),
		httpSOAP:  httpx.New(sharedCV, cfg.Network.SOAPTimeout),
	}
}

// DisplayCatalogClient builds a C5 client sharing this context's CV-stamping
// HTTP client.
func (c *Context) DisplayCatalogClient() *displaycatalog.Client {
	return displaycatalog.New(c.httpREST)
}

// PackageManifestsClient builds a C6 client.
func (c *Context) PackageManifestsClient() *packagemanifests.Client {
	return packagemanifests.New(c.httpREST)
}

// FE3Client builds a C7 client against the configured FE3 base.
func (c *Context) FE3Client() *fe3.Client {
	return fe3.New(c.httpSOAP, c.Config.Endpoints.FE3)
}

// MSAToken returns the current device token's string form for use as the
// FE3 SOAP MSA token, acquiring one via the provider's fallback chain on
// first use (spec §4.2/§4.7).
func (c *Context) MSAToken(ctx context.Context) string {
	return string(c.Token.Get(ctx, token.GetOptions{}))
}

// Pipeline assembles a storepipeline.Deps wired to this context's
// collaborators (spec §4.8).
func (c *Context) Pipeline() *storepipeline.Deps {
	return &storepipeline.Deps{
		DisplayCatalog:   c.DisplayCatalogClient(),
		PackageManifests: c.PackageManifestsClient(),
		FE3:              c.FE3Client(),
		Installed:        c.Installed,
		MSAToken:         c.MSAToken,
	}
}

// WingetCatalog returns the process-wide default catalog handle set by a
// prior OpenWingetCatalog call, or nil if none has been opened yet (spec
// §5 "Winget catalog handle").
func (c *Context) WingetCatalog() *wingetcatalog.Handle {
	c.catalogMu.Lock()
	defer c.catalogMu.Unlock()
	return c.catalog
}

// OpenWingetCatalog opens the WinGet source archive and installs it as
// this context's default catalog handle, using cfg.Endpoints.WingetSourceDefault
// when opts.SourceUrl is empty.
func (c *Context) OpenWingetCatalog(ctx context.Context, opts wingetcatalog.OpenOptions) (*wingetcatalog.Handle, error) {
	if opts.SourceUrl == "" {
		opts.SourceUrl = c.Config.Endpoints.WingetSourceDefault
	}
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Join(c.Config.CacheDir, "winget-catalog")
	}
	if opts.CacheDir == "" {
		opts.CacheDir = c.Config.CacheDir
	}

	handle, err := wingetcatalog.Open(ctx, opts)
	if err != nil {
		return nil, err
	}

	c.catalogMu.Lock()
	c.catalog = handle
	c.catalogMu.Unlock()

	return handle, nil
}

// Close releases every resource this context owns that requires explicit
// teardown.
func (c *Context) Close() error {
	c.catalogMu.Lock()
	defer c.catalogMu.Unlock()
	if c.catalog != nil {
		err := c.catalog.Close()
		c.catalog = nil
		return err
	}
	return nil
}
