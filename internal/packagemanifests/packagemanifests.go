// Package packagemanifests implements PackageManifestsClient (spec C6): a
// REST query against the PackageManifests service for Win32 Store package
// manifests.
package packagemanifests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aggregator-project/msdelivery/internal/httpx"
	"github.com/aggregator-project/msdelivery/internal/toolkiterr"
)

const component = "packagemanifests"

// Installer is a single installer object within a Win32 package manifest.
type Installer struct {
	InstallerType     string            `json:"InstallerType"`
	Architecture      string            `json:"Architecture"`
	InstallerLocale   string            `json:"InstallerLocale"`
	InstallerUrl      string            `json:"InstallerUrl"`
	InstallerSha256   string            `json:"InstallerSha256"`
	Scope             string            `json:"Scope"`
	InstallerSwitches map[string]string `json:"InstallerSwitches"`
	NestedInstallerType  string   `json:"NestedInstallerType"`
	NestedInstallerFiles []string `json:"NestedInstallerFiles"`
}

// Version is one version entry of a Win32 manifest.
type Version struct {
	PackageVersion string      `json:"PackageVersion"`
	Installers     []Installer `json:"Installers"`
}

// Manifest is the decoded PackageManifests response body.
type Manifest struct {
	PackageIdentifier string    `json:"PackageIdentifier"`
	Versions          []Version `json:"Versions"`
}

// Result wraps a manifest query outcome.
type Result struct {
	Manifest Manifest
	found    bool
}

func (r Result) IsFound() bool { return r.found }

// IsMSStore reports whether any installer in any version declares
// InstallerType "msstore" — the AppType discriminator used by C8 step 1.
func (m Manifest) IsMSStore() bool {
	for _, v := range m.Versions {
		for _, inst := range v.Installers {
			if strings.EqualFold(inst.InstallerType, "msstore") {
				return true
			}
		}
	}
	return false
}

// Client queries PackageManifests.
type Client struct {
	http *httpx.Client
}

func New(http *httpx.Client) *Client {
	return &Client{http: http}
}

const defaultBase = "https://storeedgefd.dsx.mp.microsoft.com/v9.0/packageManifests"

// Query fetches the manifest for bigId (upper-cased per spec §4.6) from
// the production endpoint.
func (c *Client) Query(ctx context.Context, bigId string, market, language string) (Result, error) {
	return c.QueryWithBase(ctx, defaultBase, bigId, market)
}

// QueryWithBase behaves like Query but against a caller-supplied base URL,
// used by tests and by any non-production endpoint override. A 404 maps
// to a not-found Result rather than an error; other non-2xx responses
// surface as Transport errors.
func (c *Client) QueryWithBase(ctx context.Context, base, bigId, market string) (Result, error) {
	upper := strings.ToUpper(bigId)
	uri := fmt.Sprintf("%s/%s", base, upper)
	if market != "" {
		uri += "?Market=" + market
	}

	resp, err := c.http.Get(ctx, uri, nil)
	if err != nil {
		return Result{}, toolkiterr.New(component, toolkiterr.Transport, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return Result{found: false}, nil
	}
	if !resp.IsSuccess() {
		return Result{}, toolkiterr.New(component, toolkiterr.Transport,
			fmt.Errorf("packagemanifests: unexpected status %d for %s", resp.StatusCode, upper))
	}

	var manifest Manifest
	if err := json.Unmarshal(resp.Body, &manifest); err != nil {
		return Result{}, toolkiterr.New(component, toolkiterr.Decode, err)
	}
	return Result{Manifest: manifest, found: true}, nil
}
