// Package storepipeline implements StorePipeline (spec C8): it
// orchestrates DisplayCatalog, PackageManifests, and FE3 to assemble a
// single UnifiedStoreApp view, filtering and deduplicating along the way.
package storepipeline

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aggregator-project/msdelivery/internal/displaycatalog"
	"github.com/aggregator-project/msdelivery/internal/fe3"
	"github.com/aggregator-project/msdelivery/internal/installedprograms"
	"github.com/aggregator-project/msdelivery/internal/localearch"
	"github.com/aggregator-project/msdelivery/internal/packagemanifests"
	"github.com/aggregator-project/msdelivery/internal/toolkiterr"
)

const component = "storepipeline"

// Deps bundles every collaborator C8 orchestrates.
type Deps struct {
	DisplayCatalog   *displaycatalog.Client
	PackageManifests *packagemanifests.Client
	FE3              *fe3.Client
	Installed        *installedprograms.Snapshot
	MSAToken         func(ctx context.Context) string
}

// Request is the input to GetUnifiedStoreAppInfo.
type Request struct {
	ProductId          string
	Market             string
	Language           string
	Architecture       ArchitecturePolicy
	ExplicitArch       string
	LatestVersionsOnly bool
}

// GetUnifiedStoreAppInfo runs the full C8 algorithm (spec §4.8).
func (d *Deps) GetUnifiedStoreAppInfo(ctx context.Context, req Request) (*UnifiedStoreApp, error) {
	productId := NormalizeProductId(req.ProductId)
	if !IsMSIXProductId(productId) && len(productId) < 14 {
		return nil, toolkiterr.New(component, toolkiterr.Schema,
			fmt.Errorf("storepipeline: product id %q is neither a 12-character MSIX id nor a 14+ character Win32 id", productId))
	}

	manifestResult, err := d.PackageManifests.Query(ctx, productId, req.Market, req.Language)
	if err != nil {
		return nil, err
	}
	if !manifestResult.IsFound() {
		return nil, toolkiterr.New(component, toolkiterr.NotFound,
			fmt.Errorf("storepipeline: product %s not found", productId))
	}
	manifest := manifestResult.Manifest

	if !manifest.IsMSStore() {
		return d.resolveWin32(req, manifest)
	}

	return d.resolveMSIX(ctx, req, productId, manifest)
}

func (d *Deps) resolveWin32(req Request, manifest packagemanifests.Manifest) (*UnifiedStoreApp, error) {
	if len(manifest.Versions) == 0 {
		return nil, toolkiterr.New(component, toolkiterr.NotFound, fmt.Errorf("storepipeline: manifest has no versions"))
	}
	version := manifest.Versions[0]
	installer, err := selectWin32Installer(version.Installers, req)
	if err != nil {
		return nil, err
	}

	switches := resolveSilentSwitches(installer)

	return &UnifiedStoreApp{
		ProductId:   NormalizeProductId(req.ProductId),
		AppType:     Win32,
		Version:     version.PackageVersion,
		InstallerInfo: &InstallerInfo{
			InstallerUrl:    installer.InstallerUrl,
			InstallerSha256: installer.InstallerSha256,
			SilentSwitches:  switches,
			Architecture:    installer.Architecture,
			InstallerLocale: installer.InstallerLocale,
			Scope:           installer.Scope,
			InstallerType:   installer.InstallerType,
		},
		Manifest: manifest,
	}, nil
}

// selectWin32Installer applies the architecture policy then the locale
// policy (spec §4.8 step 2).
func selectWin32Installer(installers []packagemanifests.Installer, req Request) (packagemanifests.Installer, error) {
	detected := localearch.DetectArchitecture()

	var byArch []packagemanifests.Installer
	switch req.Architecture {
	case ArchAll:
		byArch = installers
	case ArchExact:
		for _, inst := range installers {
			if strings.EqualFold(inst.Architecture, req.ExplicitArch) {
				byArch = append(byArch, inst)
			}
		}
	default: // ArchAutodetect
		byArch = localearch.PreferArchitecture(detected, installers, func(i packagemanifests.Installer) string { return i.Architecture })
	}

	if len(byArch) == 0 {
		return packagemanifests.Installer{}, toolkiterr.New(component, toolkiterr.NotFound,
			fmt.Errorf("storepipeline: no installer matches architecture policy"))
	}

	byArch = preferMSIInstallers(byArch)

	loc := localearch.DetectLocale(nil)
	chosen, ok := localearch.PreferLocale(loc, byArch, func(i packagemanifests.Installer) string { return i.InstallerLocale }, true)
	if !ok {
		chosen = byArch[0]
	}

	return chosen, nil
}

// preferMSIInstallers narrows to the MSI/WiX subclass when the architecture
// match contains at least one, per spec §9's Design Note that MSI and WiX
// form a subclass preferred over non-MSI alternatives for the same
// architecture. Returns the input unchanged when none are MSI/WiX.
func preferMSIInstallers(installers []packagemanifests.Installer) []packagemanifests.Installer {
	var msiInstallers []packagemanifests.Installer
	for _, inst := range installers {
		if isMSIInstallerType(inst.InstallerType) {
			msiInstallers = append(msiInstallers, inst)
		}
	}
	if len(msiInstallers) == 0 {
		return installers
	}
	return msiInstallers
}

func isMSIInstallerType(installerType string) bool {
	switch strings.ToLower(installerType) {
	case "msi", "wix":
		return true
	default:
		return false
	}
}

// resolveSilentSwitches implements spec §9's open question on Win32 scope
// semantics: append "/allusers" only when Scope is "machine" and the
// switches don't already reference /allusers or ALLUSERS.
func resolveSilentSwitches(installer packagemanifests.Installer) string {
	switches := installer.InstallerSwitches["Silent"]
	if switches == "" {
		switches = installer.InstallerSwitches["Custom"]
	}

	if strings.EqualFold(installer.Scope, "machine") &&
		!strings.Contains(strings.ToLower(switches), "/allusers") &&
		!strings.Contains(strings.ToUpper(switches), "ALLUSERS") {
		switches = strings.TrimSpace(switches + " /allusers")
	}

	return switches
}

func (d *Deps) resolveMSIX(ctx context.Context, req Request, productId string, manifest packagemanifests.Manifest) (*UnifiedStoreApp, error) {
	dcResult, err := d.DisplayCatalog.Query(ctx, productId, req.Market, req.Language, displaycatalog.Production,
		"https://displaycatalog.mp.microsoft.com/v7.0/products", "https://displaycatalog-int.mp.microsoft.com/v7.0/products")
	if err != nil {
		return nil, err
	}
	wuCategoryId, ok := dcResult.WuCategoryId()
	if !ok {
		return nil, toolkiterr.New(component, toolkiterr.NotFound,
			fmt.Errorf("storepipeline: no WuCategoryId for %s", productId))
	}

	msaToken := ""
	if d.MSAToken != nil {
		msaToken = d.MSAToken(ctx)
	}

	syncXML, err := d.FE3.SyncUpdates(ctx, wuCategoryId, msaToken)
	if err != nil {
		return nil, err
	}
	parsed, err := fe3.ParseUpdateIDs(syncXML)
	if err != nil {
		return nil, err
	}
	if len(parsed.UpdateIDs) == 0 {
		return nil, toolkiterr.New(component, toolkiterr.NotFound,
			fmt.Errorf("storepipeline: FE3 returned no UpdateIDs for %s", productId))
	}

	extendedXML, err := d.FE3.GetExtendedUpdateInfo2(ctx, parsed.UpdateIDs, parsed.RevisionIDs, msaToken)
	if err != nil {
		return nil, err
	}
	urls, err := fe3.ParseFileUrls(extendedXML)
	if err != nil {
		return nil, err
	}

	packages := buildResolvedPackages(urls, parsed)

	// Step 4/5: main-package detection and moniker parsing already folded
	// into buildResolvedPackages via parsed.UpdateInfoByID.

	packages = Dedup(packages)

	detected := localearch.DetectArchitecture()
	packages = FilterByArchitecture(packages, req.Architecture, req.ExplicitArch, detected)

	if req.LatestVersionsOnly {
		packages = FilterLatestVersion(packages)
	}

	if d.Installed != nil {
		installedList, err := d.Installed.Programs()
		if err == nil {
			for i := range packages {
				packages[i].Installed = installedprograms.MatchesInstalled(
					installedList, packages[i].PackageName, packages[i].Architecture, packages[i].Version,
					localearch.CompareDottedVersions)
			}
		}
	}

	product := ""
	if dcResult.IsFound() && len(dcResult.Products) > 0 && len(dcResult.Products[0].LocalizedProperties) > 0 {
		product = dcResult.Products[0].LocalizedProperties[0].ProductTitle
	}

	return &UnifiedStoreApp{
		ProductId:    productId,
		AppType:      MSIXAppX,
		DisplayName:  product,
		DownloadInfo: &DownloadInfo{Packages: packages, TotalSize: TotalSize(packages)},
		Manifest:     manifest,
	}, nil
}

// buildResolvedPackages turns each FE3 download URL into a ResolvedPackage,
// extracting the GUID basename, resolving it against the GUID→Name map
// (spec §4.8 step 3), parsing the moniker (step 5), and applying
// main-package detection (step 4).
func buildResolvedPackages(urls []string, parsed fe3.ParsedUpdates) []ResolvedPackage {
	packages := make([]ResolvedPackage, 0, len(urls))

	for _, rawURL := range urls {
		guid := extractGUID(rawURL)
		moniker := fe3.ResolveFileName(guid, parsed.GUIDToName)

		pkg := ResolvedPackage{
			PackageMoniker: moniker,
			FileName:       moniker,
			Url:            rawURL,
		}

		if name, version, arch, publisher, ok := ParseMoniker(moniker); ok {
			pkg.PackageName = name
			pkg.Version = version
			pkg.Architecture = arch
			pkg.PublisherId = publisher
		}

		// Locate the corresponding UpdateInfo node by matching moniker
		// against PackageMoniker (spec §4.8 step 4).
		for updateID, info := range parsed.UpdateInfoByID {
			if info.PackageMoniker != moniker {
				continue
			}
			pkg.UpdateId = updateID
			pkg.Size = info.Size
			pkg.PackageRank = info.PackageRank
			pkg.IsMainPackage = !info.IsAppxFramework && info.PackageRank > 100
			break
		}
		if pkg.PackageRank == 0 {
			pkg.PackageRank = 100
		}

		packages = append(packages, pkg)
	}

	return packages
}

// extractGUID returns the basename of urlStr's path with its extension
// stripped, matching spec §4.8 step 3's "extract the GUID (basename
// without extension) from its path."
func extractGUID(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	base := urlStr
	if err == nil {
		base = parsed.Path
	}
	base = path.Base(base)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
