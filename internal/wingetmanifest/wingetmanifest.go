// Package wingetmanifest implements WingetManifestFetcher (spec C10): it
// resolves a WinGet package/version to its YAML manifest via a
// content-addressed CDN path derived from the catalog's package hash,
// then selects an installer from that manifest.
package wingetmanifest

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aggregator-project/msdelivery/internal/mszip"
	"github.com/aggregator-project/msdelivery/internal/toolkiterr"
	"github.com/aggregator-project/msdelivery/internal/wingetcatalog"
)

const component = "wingetmanifest"

// InstallerSwitches mirrors the manifest's InstallerSwitches block.
type InstallerSwitches struct {
	Silent string `yaml:"Silent"`
	Custom string `yaml:"Custom"`
}

// NestedInstallerFile describes one file inside a bundled installer.
type NestedInstallerFile struct {
	RelativeFilePath      string `yaml:"RelativeFilePath"`
	PortableCommandAlias  string `yaml:"PortableCommandAlias"`
}

// Installer is one entry of a manifest's Installers list.
type Installer struct {
	Architecture         string                `yaml:"Architecture"`
	InstallerType        string                `yaml:"InstallerType"`
	InstallerUrl         string                `yaml:"InstallerUrl"`
	InstallerSha256      string                `yaml:"InstallerSha256"`
	Scope                string                `yaml:"Scope"`
	NestedInstallerType  string                `yaml:"NestedInstallerType"`
	NestedInstallerFiles []NestedInstallerFile `yaml:"NestedInstallerFiles"`
	InstallerSwitches    InstallerSwitches     `yaml:"InstallerSwitches"`
}

// Manifest is a parsed WinGet package manifest (spec §4.10 step D).
type Manifest struct {
	PackageIdentifier string      `yaml:"PackageIdentifier"`
	PackageVersion    string      `yaml:"PackageVersion"`
	Installers        []Installer `yaml:"Installers"`
	VersionData       []byte      `yaml:"-"`
}

// versionDataDoc is the shape of the decompressed versionData.mszyml
// blob: a list of {v: version, rP: relative path} entries (spec §4.10
// step C).
type versionDataDoc struct {
	Versions []versionEntry `yaml:"vD"`
}

type versionEntry struct {
	Version      string `yaml:"v"`
	RelativePath string `yaml:"rP"`
}

// Fetcher downloads bytes from a CDN-relative URL. The msctl CLI passes a
// plain net/http GET; kept as a plain function type here so this package
// has no direct HTTP dependency.
type Fetcher func(ctx context.Context, url string) ([]byte, error)

// GetManifest implements spec §4.10 steps A-D: resolve the package's hash
// prefix, download and decode the MSZIP version index, locate the
// requested version's relative path, then download and parse the
// uncompressed YAML manifest at that path.
func GetManifest(ctx context.Context, handle *wingetcatalog.Handle, fetch Fetcher, sourceBase, packageId, version string) (*Manifest, error) {
	meta, err := handle.PackageMeta(ctx, packageId)
	if err != nil {
		return nil, err
	}
	if version == "" {
		version = meta.LatestVersion
	}
	if len(meta.Hash) < 4 {
		return nil, toolkiterr.New(component, toolkiterr.Decode, fmt.Errorf("wingetmanifest: package hash shorter than 4 bytes"))
	}
	hash8 := hex.EncodeToString(meta.Hash[:4])

	indexURL := fmt.Sprintf("%s/packages/%s/%s/versionData.mszyml", strings.TrimRight(sourceBase, "/"), packageId, hash8)
	compressed, err := fetch(ctx, indexURL)
	if err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Transport, err)
	}

	decompressed, err := mszip.Decompress(compressed)
	if err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Decode, err)
	}
	decompressed = mszip.StripTailArtifacts(decompressed)

	var index versionDataDoc
	if err := yaml.Unmarshal(decompressed, &index); err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Decode, err)
	}

	relativePath, ok := findRelativePath(index, version)
	if !ok {
		return nil, toolkiterr.New(component, toolkiterr.NotFound,
			fmt.Errorf("wingetmanifest: version %s not found for %s", version, packageId))
	}

	manifestURL := fmt.Sprintf("%s/%s", strings.TrimRight(sourceBase, "/"), strings.TrimLeft(relativePath, "/"))
	manifestYAML, err := fetch(ctx, manifestURL)
	if err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Transport, err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(manifestYAML, &manifest); err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Decode, err)
	}
	manifest.VersionData = decompressed

	return &manifest, nil
}

func findRelativePath(index versionDataDoc, version string) (string, bool) {
	for _, entry := range index.Versions {
		if entry.Version == version {
			return entry.RelativePath, true
		}
	}
	return "", false
}

// defaultSilentSwitches is the InstallerType-keyed fallback table used
// when a manifest declares no explicit Silent or Custom switch (spec
// §4.10).
var defaultSilentSwitches = map[string]string{
	"msi":       "/quiet /norestart",
	"wix":       "/quiet /norestart",
	"inno":      "/SP- /VERYSILENT /NORESTART",
	"nullsoft":  "/S",
	"exe":       "",
	"portable":  "",
}

// SelectedInstaller is the result of GetPackageInstaller (spec §4.10).
type SelectedInstaller struct {
	Installers           []Installer
	InstallerType        string
	NestedInstallerType  string
	NestedInstallerFiles []NestedInstallerFile
	Silent               string
	URL                  string
	Scope                string
	Manifest             *Manifest
}

// GetPackageInstaller selects one installer by scope then architecture
// (primary, falling back to backupArch), resolves its nested installer
// type, and chooses its silent switches (spec §4.10).
func GetPackageInstaller(manifest *Manifest, arch, backupArch, scope string) (*SelectedInstaller, error) {
	candidates := manifest.Installers
	if scope != "" {
		candidates = filterByScope(candidates, scope)
	}

	chosen, ok := findByArchitecture(candidates, arch)
	if !ok && backupArch != "" {
		chosen, ok = findByArchitecture(candidates, backupArch)
	}
	if !ok {
		return nil, toolkiterr.New(component, toolkiterr.NotFound,
			fmt.Errorf("wingetmanifest: no installer matches architecture %q (backup %q)", arch, backupArch))
	}

	return &SelectedInstaller{
		Installers:           manifest.Installers,
		InstallerType:        chosen.InstallerType,
		NestedInstallerType:  chosen.NestedInstallerType,
		NestedInstallerFiles: chosen.NestedInstallerFiles,
		Silent:               resolveSilentSwitch(chosen),
		URL:                  chosen.InstallerUrl,
		Scope:                chosen.Scope,
		Manifest:             manifest,
	}, nil
}

func filterByScope(installers []Installer, scope string) []Installer {
	var out []Installer
	for _, inst := range installers {
		if strings.EqualFold(inst.Scope, scope) {
			out = append(out, inst)
		}
	}
	return out
}

// findByArchitecture returns the MSI/WiX installer for arch when one
// exists, falling back to the first non-MSI match otherwise (spec §9
// Design Note: MSI and WiX form a subclass preferred over non-MSI
// alternatives for the same architecture).
func findByArchitecture(installers []Installer, arch string) (Installer, bool) {
	var fallback Installer
	haveFallback := false

	for _, inst := range installers {
		if !strings.EqualFold(inst.Architecture, arch) {
			continue
		}
		if isMSIInstallerType(inst.InstallerType) {
			return inst, true
		}
		if !haveFallback {
			fallback = inst
			haveFallback = true
		}
	}

	return fallback, haveFallback
}

func isMSIInstallerType(installerType string) bool {
	switch strings.ToLower(installerType) {
	case "msi", "wix":
		return true
	default:
		return false
	}
}

func resolveSilentSwitch(inst Installer) string {
	if inst.InstallerSwitches.Silent != "" {
		return inst.InstallerSwitches.Silent
	}
	if inst.InstallerSwitches.Custom != "" {
		return inst.InstallerSwitches.Custom
	}
	return defaultSilentSwitches[strings.ToLower(inst.InstallerType)]
}
