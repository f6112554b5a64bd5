package wingetmanifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveSilentSwitchPrefersExplicitSilent(t *testing.T) {
	inst := Installer{InstallerType: "msi", InstallerSwitches: InstallerSwitches{Silent: "/q"}}
	assert.Equal(t, "/q", resolveSilentSwitch(inst))
}

func TestResolveSilentSwitchFallsBackToCustom(t *testing.T) {
	inst := Installer{InstallerType: "msi", InstallerSwitches: InstallerSwitches{Custom: "/C"}}
	assert.Equal(t, "/C", resolveSilentSwitch(inst))
}

func TestResolveSilentSwitchFallsBackToTypeDefault(t *testing.T) {
	assert.Equal(t, "/quiet /norestart", resolveSilentSwitch(Installer{InstallerType: "msi"}))
	assert.Equal(t, "/quiet /norestart", resolveSilentSwitch(Installer{InstallerType: "wix"}))
	assert.Equal(t, "/SP- /VERYSILENT /NORESTART", resolveSilentSwitch(Installer{InstallerType: "inno"}))
	assert.Equal(t, "/S", resolveSilentSwitch(Installer{InstallerType: "nullsoft"}))
	assert.Equal(t, "", resolveSilentSwitch(Installer{InstallerType: "exe"}))
}

func TestFindByArchitectureCaseInsensitive(t *testing.T) {
	installers := []Installer{
		{Architecture: "x86"},
		{Architecture: "X64"},
	}
	got, ok := findByArchitecture(installers, "x64")
	assert.True(t, ok)
	assert.Equal(t, "X64", got.Architecture)
}

func TestFindByArchitecturePrefersMSIOverExe(t *testing.T) {
	installers := []Installer{
		{Architecture: "x64", InstallerType: "exe", InstallerUrl: "https://example.com/setup.exe"},
		{Architecture: "x64", InstallerType: "msi", InstallerUrl: "https://example.com/setup.msi"},
	}
	got, ok := findByArchitecture(installers, "x64")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/setup.msi", got.InstallerUrl)
}

func TestFindByArchitecturePrefersWiXOverNullsoft(t *testing.T) {
	installers := []Installer{
		{Architecture: "x64", InstallerType: "nullsoft", InstallerUrl: "https://example.com/setup-nsis.exe"},
		{Architecture: "x64", InstallerType: "wix", InstallerUrl: "https://example.com/setup-wix.exe"},
	}
	got, ok := findByArchitecture(installers, "x64")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/setup-wix.exe", got.InstallerUrl)
}

func TestFindByArchitectureFallsBackWhenNoMSI(t *testing.T) {
	installers := []Installer{
		{Architecture: "x64", InstallerType: "exe", InstallerUrl: "https://example.com/setup.exe"},
	}
	got, ok := findByArchitecture(installers, "x64")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/setup.exe", got.InstallerUrl)
}

func TestFindRelativePathMatchesExactVersion(t *testing.T) {
	index := versionDataDoc{Versions: []versionEntry{
		{Version: "1.0.0", RelativePath: "packages/Foo/1.0.0/manifest.yaml"},
		{Version: "2.0.0", RelativePath: "packages/Foo/2.0.0/manifest.yaml"},
	}}

	path, ok := findRelativePath(index, "2.0.0")
	assert.True(t, ok)
	assert.Equal(t, "packages/Foo/2.0.0/manifest.yaml", path)

	_, ok = findRelativePath(index, "9.9.9")
	assert.False(t, ok)
}

func TestGetPackageInstallerFallsBackToBackupArch(t *testing.T) {
	manifest := &Manifest{Installers: []Installer{
		{Architecture: "x86", InstallerType: "exe", InstallerUrl: "https://example.com/x86.exe"},
	}}

	selected, err := GetPackageInstaller(manifest, "x64", "x86", "")
	assert.NoError(t, err)
	assert.Equal(t, "https://example.com/x86.exe", selected.URL)
}

func TestGetPackageInstallerErrorsWhenNoArchitectureMatches(t *testing.T) {
	manifest := &Manifest{Installers: []Installer{{Architecture: "arm64"}}}

	_, err := GetPackageInstaller(manifest, "x64", "", "")
	assert.Error(t, err)
}
