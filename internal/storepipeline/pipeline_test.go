package storepipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aggregator-project/msdelivery/internal/localearch"
	"github.com/aggregator-project/msdelivery/internal/packagemanifests"
	"github.com/aggregator-project/msdelivery/internal/toolkiterr"
)

func resolveSilentSwitchesForTest(scope, custom string) string {
	return resolveSilentSwitches(packagemanifests.Installer{
		Scope:             scope,
		InstallerSwitches: map[string]string{"Custom": custom},
	})
}

func TestParseMonikerThreePatterns(t *testing.T) {
	name, version, arch, pub, ok := ParseMoniker("Contoso.App_1.2.3.4_x64__8wekyb3d8bbwe")
	assert.True(t, ok)
	assert.Equal(t, "Contoso.App", name)
	assert.Equal(t, "1.2.3.4", version)
	assert.Equal(t, "x64", arch)
	assert.Equal(t, "8wekyb3d8bbwe", pub)

	_, v2, _, _, ok2 := ParseMoniker("Contoso.App_1.2.3_x64__8wekyb3d8bbwe")
	assert.True(t, ok2)
	assert.Equal(t, "1.2.3", v2)

	_, _, _, _, ok3 := ParseMoniker("Contoso.App_1.2.3.4_x64_~_8wekyb3d8bbwe")
	assert.True(t, ok3)

	_, _, _, _, okBad := ParseMoniker("not-a-moniker")
	assert.False(t, okBad)
}

func TestDedupIsIdempotent(t *testing.T) {
	packages := []ResolvedPackage{
		{FileName: "a.appx"},
		{FileName: "b.appx"},
		{FileName: "a.appx"},
	}

	once := Dedup(packages)
	twice := Dedup(once)
	assert.Equal(t, once, twice)
	assert.Len(t, once, 2)
}

func TestGetUnifiedStoreAppInfoRejectsMalformedProductId(t *testing.T) {
	d := &Deps{}
	_, err := d.GetUnifiedStoreAppInfo(context.Background(), Request{ProductId: "tooshort"})
	assert.True(t, toolkiterr.Is(err, toolkiterr.Schema))
}

func TestPreferMSIInstallersNarrowsToMSISubclass(t *testing.T) {
	installers := []packagemanifests.Installer{
		{Architecture: "x64", InstallerType: "exe"},
		{Architecture: "x64", InstallerType: "msi"},
		{Architecture: "x64", InstallerType: "wix"},
	}

	got := preferMSIInstallers(installers)
	assert.Len(t, got, 2)
	for _, inst := range got {
		assert.True(t, isMSIInstallerType(inst.InstallerType))
	}
}

func TestPreferMSIInstallersReturnsInputWhenNoneAreMSI(t *testing.T) {
	installers := []packagemanifests.Installer{
		{Architecture: "x64", InstallerType: "exe"},
		{Architecture: "x64", InstallerType: "nullsoft"},
	}

	got := preferMSIInstallers(installers)
	assert.Equal(t, installers, got)
}

func TestFilterByArchitectureAutodetectNeverFallsBackWhenPrimaryMatches(t *testing.T) {
	detected := localearch.Architecture{Primary: "x64", Fallback: []string{"x86"}}
	packages := []ResolvedPackage{
		{PackageName: "App", Architecture: "x64"},
		{PackageName: "App", Architecture: "x86"},
	}

	got := FilterByArchitecture(packages, ArchAutodetect, "", detected)
	assert.Len(t, got, 1)
	assert.Equal(t, "x64", got[0].Architecture)
}

func TestExactlyOneMainPackageAfterFiltering(t *testing.T) {
	packages := []ResolvedPackage{
		{PackageName: "App", Architecture: "x64", Version: "1.0", IsMainPackage: true},
		{PackageName: "App.Framework", Architecture: "x64", Version: "1.0", IsMainPackage: false},
	}

	filtered := FilterByArchitecture(packages, ArchAll, "", localearch.Architecture{})
	count := 0
	for _, p := range filtered {
		if p.IsMainPackage {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestFilterLatestVersionKeepsGreatest(t *testing.T) {
	packages := []ResolvedPackage{
		{PackageName: "App", Version: "1.0.0.0"},
		{PackageName: "App", Version: "2.0.0.0"},
		{PackageName: "App", Version: "1.5.0.0"},
	}

	got := FilterLatestVersion(packages)
	assert.Len(t, got, 1)
	assert.Equal(t, "2.0.0.0", got[0].Version)
}

func TestResolveSilentSwitchesAppendsAllUsersOnlyForMachineScope(t *testing.T) {
	assert.Contains(t, resolveSilentSwitchesForTest("machine", ""), "/allusers")
	assert.NotContains(t, resolveSilentSwitchesForTest("user", ""), "/allusers")
	assert.Equal(t, "/S ALLUSERS=1", resolveSilentSwitchesForTest("machine", "/S ALLUSERS=1"))
}

func TestExtractGUIDStripsPathAndExtension(t *testing.T) {
	assert.Equal(t, "abc-123", extractGUID("https://example.com/packages/abc-123.appx?sig=x"))
}
