package installedprograms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compareVersions(a, b string) int {
	return strings.Compare(a, b)
}

func TestSnapshotMemoizesProgramsAcrossCalls(t *testing.T) {
	s := NewSnapshot(Options{})

	first, err := s.Programs()
	require.NoError(t, err)
	assert.True(t, s.loaded)

	second, err := s.Programs()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMatchesInstalledRequiresNameAndArchitecture(t *testing.T) {
	programs := []Program{
		{Type: Appx, PackageName: "Contoso.App_8wekyb3d8bbwe", Architecture: "x64", Version: "2.0"},
	}

	assert.True(t, MatchesInstalled(programs, "Contoso.App_8wekyb3d8bbwe", "x64", "1.0", compareVersions))
	assert.False(t, MatchesInstalled(programs, "Contoso.App_8wekyb3d8bbwe", "arm64", "1.0", compareVersions))
	assert.False(t, MatchesInstalled(programs, "Other.App", "x64", "1.0", compareVersions))
}

func TestMatchesInstalledIgnoresWin32Entries(t *testing.T) {
	programs := []Program{
		{Type: Win32, Name: "Contoso App", Version: "2.0"},
	}

	assert.False(t, MatchesInstalled(programs, "Contoso App", "x64", "1.0", compareVersions))
}

func TestDecompressGUIDRoundTripsKnownPair(t *testing.T) {
	// {8D50BB2D-B6B9-4265-9BBC-F6989BF8B896} compressed is the subkey name
	// MSI uses under HKCR\Installer\Products for that product code.
	got := decompressGUID("D2BB05D89B6B5624B9CB6F89B98F8B69")
	assert.Equal(t, "{8D50BB2D-B6B9-4265-9BBC-F6989BF8B896}", got)
}

func TestDecompressGUIDLeavesNonCompressedInputUnchanged(t *testing.T) {
	assert.Equal(t, "not-a-compressed-guid", decompressGUID("not-a-compressed-guid"))
}
