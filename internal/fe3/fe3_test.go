package fe3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const syncUpdatesFixture = `<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <SyncUpdatesResponse>
      <SyncUpdatesResult>
        <ExtendedUpdateInfo>
          <Updates>
            <Update>
              <ID>1</ID>
              <Xml>
                <UpdateIdentity UpdateID="11111111-1111-1111-1111-111111111111" RevisionNumber="1"/>
                <Properties PackageRank="200" IsAppxFramework="false"/>
                <AppxMetadata PackageMoniker="Contoso.App_1.0.0.0_x64__8wekyb3d8bbwe"/>
                <File Size="123456" FileName="aaaaaaaa-1111-2222-3333-444444444444.appx" InstallerSpecificIdentifier="Contoso.App_1.0.0.0_x64__8wekyb3d8bbwe">
                  <SecuredFragment/>
                </File>
              </Xml>
            </Update>
            <Update>
              <ID>2</ID>
              <Xml>
                <UpdateIdentity UpdateID="22222222-2222-2222-2222-222222222222" RevisionNumber="3"/>
                <Properties PackageRank="80" IsAppxFramework="true"/>
                <AppxMetadata PackageMoniker="Contoso.Framework_1.0.0.0_x64__8wekyb3d8bbwe"/>
                <File Size="99" FileName="bbbbbbbb-1111-2222-3333-444444444444.cab" InstallerSpecificIdentifier="Contoso.Framework_1.0.0.0_x64__8wekyb3d8bbwe">
                  <SecuredFragment/>
                </File>
              </Xml>
            </Update>
          </Updates>
        </ExtendedUpdateInfo>
      </SyncUpdatesResult>
    </SyncUpdatesResponse>
  </soap:Body>
</soap:Envelope>`

func TestParseUpdateIDsCollectsSecuredFragments(t *testing.T) {
	parsed, err := ParseUpdateIDs([]byte(syncUpdatesFixture))
	require.NoError(t, err)

	assert.Len(t, parsed.UpdateIDs, 2)
	assert.Contains(t, parsed.UpdateIDs, "11111111-1111-1111-1111-111111111111")
	assert.Contains(t, parsed.UpdateIDs, "22222222-2222-2222-2222-222222222222")
	assert.Len(t, parsed.RevisionIDs, 2)
}

func TestParseUpdateIDsBuildsGUIDToNameMap(t *testing.T) {
	parsed, err := ParseUpdateIDs([]byte(syncUpdatesFixture))
	require.NoError(t, err)

	assert.Equal(t, "Contoso.App_1.0.0.0_x64__8wekyb3d8bbwe",
		parsed.GUIDToName["aaaaaaaa-1111-2222-3333-444444444444.appx"])
	assert.Equal(t, "Contoso.Framework_1.0.0.0_x64__8wekyb3d8bbwe",
		parsed.GUIDToName["bbbbbbbb-1111-2222-3333-444444444444"])
}

func TestParseUpdateIDsBuildsUpdateInfoByID(t *testing.T) {
	parsed, err := ParseUpdateIDs([]byte(syncUpdatesFixture))
	require.NoError(t, err)

	info, ok := parsed.UpdateInfoByID["11111111-1111-1111-1111-111111111111"]
	require.True(t, ok)
	assert.Equal(t, 200, info.PackageRank)
	assert.False(t, info.IsAppxFramework)
	assert.Equal(t, int64(123456), info.Size)

	fw, ok := parsed.UpdateInfoByID["22222222-2222-2222-2222-222222222222"]
	require.True(t, ok)
	assert.True(t, fw.IsAppxFramework)
}

func TestResolveFileNameFallsBackToGUIDAppx(t *testing.T) {
	m := map[string]string{"known-guid.appx": "Known.Name"}

	assert.Equal(t, "Known.Name", ResolveFileName("known-guid", m))
	assert.Equal(t, "unknown-guid.appx", ResolveFileName("unknown-guid", m))
}

func TestParseFileUrlsSkipsBlockMapStubs(t *testing.T) {
	stub99 := ""
	for len(stub99) < 99 {
		stub99 += "x"
	}
	fixture := `<Envelope><FileLocations>
		<FileLocation><Url>https://example.com/real.appx</Url></FileLocation>
		<FileLocation><Url>` + stub99 + `</Url></FileLocation>
	</FileLocations></Envelope>`

	urls, err := ParseFileUrls([]byte(fixture))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/real.appx"}, urls)
}
