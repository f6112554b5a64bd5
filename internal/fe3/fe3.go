// Package fe3 implements FE3Client (spec C7): SOAP SyncUpdates and
// GetExtendedUpdateInfo2 calls against the Microsoft delivery service,
// plus the XML pointer-chasing spec §9 describes as a deliberate shape of
// the vendor response.
package fe3

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/aggregator-project/msdelivery/internal/httpx"
	"github.com/aggregator-project/msdelivery/internal/toolkiterr"
)

const (
	component   = "fe3"
	defaultBase = "https://fe3.delivery.mp.microsoft.com/ClientWebService/client.asmx/secured"
	contentType = "application/soap+xml; charset=utf-8"
)

// fileExtensions are the AppX/MSIX-family extensions FE3 File nodes carry
// (spec §4.7). "cab" has no extension suffix when resolved to a name.
var fileExtensions = []string{"appx", "msix", "msixbundle", "appxbundle", "eappx", "emsix", "cab"}

// deviceAttributes is the large, static attribute string FE3 expects on
// every SyncUpdates call describing a generic Windows Update-capable
// client. The exact field values are not meaningful to this toolkit; FE3
// only requires the string to be present and well-formed.
const deviceAttributes = "E:BranchReadinessLevel=CB&DchuNvidiaGrfxExists=1&DchuAmdGrfxExists=1&" +
	"FlightRing=Retail&AttrDataVer=203&InstallLanguage=en-US&OSUILocale=en-US&" +
	"InstallationType=Client&FlightingBranchName=&Bios=&WuClientVer=10.0.0.0&" +
	"OSSkuId=48&App=WU&OSVersion=10.0.0.0&GenuineState=1&AppVer=10.0.0.0&" +
	"SdbVer=&IsFlightingEnabled=0"

// UpdateInfo is the per-update side-table entry FE3's ExtendedUpdateInfo
// block carries, used by C8 step 4 (main-package detection).
type UpdateInfo struct {
	UpdateID         string
	PackageMoniker   string
	Size             int64
	IsAppxFramework  bool
	PackageRank      int
}

// ParsedUpdates is the result of walking a SyncUpdates response: the
// ordered UpdateID/RevisionID pairs to feed GetExtendedUpdateInfo2, the
// GUID→Name side-table built from File nodes, and the UpdateID→UpdateInfo
// side-table built from ExtendedUpdateInfo/Updates/Update entries.
type ParsedUpdates struct {
	UpdateIDs      []string
	RevisionIDs    []int
	GUIDToName     map[string]string
	UpdateInfoByID map[string]UpdateInfo
}

// Client issues FE3 SOAP calls.
type Client struct {
	http *httpx.Client
	base string
}

// New constructs a Client against the default FE3 endpoint. Pass base to
// override it (e.g. in tests).
func New(http *httpx.Client, base string) *Client {
	if base == "" {
		base = defaultBase
	}
	return &Client{http: http, base: base}
}

// SyncUpdates posts a SyncUpdates SOAP 1.2 envelope and returns the raw
// response body (spec §4.7).
func (c *Client) SyncUpdates(ctx context.Context, wuCategoryId, msaToken string) ([]byte, error) {
	envelope := buildSyncUpdatesEnvelope(wuCategoryId, msaToken)

	resp, err := c.http.Do(ctx, "POST", c.base, []byte(envelope), contentType, map[string]string{
		"SOAPAction": "http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService/SyncUpdates",
	})
	if err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Transport, err)
	}
	if !resp.IsSuccess() {
		return nil, toolkiterr.New(component, toolkiterr.Transport,
			fmt.Errorf("fe3: SyncUpdates unexpected status %d", resp.StatusCode))
	}

	return resp.Body, nil
}

// GetExtendedUpdateInfo2 posts a GetExtendedUpdateInfo2 envelope for the
// given update/revision pairs and returns the raw response body.
func (c *Client) GetExtendedUpdateInfo2(ctx context.Context, updateIDs []string, revisionIDs []int, msaToken string) ([]byte, error) {
	envelope := buildGetExtendedUpdateInfo2Envelope(updateIDs, revisionIDs, msaToken)

	resp, err := c.http.Do(ctx, "POST", c.base, []byte(envelope), contentType, map[string]string{
		"SOAPAction": "http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService/GetExtendedUpdateInfo2",
	})
	if err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Transport, err)
	}
	if !resp.IsSuccess() {
		return nil, toolkiterr.New(component, toolkiterr.Transport,
			fmt.Errorf("fe3: GetExtendedUpdateInfo2 unexpected status %d", resp.StatusCode))
	}

	return resp.Body, nil
}

// ParseUpdateIDs walks all File nodes (building the GUID→Name map) and all
// SecuredFragment nodes (collecting UpdateID/RevisionNumber pairs from the
// grandparent's first child UpdateIdentity element), per spec §4.7/§9.
func ParseUpdateIDs(xmlBody []byte) (ParsedUpdates, error) {
	root, err := parseXML(xmlBody)
	if err != nil {
		return ParsedUpdates{}, toolkiterr.New(component, toolkiterr.Decode, err)
	}

	result := ParsedUpdates{GUIDToName: map[string]string{}, UpdateInfoByID: map[string]UpdateInfo{}}

	walk(root, nil, func(n *node, ancestors []*node) {
		if localName(n) != "File" {
			return
		}
		fileName, ok := n.attr("FileName")
		if !ok {
			return
		}
		moniker, _ := n.attr("InstallerSpecificIdentifier")
		key := stripCabExtension(fileName)
		if moniker != "" {
			result.GUIDToName[key] = moniker
		}
	})

	walk(root, nil, func(n *node, ancestors []*node) {
		if localName(n) != "SecuredFragment" {
			return
		}
		if len(ancestors) < 2 {
			return
		}
		grandparent := ancestors[len(ancestors)-2]
		if len(grandparent.Nodes) == 0 {
			return
		}
		identity := &grandparent.Nodes[0]
		if localName(identity) != "UpdateIdentity" {
			return
		}
		updateID, ok1 := identity.attr("UpdateID")
		revStr, ok2 := identity.attr("RevisionNumber")
		if !ok1 || !ok2 {
			return
		}
		rev, err := strconv.Atoi(revStr)
		if err != nil {
			return
		}
		result.UpdateIDs = append(result.UpdateIDs, updateID)
		result.RevisionIDs = append(result.RevisionIDs, rev)
	})

	walk(root, nil, func(n *node, ancestors []*node) {
		if localName(n) != "Update" {
			return
		}
		parseUpdateEntry(n, &result)
	})

	return result, nil
}

func parseUpdateEntry(updateNode *node, result *ParsedUpdates) {
	var info UpdateInfo
	info.PackageRank = 100

	walk(updateNode, nil, func(n *node, _ []*node) {
		switch localName(n) {
		case "UpdateIdentity":
			if id, ok := n.attr("UpdateID"); ok {
				info.UpdateID = id
			}
		case "File":
			if sizeStr, ok := n.attr("Size"); ok {
				if size, err := strconv.ParseInt(sizeStr, 10, 64); err == nil {
					info.Size = size
				}
			}
		case "Properties":
			if rankStr, ok := n.attr("PackageRank"); ok {
				if rank, err := strconv.Atoi(rankStr); err == nil {
					info.PackageRank = rank
				}
			}
			if fw, ok := n.attr("IsAppxFramework"); ok {
				info.IsAppxFramework = strings.EqualFold(fw, "true")
			}
		case "AppxMetadata":
			if moniker, ok := n.attr("PackageMoniker"); ok {
				info.PackageMoniker = moniker
			}
		}
	})

	if info.UpdateID != "" {
		result.UpdateInfoByID[info.UpdateID] = info
	}
}

// nameResolutionExtensions is the try-in-order extension list spec §4.8
// step 3 specifies when resolving a FE3 download URL's GUID against the
// GUID→Name map.
var nameResolutionExtensions = []string{"msixbundle", "appxbundle", "msix", "appx", "emsix", "eappx"}

// ResolveFileName implements spec §4.8 step 3's GUID→Name resolution: for
// a download URL's basename (without extension), try each extension in
// nameResolutionExtensions against guidToName; fall back to
// "<guid>.appx" if no entry matches. The result never contains a path
// separator (spec §8 "GUID→Name resolution totality").
func ResolveFileName(guid string, guidToName map[string]string) string {
	for _, ext := range nameResolutionExtensions {
		if name, ok := guidToName[guid+"."+ext]; ok {
			return name
		}
	}
	return guid + ".appx"
}

func stripCabExtension(fileName string) string {
	if strings.HasSuffix(strings.ToLower(fileName), ".cab") {
		return strings.TrimSuffix(fileName, fileName[len(fileName)-4:])
	}
	return fileName
}

// ParseFileUrls collects every <FileLocation><Url> text from a
// GetExtendedUpdateInfo2 response, in document order, skipping any whose
// text length is exactly 99 (BlockMap stubs, spec §4.7).
func ParseFileUrls(xmlBody []byte) ([]string, error) {
	root, err := parseXML(xmlBody)
	if err != nil {
		return nil, toolkiterr.New(component, toolkiterr.Decode, err)
	}

	var urls []string
	walk(root, nil, func(n *node, ancestors []*node) {
		if localName(n) != "FileLocation" {
			return
		}
		for _, child := range n.Nodes {
			if localName(&child) != "Url" {
				continue
			}
			text := strings.TrimSpace(child.Text)
			if len(text) == 99 {
				continue
			}
			urls = append(urls, text)
		}
	})

	return urls, nil
}

func buildSyncUpdatesEnvelope(wuCategoryId, msaToken string) string {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	b.WriteString(`<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">`)
	b.WriteString(`<soap:Header>`)
	b.WriteString(`<WindowsUpdateTicketsToken xmlns="http://www.microsoft.com/SoftwareDistribution">`)
	b.WriteString(`<TicketType Name="MSA" Version="1.0" Policy="MBI_SSL"><User>`)
	xml.EscapeText(&b, []byte(msaToken))
	b.WriteString(`</User></TicketType>`)
	b.WriteString(`</WindowsUpdateTicketsToken>`)
	b.WriteString(`</soap:Header>`)
	b.WriteString(`<soap:Body><SyncUpdates xmlns="http://www.microsoft.com/SoftwareDistribution">`)
	b.WriteString(`<cookie/><parameters>`)
	b.WriteString(`<ExpressQuery>false</ExpressQuery>`)
	b.WriteString(`<InstalledNonLeafUpdateIDs/>`)
	b.WriteString(`<OtherCachedUpdateIDs/>`)
	b.WriteString(`<FilterAppCategoryIds><CategoryIdentifier><Id>`)
	xml.EscapeText(&b, []byte(wuCategoryId))
	b.WriteString(`</Id></CategoryIdentifier></FilterAppCategoryIds>`)
	b.WriteString(`<TreatAppCategoryIdsAsInstalled>true</TreatAppCategoryIdsAsInstalled>`)
	b.WriteString(`<AlsoPerformRegularSync>false</AlsoPerformRegularSync>`)
	b.WriteString(`<ComputerSpec/>`)
	b.WriteString(`<ExtendedUpdateInfoParameters>`)
	b.WriteString(`<XmlUpdateFragmentTypes><XmlUpdateFragmentType>Extended</XmlUpdateFragmentType><XmlUpdateFragmentType>LocalizedProperties</XmlUpdateFragmentType><XmlUpdateFragmentType>Eula</XmlUpdateFragmentType></XmlUpdateFragmentTypes>`)
	b.WriteString(`<Locales><Locale>en-US</Locale><Locale>en</Locale></Locales>`)
	b.WriteString(`</ExtendedUpdateInfoParameters>`)
	b.WriteString(`<ClientPreferredLanguages><string>en-US</string></ClientPreferredLanguages>`)
	b.WriteString(`<ProductsParameters>`)
	b.WriteString(`<SyncCurrentVersionOnly>false</SyncCurrentVersionOnly>`)
	b.WriteString(`<DeviceAttributes>`)
	xml.EscapeText(&b, []byte(deviceAttributes))
	b.WriteString(`</DeviceAttributes>`)
	b.WriteString(`<CallerAttributes>E:Interactive=1&amp;IsSeeker=1&amp;</CallerAttributes>`)
	b.WriteString(`<Products/>`)
	b.WriteString(`</ProductsParameters>`)
	b.WriteString(`</parameters>`)
	b.WriteString(`</SyncUpdates></soap:Body></soap:Envelope>`)
	return b.String()
}

func buildGetExtendedUpdateInfo2Envelope(updateIDs []string, revisionIDs []int, msaToken string) string {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	b.WriteString(`<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">`)
	b.WriteString(`<soap:Header>`)
	b.WriteString(`<WindowsUpdateTicketsToken xmlns="http://www.microsoft.com/SoftwareDistribution">`)
	b.WriteString(`<TicketType Name="MSA" Version="1.0" Policy="MBI_SSL"><User>`)
	xml.EscapeText(&b, []byte(msaToken))
	b.WriteString(`</User></TicketType>`)
	b.WriteString(`</WindowsUpdateTicketsToken>`)
	b.WriteString(`</soap:Header>`)
	b.WriteString(`<soap:Body><GetExtendedUpdateInfo2 xmlns="http://www.microsoft.com/SoftwareDistribution">`)
	b.WriteString(`<updateIDs>`)
	for i, id := range updateIDs {
		rev := 0
		if i < len(revisionIDs) {
			rev = revisionIDs[i]
		}
		b.WriteString(`<UpdateIdentity><UpdateID>`)
		xml.EscapeText(&b, []byte(id))
		b.WriteString(`</UpdateID><RevisionNumber>`)
		b.WriteString(strconv.Itoa(rev))
		b.WriteString(`</RevisionNumber></UpdateIdentity>`)
	}
	b.WriteString(`</updateIDs>`)
	b.WriteString(`<infoTypes><XmlUpdateFragmentType>FileUrl</XmlUpdateFragmentType><XmlUpdateFragmentType>FileDecryption</XmlUpdateFragmentType></infoTypes>`)
	b.WriteString(`<deviceAttributes>`)
	xml.EscapeText(&b, []byte(deviceAttributes))
	b.WriteString(`</deviceAttributes>`)
	b.WriteString(`</GetExtendedUpdateInfo2></soap:Body></soap:Envelope>`)
	return b.String()
}
