package storepipeline

import "strings"

// NormalizeProductId upper-cases id (spec §3 ProductId is case-normalized
// to upper).
func NormalizeProductId(id string) string {
	return strings.ToUpper(id)
}

// IsMSIXProductId reports whether id's length indicates the MSIX/AppX
// DisplayCatalog path (exactly 12 characters) versus the Win32
// PackageManifests path (14+ characters), per spec §3/§8 control flow.
func IsMSIXProductId(id string) bool {
	return len(id) == 12
}
