package storepipeline

import "time"

// AppType discriminates which Store delivery mechanism produced a
// UnifiedStoreApp (spec §3).
type AppType string

const (
	MSIXAppX AppType = "MSIX/AppX"
	Win32    AppType = "Win32"
)

// ResolvedPackage is one package resolved by the MSIX/AppX path (spec §3).
// Invariant: exactly one IsMainPackage=true per product after filtering,
// when a main package exists at all (spec §8).
type ResolvedPackage struct {
	UpdateId       string
	PackageMoniker string
	PackageName    string
	Version        string
	Architecture   string
	PublisherId    string
	FileName       string
	Size           int64
	Url            string
	IsMainPackage  bool
	PackageRank    int
	Installed      bool
}

// DownloadInfo carries the MSIX/AppX package set and its aggregate size.
type DownloadInfo struct {
	Packages  []ResolvedPackage
	TotalSize int64
}

// InstallerInfo carries the single selected Win32 installer (spec §4.8
// step 2).
type InstallerInfo struct {
	InstallerUrl    string
	InstallerSha256 string
	SilentSwitches  string
	Architecture    string
	InstallerLocale string
	Scope           string
	InstallerType   string
}

// UnifiedStoreApp is the pipeline's single output shape (spec §3).
type UnifiedStoreApp struct {
	ProductId     string
	AppType       AppType
	DisplayName   string
	Publisher     string
	Description   string
	Category      string
	Version       string
	ReleaseDate   time.Time
	IsFree        bool
	Price         float64
	DownloadInfo  *DownloadInfo
	InstallerInfo *InstallerInfo
	Manifest      any
}
