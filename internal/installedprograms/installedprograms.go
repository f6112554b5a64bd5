// Package installedprograms implements InstalledPrograms (spec C12): a
// registry + AppX scan used by C8 to label dependency Installed status,
// and exposed as a standalone queryable component (SPEC_FULL.md §9
// recovered features) for auditing installed software independent of any
// Store lookup.
package installedprograms

import (
	"fmt"
	"strings"
	"sync"
)

// Type discriminates a win32 (registry Uninstall-key) entry from an appx
// (packaged-app) entry.
type Type string

const (
	Win32 Type = "win32"
	Appx  Type = "appx"
)

// Scope is the install scope a program was registered under.
type Scope string

const (
	Machine Scope = "machine"
	User    Scope = "user"
)

// Program is one discovered installed program (spec §3 InstalledProgram,
// §4.12).
type Program struct {
	Name            string
	Type            Type
	Publisher       string
	Version         string
	Architecture    string // appx only
	PackageName     string // appx only; PackageFamilyName-derived
	ProductCode     string // win32 only; registry key name / MSI ProductCode
	Scope           Scope
	InstallLocation string
	UninstallString string
}

// Options controls a Scan call.
type Options struct {
	IncludeAppx bool
}

// Snapshot is a memoized scan result, built once per process and reused
// by every subsequent caller (spec §5 "memoized on first use per
// process").
type Snapshot struct {
	mu       sync.Mutex
	programs []Program
	loaded   bool
	opts     Options
}

// NewSnapshot returns an unloaded Snapshot; the first call to Programs
// performs the scan.
func NewSnapshot(opts Options) *Snapshot {
	return &Snapshot{opts: opts}
}

// Programs returns the memoized program list, scanning on first call.
func (s *Snapshot) Programs() ([]Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.programs, nil
	}

	programs, err := Scan(s.opts)
	if err != nil {
		return nil, err
	}
	s.programs = programs
	s.loaded = true
	return programs, nil
}

// Scan performs a fresh registry (and optionally AppX) scan every call;
// prefer Snapshot.Programs for the memoized, process-wide view C8 uses.
func Scan(opts Options) ([]Program, error) {
	programs, err := scanUninstallKeys()
	if err != nil {
		return nil, err
	}

	// HKCR\Installer\Products (spec §6) indexes products by MSI ProductCode
	// rather than by the Uninstall key's registry path; merged in as
	// additional entries rather than de-duplicated against scanUninstallKeys,
	// since the two roots are populated independently and a product can be
	// missing from either one.
	if productsPrograms, err := scanInstallerProducts(); err == nil {
		programs = append(programs, productsPrograms...)
	}

	if opts.IncludeAppx {
		appxPrograms, err := scanAppxPackages()
		if err != nil {
			return programs, err
		}
		programs = append(programs, appxPrograms...)
	}

	return programs, nil
}

// decompressGUID reverses the MSI compressed-GUID encoding used for
// HKCR\Installer\Products subkey names, byte-swapping each field of a
// standard GUID back into its dashed string form. Returns raw unchanged if
// it isn't a 32-character compressed GUID.
func decompressGUID(raw string) string {
	if len(raw) != 32 {
		return raw
	}

	swap := func(s string) string {
		b := []byte(s)
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
		return string(b)
	}

	// A standard GUID {AABBCCDD-EEFF-GGHH-IJKL-MNOPQRSTUVWX} is compressed
	// by reversing the hex characters of each of the first three
	// dash-delimited fields, and swapping the two hex characters of each
	// byte in the last two fields.
	p1 := swap(raw[0:8])
	p2 := swap(raw[8:12])
	p3 := swap(raw[12:16])

	var p4, p5 strings.Builder
	for i := 16; i < 20; i += 2 {
		p4.WriteString(swap(raw[i : i+2]))
	}
	for i := 20; i < 32; i += 2 {
		p5.WriteString(swap(raw[i : i+2]))
	}

	return fmt.Sprintf("{%s-%s-%s-%s-%s}", p1, p2, p3, p4.String(), p5.String())
}

// MatchesInstalled reports whether the snapshot contains an appx entry
// with the given package name and architecture whose version compares
// greater than or equal to minVersion, using dotted-numeric comparison
// (spec §4.8 step 9).
func MatchesInstalled(programs []Program, packageName, architecture, minVersion string, compare func(a, b string) int) bool {
	for _, p := range programs {
		if p.Type != Appx {
			continue
		}
		if p.PackageName != packageName || p.Architecture != architecture {
			continue
		}
		if compare(p.Version, minVersion) >= 0 {
			return true
		}
	}
	return false
}
