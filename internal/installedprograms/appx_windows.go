//go:build windows

package installedprograms

import (
	"encoding/json"
	"fmt"
	"os/exec"
)

// appxEntry mirrors the subset of Get-AppxPackage's output this toolkit
// consumes, shaped for ConvertTo-Json.
type appxEntry struct {
	Name                 string `json:"Name"`
	Publisher            string `json:"Publisher"`
	Version              string `json:"Version"`
	Architecture         string `json:"Architecture"`
	PackageFamilyName    string `json:"PackageFamilyName"`
	InstallLocation      string `json:"InstallLocation"`
}

// scanAppxPackages shells out to Get-AppxPackage, matching the teacher's
// own exec.Command("powershell", ...)-based system-info gathering style
// (internal/system/windows.go) rather than a WinRT COM binding — no
// example repo in the pack wraps Windows.Management.Deployment, and
// Get-AppxPackage is the documented, stable surface for this query.
func scanAppxPackages() ([]Program, error) {
	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command",
		"Get-AppxPackage | Select-Object Name,Publisher,Version,Architecture,PackageFamilyName,InstallLocation | ConvertTo-Json -Compress")

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("installedprograms: Get-AppxPackage: %w", err)
	}

	entries, err := parseAppxJSON(out)
	if err != nil {
		return nil, fmt.Errorf("installedprograms: parsing Get-AppxPackage output: %w", err)
	}

	programs := make([]Program, 0, len(entries))
	for _, e := range entries {
		programs = append(programs, Program{
			Name:         e.Name,
			Type:         Appx,
			Publisher:    e.Publisher,
			Version:      e.Version,
			Architecture: e.Architecture,
			PackageName:  e.PackageFamilyName,
			Scope:        Machine,
			InstallLocation: e.InstallLocation,
		})
	}

	return programs, nil
}

// parseAppxJSON handles both single-object and array JSON shapes:
// PowerShell's ConvertTo-Json emits a bare object (not an array) when
// exactly one result is present.
func parseAppxJSON(data []byte) ([]appxEntry, error) {
	var asArray []appxEntry
	if err := json.Unmarshal(data, &asArray); err == nil {
		return asArray, nil
	}

	var single appxEntry
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	if single.Name == "" {
		return nil, nil
	}
	return []appxEntry{single}, nil
}
