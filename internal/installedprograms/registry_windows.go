//go:build windows

package installedprograms

import (
	"golang.org/x/sys/windows/registry"
)

// uninstallSource names one of the four uninstall registry roots spec
// §4.12 requires scanning (machine/user x native/32-bit view).
type uninstallSource struct {
	root  registry.Key
	path  string
	scope Scope
}

var uninstallSources = []uninstallSource{
	{registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`, Machine},
	{registry.LOCAL_MACHINE, `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`, Machine},
	{registry.CURRENT_USER, `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`, User},
	{registry.CURRENT_USER, `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`, User},
}

// scanUninstallKeys enumerates every subkey of the four uninstall roots
// and reads the standard DisplayName/Publisher/DisplayVersion/
// InstallLocation/UninstallString values (spec §4.12).
func scanUninstallKeys() ([]Program, error) {
	var programs []Program

	for _, src := range uninstallSources {
		root, err := registry.OpenKey(src.root, src.path, registry.READ|registry.ENUMERATE_SUB_KEYS)
		if err != nil {
			continue
		}

		names, err := root.ReadSubKeyNames(-1)
		if err != nil {
			root.Close()
			continue
		}

		for _, name := range names {
			k, err := registry.OpenKey(root, name, registry.READ)
			if err != nil {
				continue
			}

			displayName, _, _ := k.GetStringValue("DisplayName")
			if displayName == "" {
				k.Close()
				continue
			}

			publisher, _, _ := k.GetStringValue("Publisher")
			version, _, _ := k.GetStringValue("DisplayVersion")
			installLocation, _, _ := k.GetStringValue("InstallLocation")
			uninstallString, _, _ := k.GetStringValue("UninstallString")
			k.Close()

			programs = append(programs, Program{
				Name:            displayName,
				Type:            Win32,
				Publisher:       publisher,
				Version:         version,
				ProductCode:     name,
				Scope:           src.scope,
				InstallLocation: installLocation,
				UninstallString: uninstallString,
			})
		}

		root.Close()
	}

	return programs, nil
}

// productsRoot is the MSI product-code index spec.md §6 lists alongside
// the four Uninstall roots: one subkey per installed product, keyed by a
// compressed (byte-reversed) GUID rather than the uninstall key's plain
// ProductCode string.
const productsRoot = `Installer\Products`

// scanInstallerProducts enumerates HKCR\Installer\Products, recovering each
// product's ProductName and decompressing its subkey name back to a
// standard ProductCode GUID (spec §6). Entries are returned separately from
// scanUninstallKeys's Program list since this root carries no Publisher,
// DisplayVersion, or UninstallString.
func scanInstallerProducts() ([]Program, error) {
	root, err := registry.OpenKey(registry.CLASSES_ROOT, productsRoot, registry.READ|registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		return nil, nil
	}
	defer root.Close()

	names, err := root.ReadSubKeyNames(-1)
	if err != nil {
		return nil, nil
	}

	var programs []Program
	for _, name := range names {
		k, err := registry.OpenKey(root, name, registry.READ)
		if err != nil {
			continue
		}
		productName, _, _ := k.GetStringValue("ProductName")
		k.Close()
		if productName == "" {
			continue
		}

		programs = append(programs, Program{
			Name:        productName,
			Type:        Win32,
			ProductCode: decompressGUID(name),
			Scope:       Machine,
		})
	}

	return programs, nil
}

