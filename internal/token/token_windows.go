//go:build windows

package token

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const ticketMarker = "ztd.dds.microsoft.com"

// extractDeviceTicket enumerates HKU\S-1-5-18\...\IdentityCRL\Immersive\
// production\Token, strips the 4-byte header from each DeviceTicket value,
// DPAPI-unprotects it with LocalMachine scope, decodes UTF-16LE, and
// returns the stripped ciphertext bytes re-encoded as base64 once it finds
// a ticket whose plaintext contains ticketMarker (spec §4.2 extraction
// procedure).
func extractDeviceTicket(logger *slog.Logger) (string, bool) {
	const keyPath = `S-1-5-18\Software\Microsoft\IdentityCRL\Immersive\production\Token`

	root, err := registry.OpenKey(registry.USERS, keyPath, registry.READ|registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		logger.Debug("token: opening IdentityCRL token key failed", "err", err)
		return "", false
	}
	defer root.Close()

	subkeys, err := root.ReadSubKeyNames(-1)
	if err != nil {
		logger.Debug("token: enumerating token subkeys failed", "err", err)
		return "", false
	}

	for _, sub := range subkeys {
		k, err := registry.OpenKey(root, sub, registry.READ)
		if err != nil {
			continue
		}
		raw, _, err := k.GetBinaryValue("DeviceTicket")
		k.Close()
		if err != nil || len(raw) <= 4 {
			continue
		}

		stripped := raw[4:]
		plain, err := dpapiUnprotect(stripped)
		if err != nil {
			logger.Debug("token: DPAPI unprotect failed", "subkey", sub, "err", err)
			continue
		}

		text := utf16LEToString(plain)
		if strings.Contains(text, ticketMarker) {
			return base64.StdEncoding.EncodeToString(stripped), true
		}
	}

	return "", false
}

// ExtractDeviceTicketToFile runs extractDeviceTicket and writes the ticket,
// wrapped as <Device>…</Device>, to outPath, followed by an outPath+".done"
// marker file. This is
// what "msctl internal-extract-token <outPath>" runs as the SYSTEM/elevated
// child process spawned by extractAsSystem and extractViaElevatedHelper
// (spec §4.2 steps 2/3).
func ExtractDeviceTicketToFile(logger *slog.Logger, outPath string) error {
	ticket, ok := extractDeviceTicket(logger)
	if !ok {
		return fmt.Errorf("token: device ticket extraction failed")
	}
	if err := os.WriteFile(outPath, []byte(wrapDevice(ticket)), 0o600); err != nil {
		return fmt.Errorf("token: writing %s: %w", outPath, err)
	}
	return os.WriteFile(outPath+".done", nil, 0o600)
}

func utf16LEToString(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	u16 := make([]uint16, len(b)/2)
	for i := range u16 {
		u16[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return string(utf16.Decode(u16))
}

// dpapiUnprotect calls CryptUnprotectData with LocalMachine scope (no
// entropy, no prompt), matching the "DPAPI-unprotect with LocalMachine
// scope" requirement of spec §4.2.
func dpapiUnprotect(cipher []byte) ([]byte, error) {
	var in, out windows.DataBlob
	in.Size = uint32(len(cipher))
	in.Data = &cipher[0]

	err := windows.CryptUnprotectData(&in, nil, nil, 0, nil, windows.CRYPTPROTECT_LOCAL_MACHINE, &out)
	if err != nil {
		return nil, fmt.Errorf("CryptUnprotectData: %w", err)
	}
	defer windows.LocalFree(windows.Handle(unsafe.Pointer(out.Data)))

	plain := make([]byte, out.Size)
	copy(plain, unsafe.Slice(out.Data, out.Size))
	return plain, nil
}

// extractAsSystem, when the current process already has administrator
// capability, runs extraction by spawning a scheduled task running as
// SYSTEM, reading the result back from a temp file (polled for up to 10s).
func extractAsSystem(ctx context.Context, logger *slog.Logger) (DeviceToken, bool) {
	if !isAdmin() {
		return "", false
	}

	outPath := filepath.Join(os.TempDir(), fmt.Sprintf("msdelivery-token-%d.txt", time.Now().UnixNano()))
	defer os.Remove(outPath)

	exe, err := os.Executable()
	if err != nil {
		logger.Debug("token: resolving executable path failed", "err", err)
		return "", false
	}

	taskName := fmt.Sprintf("msdelivery-extract-%d", time.Now().UnixNano())
	args := []string{
		"/Create", "/TN", taskName, "/SC", "ONCE", "/ST", "00:00",
		"/RU", "SYSTEM", "/RL", "HIGHEST", "/F",
		"/TR", fmt.Sprintf(`"%s" internal-extract-token "%s"`, exe, outPath),
	}
	if out, err := exec.CommandContext(ctx, "schtasks", args...).CombinedOutput(); err != nil {
		logger.Debug("token: schtasks create failed", "output", string(out), "err", err)
		return "", false
	}
	defer exec.Command("schtasks", "/Delete", "/TN", taskName, "/F").Run()

	if out, err := exec.CommandContext(ctx, "schtasks", "/Run", "/TN", taskName).CombinedOutput(); err != nil {
		logger.Debug("token: schtasks run failed", "output", string(out), "err", err)
		return "", false
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(outPath); err == nil {
			tok := DeviceToken(bytes.TrimSpace(data))
			if tok.Valid() {
				return tok, true
			}
		}
		time.Sleep(250 * time.Millisecond)
	}

	return "", false
}

// extractViaElevatedHelper launches a hidden elevated helper process that
// performs the same extraction and signals completion with a sentinel
// marker file, polling up to 20s as spec §4.2 step 3 requires.
func extractViaElevatedHelper(ctx context.Context, logger *slog.Logger) (DeviceToken, bool) {
	exe, err := os.Executable()
	if err != nil {
		return "", false
	}

	stamp := time.Now().UnixNano()
	outPath := filepath.Join(os.TempDir(), fmt.Sprintf("msdelivery-token-%d.txt", stamp))
	markerPath := outPath + ".done"
	defer os.Remove(outPath)
	defer os.Remove(markerPath)

	if err := runElevated(exe, "internal-extract-token", outPath); err != nil {
		logger.Debug("token: elevated helper launch failed", "err", err)
		return "", false
	}

	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(markerPath); err == nil {
			data, err := os.ReadFile(outPath)
			if err == nil {
				tok := DeviceToken(bytes.TrimSpace(data))
				if tok.Valid() {
					return tok, true
				}
			}
			return "", false
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(250 * time.Millisecond):
		}
	}

	return "", false
}

func extractFromWellKnownRegistry(logger *slog.Logger) (DeviceToken, bool) {
	if raw, ok := readRegistryValue(registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\StoreClient`, "ServiceToken"); ok {
		return wrapDevice(base64.StdEncoding.EncodeToString(raw)), true
	}
	if raw, ok := readRegistryValue(registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\WindowsUpdate\Orchestrator`, "TokenData"); ok {
		return wrapDevice(base64.StdEncoding.EncodeToString(raw)), true
	}
	logger.Debug("token: no well-known registry token found")
	return "", false
}

func readRegistryValue(root registry.Key, path, name string) ([]byte, bool) {
	k, err := registry.OpenKey(root, path, registry.READ)
	if err != nil {
		return nil, false
	}
	defer k.Close()

	if raw, _, err := k.GetBinaryValue(name); err == nil && len(raw) > 0 {
		return raw, true
	}
	if s, _, err := k.GetStringValue(name); err == nil && s != "" {
		return []byte(s), true
	}
	return nil, false
}

// isAdmin reports whether the current process token carries the built-in
// Administrators group.
func isAdmin() bool {
	var sid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	token := windows.Token(0)
	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}
	return member
}

var (
	shell32          = windows.NewLazySystemDLL("shell32.dll")
	procShellExecute = shell32.NewProc("ShellExecuteW")
)

const swHide = 0

// runElevated launches exe with args via ShellExecute's "runas" verb,
// hidden, matching spec §4.2's "hidden elevated helper".
func runElevated(exe string, args ...string) error {
	verb, _ := windows.UTF16PtrFromString("runas")
	file, _ := windows.UTF16PtrFromString(exe)
	params, _ := windows.UTF16PtrFromString(strings.Join(args, " "))
	dir, _ := windows.UTF16PtrFromString(filepath.Dir(exe))

	ret, _, callErr := procShellExecute.Call(
		0,
		uintptr(unsafe.Pointer(verb)),
		uintptr(unsafe.Pointer(file)),
		uintptr(unsafe.Pointer(params)),
		uintptr(unsafe.Pointer(dir)),
		uintptr(swHide),
	)
	if ret <= 32 {
		return fmt.Errorf("ShellExecuteW: %w", callErr)
	}
	return nil
}
