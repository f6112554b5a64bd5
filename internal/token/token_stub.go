//go:build !windows

package token

import (
	"context"
	"fmt"
	"log/slog"
)

// On non-Windows platforms the SYSTEM-hive DPAPI extraction and the
// elevated-helper path have no equivalent; both steps are no-ops so the
// acquisition chain falls through to the well-known-registry step (also a
// no-op off Windows) and finally the fallback constant.

func extractAsSystem(_ context.Context, _ *slog.Logger) (DeviceToken, bool) {
	return "", false
}

func extractViaElevatedHelper(_ context.Context, _ *slog.Logger) (DeviceToken, bool) {
	return "", false
}

func extractFromWellKnownRegistry(_ *slog.Logger) (DeviceToken, bool) {
	return "", false
}

// ExtractDeviceTicketToFile has no non-Windows equivalent; the
// "internal-extract-token" subcommand that calls this only ever runs as a
// child process spawned from token_windows.go.
func ExtractDeviceTicketToFile(_ *slog.Logger, _ string) error {
	return fmt.Errorf("token: device ticket extraction is Windows-only")
}
