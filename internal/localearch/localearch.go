// Package localearch implements LocaleArch (spec C4): system architecture
// and locale detection, and the ranked preference filters C8 uses to pick
// installers and packages.
package localearch

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Architecture is a detected or requested CPU architecture, in the naming
// the Store/WinGet APIs use.
type Architecture struct {
	Primary  string
	Fallback []string
}

// Locale is a detected system locale, in both full (`en-US`) and short
// (`en`) forms.
type Locale struct {
	Full  string
	Short string
}

// DetectArchitecture inspects runtime.GOARCH and returns the Store-naming
// equivalent as Primary, with a sensible fallback order behind it.
func DetectArchitecture() Architecture {
	switch runtime.GOARCH {
	case "amd64":
		return Architecture{Primary: "x64", Fallback: []string{"x86"}}
	case "386":
		return Architecture{Primary: "x86"}
	case "arm64":
		return Architecture{Primary: "arm64", Fallback: []string{"arm", "x64", "x86"}}
	case "arm":
		return Architecture{Primary: "arm"}
	default:
		return Architecture{Primary: runtime.GOARCH}
	}
}

// DetectLocale returns the process locale. Go has no direct GetUserDefaultLocaleName
// equivalent in the standard library; callers on Windows typically get this
// from the environment, so this reads LANG/LC_ALL-style values with a
// hard-coded en-US default, matching spec §9's treatment of locale as
// best-effort detection feeding a documented fallback chain.
func DetectLocale(envLookup func(string) string) Locale {
	if envLookup == nil {
		envLookup = defaultEnvLookup
	}

	for _, key := range []string{"MSDELIVERY_LOCALE", "LC_ALL", "LANG"} {
		if v := envLookup(key); v != "" {
			full := normalizeLocale(v)
			if full != "" {
				return Locale{Full: full, Short: shortLocale(full)}
			}
		}
	}

	return Locale{Full: "en-US", Short: "en"}
}

func normalizeLocale(v string) string {
	v = strings.SplitN(v, ".", 2)[0]
	v = strings.ReplaceAll(v, "_", "-")
	if v == "" || v == "C" || v == "POSIX" {
		return ""
	}
	return v
}

func shortLocale(full string) string {
	if i := strings.Index(full, "-"); i > 0 {
		return full[:i]
	}
	return full
}

// PreferArchitecture returns all packages whose property (default
// "Architecture") matches the first of [Primary, "neutral", Fallback...]
// that has any match at all. Comparison is case-insensitive; neutral ranks
// above the fallback architectures (spec §4.4).
func PreferArchitecture[T any](arch Architecture, packages []T, getProp func(T) string) []T {
	order := append([]string{arch.Primary, "neutral"}, arch.Fallback...)

	for _, candidate := range order {
		var matched []T
		for _, pkg := range packages {
			if strings.EqualFold(getProp(pkg), candidate) {
				matched = append(matched, pkg)
			}
		}
		if len(matched) > 0 {
			return matched
		}
	}

	return nil
}

// PreferLocale returns the first package whose property (default
// "InstallerLocale") equals, in order, Full, Short, and (if
// useEnglishFallback) "en-US", "en". Comparison is case-insensitive (spec
// §4.4).
func PreferLocale[T any](loc Locale, packages []T, getProp func(T) string, useEnglishFallback bool) (T, bool) {
	order := []string{loc.Full, loc.Short}
	if useEnglishFallback {
		order = append(order, "en-US", "en")
	}

	for _, candidate := range order {
		for _, pkg := range packages {
			if strings.EqualFold(getProp(pkg), candidate) {
				return pkg, true
			}
		}
	}

	var zero T
	return zero, false
}

// QueryFragment renders the market/languages query fragment used by C5 and
// C6 (spec §3 Locale projection).
func QueryFragment(market, language string, includeNeutral bool) string {
	var b strings.Builder
	b.WriteString("market=")
	b.WriteString(market)
	b.WriteString("&languages=")
	b.WriteString(language)
	b.WriteString("-")
	b.WriteString(market)
	b.WriteString(",")
	b.WriteString(language)
	if includeNeutral {
		b.WriteString(",neutral")
	}
	return b.String()
}

// CompareDottedVersions compares two dotted-numeric version strings
// component-wise, falling back to lexical string comparison when either
// side fails to parse as dotted-numeric (spec §4.8 step 8). It returns a
// negative number, zero, or a positive number as a < b, a == b, a > b.
func CompareDottedVersions(a, b string) int {
	av, aok := parseDottedVersion(a)
	bv, bok := parseDottedVersion(b)
	if !aok || !bok {
		return strings.Compare(a, b)
	}

	for i := 0; i < len(av) || i < len(bv); i++ {
		var x, y int
		if i < len(av) {
			x = av[i]
		}
		if i < len(bv) {
			y = bv[i]
		}
		if x != y {
			return x - y
		}
	}
	return 0
}

func parseDottedVersion(s string) ([]int, bool) {
	parts := strings.Split(s, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

func defaultEnvLookup(key string) string {
	return os.Getenv(key)
}
