package localearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type pkg struct {
	arch   string
	locale string
}

func TestPreferArchitectureNeverReturnsFallbackWhenPrimaryMatches(t *testing.T) {
	arch := Architecture{Primary: "x64", Fallback: []string{"x86"}}
	packages := []pkg{{arch: "x64"}, {arch: "x86"}, {arch: "arm64"}}

	got := PreferArchitecture(arch, packages, func(p pkg) string { return p.arch })
	assert.Len(t, got, 1)
	assert.Equal(t, "x64", got[0].arch)
}

func TestPreferArchitectureNeutralRanksAboveFallback(t *testing.T) {
	arch := Architecture{Primary: "x64", Fallback: []string{"x86"}}
	packages := []pkg{{arch: "neutral"}, {arch: "x86"}}

	got := PreferArchitecture(arch, packages, func(p pkg) string { return p.arch })
	assert.Len(t, got, 1)
	assert.Equal(t, "neutral", got[0].arch)
}

func TestPreferArchitectureFallsThroughToFallback(t *testing.T) {
	arch := Architecture{Primary: "x64", Fallback: []string{"x86"}}
	packages := []pkg{{arch: "x86"}}

	got := PreferArchitecture(arch, packages, func(p pkg) string { return p.arch })
	assert.Len(t, got, 1)
	assert.Equal(t, "x86", got[0].arch)
}

func TestPreferLocaleOrdering(t *testing.T) {
	loc := Locale{Full: "fr-FR", Short: "fr"}
	packages := []pkg{{locale: "en-US"}, {locale: "fr"}, {locale: "fr-FR"}}

	got, ok := PreferLocale(loc, packages, func(p pkg) string { return p.locale }, true)
	assert.True(t, ok)
	assert.Equal(t, "fr-FR", got.locale)
}

func TestPreferLocaleEnglishFallback(t *testing.T) {
	loc := Locale{Full: "de-DE", Short: "de"}
	packages := []pkg{{locale: "en-US"}}

	got, ok := PreferLocale(loc, packages, func(p pkg) string { return p.locale }, true)
	assert.True(t, ok)
	assert.Equal(t, "en-US", got.locale)
}

func TestPreferLocaleNoFallbackWhenDisabled(t *testing.T) {
	loc := Locale{Full: "de-DE", Short: "de"}
	packages := []pkg{{locale: "en-US"}}

	_, ok := PreferLocale(loc, packages, func(p pkg) string { return p.locale }, false)
	assert.False(t, ok)
}

func TestCompareDottedVersions(t *testing.T) {
	assert.True(t, CompareDottedVersions("1.2.3.4", "1.2.3.10") < 0)
	assert.True(t, CompareDottedVersions("2.0.0", "1.9.9") > 0)
	assert.Equal(t, 0, CompareDottedVersions("1.0", "1.0"))
}

func TestQueryFragment(t *testing.T) {
	got := QueryFragment("US", "en", true)
	assert.Equal(t, "market=US&languages=en-US,en,neutral", got)
}
