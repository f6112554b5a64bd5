package storepipeline

import (
	"strings"

	"github.com/aggregator-project/msdelivery/internal/localearch"
)

// Dedup keeps the first ResolvedPackage per unique FileName, preserving
// input order (spec §4.8 step 6). Idempotent: Dedup(Dedup(p)) == Dedup(p)
// (spec §8).
func Dedup(packages []ResolvedPackage) []ResolvedPackage {
	seen := make(map[string]bool, len(packages))
	out := make([]ResolvedPackage, 0, len(packages))
	for _, p := range packages {
		if seen[p.FileName] {
			continue
		}
		seen[p.FileName] = true
		out = append(out, p)
	}
	return out
}

// ArchitecturePolicy selects the architecture filtering strategy for step 7.
type ArchitecturePolicy int

const (
	// ArchAll keeps every package regardless of architecture.
	ArchAll ArchitecturePolicy = iota
	// ArchAutodetect applies the detected-architecture preference chain.
	ArchAutodetect
	// ArchExact keeps only packages matching an explicit architecture string.
	ArchExact
)

// FilterByArchitecture groups packages by PackageName and, within each
// group, applies the architecture policy independently (spec §4.8 step 7;
// spec §9 open question: autodetect is per-PackageName, not enforced
// uniformly across a bundle).
func FilterByArchitecture(packages []ResolvedPackage, policy ArchitecturePolicy, explicitArch string, detected localearch.Architecture) []ResolvedPackage {
	groups := groupByPackageName(packages)

	var out []ResolvedPackage
	for _, name := range groups.order {
		group := groups.byName[name]

		switch policy {
		case ArchAll:
			out = append(out, group...)
		case ArchExact:
			for _, p := range group {
				if strings.EqualFold(p.Architecture, explicitArch) {
					out = append(out, p)
				}
			}
		case ArchAutodetect:
			matched := localearch.PreferArchitecture(detected, group, func(p ResolvedPackage) string { return p.Architecture })
			out = append(out, matched...)
		}
	}

	return out
}

// FilterLatestVersion groups packages by PackageName and keeps one package
// per name: the first whose Version compares greatest (spec §4.8 step 8).
func FilterLatestVersion(packages []ResolvedPackage) []ResolvedPackage {
	groups := groupByPackageName(packages)

	var out []ResolvedPackage
	for _, name := range groups.order {
		group := groups.byName[name]
		if len(group) == 0 {
			continue
		}

		best := group[0]
		for _, p := range group[1:] {
			if localearch.CompareDottedVersions(p.Version, best.Version) > 0 {
				best = p
			}
		}
		out = append(out, best)
	}

	return out
}

type packageGroups struct {
	order  []string
	byName map[string][]ResolvedPackage
}

func groupByPackageName(packages []ResolvedPackage) packageGroups {
	groups := packageGroups{byName: make(map[string][]ResolvedPackage)}
	for _, p := range packages {
		if _, ok := groups.byName[p.PackageName]; !ok {
			groups.order = append(groups.order, p.PackageName)
		}
		groups.byName[p.PackageName] = append(groups.byName[p.PackageName], p)
	}
	return groups
}

// TotalSize sums Size across packages, treating unset (zero) sizes as 0
// (spec §4.8 step 10).
func TotalSize(packages []ResolvedPackage) int64 {
	var total int64
	for _, p := range packages {
		total += p.Size
	}
	return total
}
