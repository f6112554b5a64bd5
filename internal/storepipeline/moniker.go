package storepipeline

import "regexp"

// monikerPatterns are tried in order against PackageMoniker (spec §4.8
// step 5). Each has four capture groups: Name, Version, Arch, PublisherId.
var monikerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.+?)_(\d+\.\d+\.\d+\.\d+)_([^_]+)__(.+)$`),
	regexp.MustCompile(`^(.+?)_(\d+\.\d+\.\d+)_([^_]+)__(.+)$`),
	regexp.MustCompile(`^(.+?)_(\d+\.\d+\.\d+\.\d+)_([^_]+)_~_(.+)$`),
}

// ParseMoniker fills Name/Version/Arch/PublisherId by matching moniker
// against each pattern in monikerPatterns in turn, returning the first
// match. ok is false if none match.
func ParseMoniker(moniker string) (name, version, arch, publisherId string, ok bool) {
	for _, re := range monikerPatterns {
		m := re.FindStringSubmatch(moniker)
		if m == nil {
			continue
		}
		return m[1], m[2], m[3], m[4], true
	}
	return "", "", "", "", false
}
