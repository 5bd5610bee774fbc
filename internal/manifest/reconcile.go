package manifest

import "strings"

var normalizer = strings.NewReplacer("-", "", "_", "", " ", "")

// Normalize lower-cases a library name and drops hyphens, underscores and spaces.
func Normalize(name string) string {
	return normalizer.Replace(strings.ToLower(name))
}

// LibraryName extracts the library name from a declared entry:
// "bodmer/TFT_eSPI@^2.5.43" -> "TFT_eSPI",
// "https://github.com/me-no-dev/AsyncTCP.git" -> "AsyncTCP",
// "git@github.com:me-no-dev/AsyncTCP.git" -> "AsyncTCP".
func LibraryName(entry string) string {
	name := strings.TrimSpace(entry)
	if i := strings.Index(name, "@"); i >= 0 && !isURL(name, i) {
		name = name[:i]
	}
	name = strings.TrimRight(name, "/")
	if i := strings.LastIndexAny(name, "/:"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, ".git")
	return strings.TrimSpace(name)
}

// IsUsed reports whether the normalized declared name is contained in any
// normalized used label. The check is deliberately one-way.
func IsUsed(declared string, usedLabels []string) bool {
	want := Normalize(LibraryName(declared))
	for _, used := range usedLabels {
		if strings.Contains(Normalize(used), want) {
			return true
		}
	}
	return false
}

// Unused returns the declared entries, verbatim and in order, that no used
// label accounts for. Nothing is ever removed from the manifest.
func Unused(declared []string, usedLabels []string) []string {
	unused := []string{}
	for _, d := range declared {
		if !IsUsed(d, usedLabels) {
			unused = append(unused, d)
		}
	}
	return unused
}

// isURL reports whether the "@" at i belongs to a URL ("https://user@host/...")
// or an scp-style git address ("git@host:owner/repo.git") rather than a
// version constraint.
func isURL(name string, at int) bool {
	before := name[:at]
	if strings.Contains(before, "://") {
		return true
	}
	return !strings.Contains(before, "/") && strings.Contains(name[at+1:], ":")
}
