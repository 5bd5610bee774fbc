package buildtool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// InstalledLibrary is one entry of "pio lib list --json-output".
type InstalledLibrary struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Usage is one line of the checkprogsize summary.
type Usage struct {
	Used       int64   `json:"used" yaml:"used"`
	Total      int64   `json:"total" yaml:"total"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// MemoryUsage holds the RAM and Flash usage reported by a build.
// Either field is nil when the build output did not mention it.
type MemoryUsage struct {
	RAM   *Usage `json:"ram,omitempty" yaml:"ram,omitempty"`
	Flash *Usage `json:"flash,omitempty" yaml:"flash,omitempty"`
}

// Empty reports whether nothing was parsed.
func (m MemoryUsage) Empty() bool {
	return m.RAM == nil && m.Flash == nil
}

// Metadata is the subset of "pio project metadata" the analyses use.
type Metadata struct {
	// Includes maps an include path category (build, compatlib, toolchain)
	// to its directories.
	Includes map[string][]string `json:"includes" yaml:"includes"`
}

var (
	ramUsagePattern   = regexp.MustCompile(`RAM:\s+\[([=\s]+)\]\s+(\d+\.\d+)%\s+\(used\s+(\d+)\s+bytes\s+from\s+(\d+)\s+bytes\)`)
	flashUsagePattern = regexp.MustCompile(`Flash:\s+\[([=\s]+)\]\s+(\d+\.\d+)%\s+\(used\s+(\d+)\s+bytes\s+from\s+(\d+)\s+bytes\)`)
)

// InstalledLibraries lists the libraries the tool has installed. Any failure
// is logged and yields an empty list.
func (r *Runner) InstalledLibraries(ctx context.Context) []InstalledLibrary {
	stdout, _, err := r.run(ctx, "lib", "list", "--json-output")
	if err != nil {
		r.warn(err, "installed libraries")
		return []InstalledLibrary{}
	}

	libs, err := parseInstalledLibraries(stdout)
	if err != nil {
		r.warn(err, "installed libraries")
		return []InstalledLibrary{}
	}
	return libs
}

// MemoryUsage builds env (the default environment when empty) with the
// checkprogsize target and parses the size summary.
func (r *Runner) MemoryUsage(ctx context.Context, env string) MemoryUsage {
	args := []string{"run", "--target", "checkprogsize"}
	if env != "" {
		args = append(args, "--environment", env)
	}

	stdout, stderr, err := r.run(ctx, args...)
	if err != nil {
		r.warn(err, "memory usage")
		return MemoryUsage{}
	}

	usage := parseMemoryUsage(stdout)
	fromErr := parseMemoryUsage(stderr)
	if usage.RAM == nil {
		usage.RAM = fromErr.RAM
	}
	if usage.Flash == nil {
		usage.Flash = fromErr.Flash
	}
	return usage
}

// ProjectMetadata returns the include path categories of env.
func (r *Runner) ProjectMetadata(ctx context.Context, env string) Metadata {
	args := []string{"project", "metadata", "--json-output"}
	if env != "" {
		args = append(args, "--environment", env)
	}

	stdout, _, err := r.run(ctx, args...)
	if err != nil {
		r.warn(err, "project metadata")
		return Metadata{Includes: map[string][]string{}}
	}

	md, err := parseMetadata(stdout, env)
	if err != nil {
		r.warn(err, "project metadata")
		return Metadata{Includes: map[string][]string{}}
	}
	return md
}

// parseInstalledLibraries accepts both the flat list printed by current
// releases and the older object keyed by storage directory.
func parseInstalledLibraries(data []byte) ([]InstalledLibrary, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []InstalledLibrary{}, nil
	}

	var flat []InstalledLibrary
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, nil
	}

	var byStorage map[string][]InstalledLibrary
	if err := json.Unmarshal(data, &byStorage); err != nil {
		return nil, fmt.Errorf("invalid JSON output: %w", err)
	}

	keys := make([]string, 0, len(byStorage))
	for k := range byStorage {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	libs := []InstalledLibrary{}
	for _, k := range keys {
		libs = append(libs, byStorage[k]...)
	}
	return libs, nil
}

func parseMemoryUsage(out []byte) MemoryUsage {
	var usage MemoryUsage
	for _, raw := range bytes.Split(out, []byte("\n")) {
		line := string(bytes.TrimRight(raw, "\r"))
		if m := ramUsagePattern.FindStringSubmatch(line); m != nil {
			usage.RAM = usageFromMatch(m)
		} else if m := flashUsagePattern.FindStringSubmatch(line); m != nil {
			usage.Flash = usageFromMatch(m)
		}
	}
	return usage
}

func usageFromMatch(m []string) *Usage {
	pct, _ := strconv.ParseFloat(m[2], 64)
	used, _ := strconv.ParseInt(m[3], 10, 64)
	total, _ := strconv.ParseInt(m[4], 10, 64)
	return &Usage{Used: used, Total: total, Percentage: pct}
}

// parseMetadata accepts a document with top-level "includes" or one keyed by
// environment name.
func parseMetadata(data []byte, env string) (Metadata, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return Metadata{}, fmt.Errorf("invalid JSON output: %w", err)
	}

	raw, ok := top[env]
	if _, hasIncludes := top["includes"]; hasIncludes || !ok {
		raw = data
	}

	var md Metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return Metadata{}, fmt.Errorf("invalid metadata: %w", err)
	}
	if md.Includes == nil {
		md.Includes = map[string][]string{}
	}
	return md, nil
}
