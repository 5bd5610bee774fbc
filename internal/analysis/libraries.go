package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/fwscan/internal/buildtool"
	"github.com/mvp-joe/fwscan/internal/config"
	"github.com/mvp-joe/fwscan/internal/manifest"
	"github.com/phuslu/log"
)

// Local library layouts.
const (
	LayoutArduino     = "arduino"     // has library.properties
	LayoutSrc         = "src"         // has a src/ directory
	LayoutNonStandard = "nonstandard" // neither
)

// PlatformIOLibs is what the manifest declares and the tool has installed.
type PlatformIOLibs struct {
	Declared      []string                     `json:"declared" yaml:"declared"`
	ManifestFound bool                         `json:"manifest_found" yaml:"manifest_found"`
	Installed     []buildtool.InstalledLibrary `json:"installed" yaml:"installed"`
}

// LocalLibrary is a directory under the project lib dir.
type LocalLibrary struct {
	Name   string `json:"name" yaml:"name"`
	Layout string `json:"layout" yaml:"layout"`
}

// LibraryReport is the output of the library analysis.
type LibraryReport struct {
	PlatformIOLibs PlatformIOLibs      `json:"platformio_libs" yaml:"platformio_libs"`
	SourceIncludes map[string][]string `json:"source_includes" yaml:"source_includes"`
	LibraryUsage   map[string]int      `json:"library_usage" yaml:"library_usage"`
	TotalIncludes  int                 `json:"total_includes" yaml:"total_includes"`
	FunctionUsage  map[string]int      `json:"function_usage" yaml:"function_usage"`
	UsedDeclared   []string            `json:"used_declared" yaml:"used_declared"`
	UnusedLibs     []string            `json:"unused_libs" yaml:"unused_libs"`
	LibDirFound    bool                `json:"lib_dir_found" yaml:"lib_dir_found"`
	LocalLibraries []LocalLibrary      `json:"local_libraries" yaml:"local_libraries"`
	Advice         []Advice            `json:"recommendations" yaml:"recommendations"`
}

// Libraries reconciles the declared libraries against the includes found by
// the scan.
func (a *Analyzer) Libraries(ctx context.Context, scan *Scan) (*LibraryReport, error) {
	model := scan.Model

	declared, found, err := manifest.LoadDeclared(config.Resolve(a.root, a.cfg.Manifest.Path))
	if err != nil {
		log.Warn().Err(err).Str("path", a.cfg.Manifest.Path).Msg("cannot read manifest, no declared libraries")
		declared = []string{}
	} else if !found {
		log.Info().Str("path", a.cfg.Manifest.Path).Msg("no manifest found, no declared libraries")
	}

	installed := []buildtool.InstalledLibrary{}
	if a.tool != nil {
		installed = a.tool.InstalledLibraries(ctx)
	}

	labels := model.LibraryLabels()
	report := &LibraryReport{
		PlatformIOLibs: PlatformIOLibs{
			Declared:      declared,
			ManifestFound: found,
			Installed:     installed,
		},
		SourceIncludes: make(map[string][]string, len(labels)),
		LibraryUsage:   make(map[string]int, len(labels)),
		TotalIncludes:  model.TotalIncludeOccurrences(),
		FunctionUsage:  model.Calls,
		UsedDeclared:   []string{},
		UnusedLibs:     manifest.Unused(declared, labels),
	}
	for _, label := range labels {
		usage := model.Libraries[label]
		report.SourceIncludes[label] = usage.Files
		report.LibraryUsage[label] = usage.Count
	}
	for _, d := range declared {
		if manifest.IsUsed(d, labels) {
			report.UsedDeclared = append(report.UsedDeclared, d)
		}
	}

	report.LibDirFound, report.LocalLibraries, err = localLibraries(config.Resolve(a.root, a.cfg.Paths.LibDir))
	if err != nil {
		log.Warn().Err(err).Str("dir", a.cfg.Paths.LibDir).Msg("cannot list local libraries")
		report.LocalLibraries = []LocalLibrary{}
	}

	report.Advice = libraryAdvice(labels, report.UnusedLibs)
	return report, nil
}

// localLibraries lists the library directories under dir and their layout.
func localLibraries(dir string) (bool, []LocalLibrary, error) {
	libs := []LocalLibrary{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, libs, nil
		}
		return false, nil, fmt.Errorf("failed to read lib directory: %w", err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		layout := LayoutNonStandard
		switch {
		case exists(filepath.Join(dir, e.Name(), "library.properties")):
			layout = LayoutArduino
		case exists(filepath.Join(dir, e.Name(), "src")):
			layout = LayoutSrc
		}
		libs = append(libs, LocalLibrary{Name: e.Name(), Layout: layout})
	}
	return true, libs, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// heavyLibraries are known to need a lot of RAM.
var heavyLibraries = []string{"ArduinoJson", "ESPAsyncWebServer", "TFT_eSPI"}

func libraryAdvice(labels []string, unused []string) []Advice {
	advice := []Advice{}

	network := matching(labels, "wifi", "async")
	if len(network) > 1 {
		advice = append(advice, Advice{
			Kind:       AdviceMultipleNetwork,
			Message:    "multiple network libraries: " + strings.Join(network, ", "),
			Suggestion: "use a single network stack",
			Items:      network,
		})
	}

	display := matching(labels, "tft", "display", "lcd", "oled")
	if len(display) > 1 {
		advice = append(advice, Advice{
			Kind:       AdviceMultipleDisplay,
			Message:    "multiple display libraries: " + strings.Join(display, ", "),
			Suggestion: "use a single display library",
			Items:      display,
		})
	}

	var heavy []string
	for _, lib := range heavyLibraries {
		for _, label := range labels {
			if label == lib {
				heavy = append(heavy, lib)
			}
		}
	}
	if len(heavy) > 0 {
		advice = append(advice, Advice{
			Kind:       AdviceHeavyLibraries,
			Message:    "memory-intensive libraries: " + strings.Join(heavy, ", "),
			Suggestion: "monitor memory usage and consider PSRAM",
			Items:      heavy,
		})
	}

	if len(unused) > 0 {
		advice = append(advice, Advice{
			Kind:       AdviceUnusedLibraries,
			Message:    fmt.Sprintf("%d declared libraries appear unused", len(unused)),
			Suggestion: "consider removing them from platformio.ini",
			Items:      unused,
		})
	}
	return advice
}

// matching returns the labels whose lower-cased name contains any needle.
func matching(labels []string, needles ...string) []string {
	var out []string
	for _, label := range labels {
		lower := strings.ToLower(label)
		for _, n := range needles {
			if strings.Contains(lower, n) {
				out = append(out, label)
				break
			}
		}
	}
	return out
}
