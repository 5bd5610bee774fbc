package report

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mvp-joe/fwscan/internal/analysis"
)

const rule = "============================================================"

// WriteDependencyText formats the dependency report as plain text.
func WriteDependencyText(w io.Writer, r *analysis.DepsReport) error {
	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("Firmware project dependency report\n")
	b.WriteString(rule + "\n")

	b.WriteString("\nLibrary references:\n")
	for _, c := range r.Graph.LibraryStats {
		fmt.Fprintf(&b, "  - %s: %d references\n", c.Name, c.Count)
	}

	b.WriteString("\nModule dependencies:\n")
	for _, c := range r.Graph.ModuleStats {
		fmt.Fprintf(&b, "  - %s: %d dependencies\n", c.Name, c.Count)
	}

	if len(r.IncludePaths) > 0 {
		categories := make([]string, 0, len(r.IncludePaths))
		for c := range r.IncludePaths {
			categories = append(categories, c)
		}
		sort.Strings(categories)

		b.WriteString("\nInclude paths:\n")
		for _, c := range categories {
			fmt.Fprintf(&b, "  - %s: %d paths\n", c, r.IncludePaths[c])
		}
	}

	if len(r.Graph.Cycles) > 0 {
		b.WriteString("\nInclude cycles:\n")
		for _, cycle := range r.Graph.Cycles {
			fmt.Fprintf(&b, "  - %s\n", strings.Join(cycle, " -> "))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// SaveDependencyText writes the text report to dir and returns its path.
func SaveDependencyText(dir string, r *analysis.DepsReport) (string, error) {
	var b strings.Builder
	if err := WriteDependencyText(&b, r); err != nil {
		return "", err
	}
	path := filepath.Join(dir, DependencyTextName)
	if err := writeFile(path, []byte(b.String())); err != nil {
		return "", err
	}
	return path, nil
}
