// Package depgraph builds the module-level include graph of a source tree
// and finds include cycles between files.
package depgraph

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/mvp-joe/fwscan/internal/extract"
)

// ErrNoSources is returned when there are no source files to analyze.
var ErrNoSources = errors.New("no source files to analyze")

// Count is a named tally.
type Count struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// Edge is a dependency between two module graph vertices.
type Edge struct {
	From    string `json:"from" yaml:"from"`
	To      string `json:"to" yaml:"to"`
	Count   int    `json:"count" yaml:"count"`
	Library bool   `json:"library" yaml:"library"`
}

// Report is the result of Analyze.
type Report struct {
	Files        map[string][]extract.IncludeDirective `json:"files" yaml:"files"`
	LibraryStats []Count                               `json:"library_stats" yaml:"library_stats"`
	ModuleStats  []Count                               `json:"module_stats" yaml:"module_stats"`
	Edges        []Edge                                `json:"edges" yaml:"edges"`
	Cycles       [][]string                            `json:"cycles" yaml:"cycles"`
}

// Analyze derives library and module statistics from the include directives
// of code files, and include cycles from code and header files together.
func Analyze(code, headers map[string][]extract.IncludeDirective) (*Report, error) {
	if len(code) == 0 {
		return nil, ErrNoSources
	}

	libStats := make(map[string]int)
	modStats := make(map[string]int)
	edges := make(map[[2]string]*Edge)

	for file, directives := range code {
		from := ModuleCategory(file)
		modStats[from] += len(directives)

		for _, d := range directives {
			switch d.Kind {
			case extract.IncludeLocal:
				to := ModuleCategory(d.Header)
				if to != from {
					addEdge(edges, from, to, false)
				}
			case extract.IncludeSystem:
				if lib := LibraryCategory(d.Header); lib != "" {
					libStats[lib]++
					addEdge(edges, from, lib, true)
				}
			}
		}
	}

	cycles, err := FindCycles(code, headers)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Files:        code,
		LibraryStats: sortedCounts(libStats),
		ModuleStats:  sortedCounts(modStats),
		Edges:        make([]Edge, 0, len(edges)),
		Cycles:       cycles,
	}
	for _, e := range edges {
		report.Edges = append(report.Edges, *e)
	}
	sort.Slice(report.Edges, func(i, j int) bool {
		if report.Edges[i].From != report.Edges[j].From {
			return report.Edges[i].From < report.Edges[j].From
		}
		return report.Edges[i].To < report.Edges[j].To
	})
	return report, nil
}

func addEdge(edges map[[2]string]*Edge, from, to string, library bool) {
	key := [2]string{from, to}
	if e, ok := edges[key]; ok {
		e.Count++
		return
	}
	edges[key] = &Edge{From: from, To: to, Count: 1, Library: library}
}

// sortedCounts orders by descending count, then name.
func sortedCounts(m map[string]int) []Count {
	counts := make([]Count, 0, len(m))
	for name, n := range m {
		counts = append(counts, Count{Name: name, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Name < counts[j].Name
	})
	return counts
}

var moduleStyles = map[string][2]string{
	ModuleMain:    {"Main Entry", "lightblue"},
	ModuleApp:     {"Application Layer", "lightgreen"},
	ModuleDrivers: {"Hardware Drivers", "lightyellow"},
	ModuleCore:    {"Core System", "lightcoral"},
	ModuleSystem:  {"System Utils", "lightgray"},
}

var libraryStyles = map[string][2]string{
	LibraryTFT:     {"TFT Display", "orange"},
	LibraryFastLED: {"LED Control", "red"},
	LibraryWiFi:    {"WiFi Stack", "cyan"},
	LibraryArduino: {"Arduino Framework", "purple"},
}

// ModuleGraph builds the module graph: every module and library category is
// a vertex; edges come from the report.
func ModuleGraph(r *Report) (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed())

	for _, m := range Modules {
		style := moduleStyles[m]
		if err := g.AddVertex(m,
			graph.VertexAttribute("label", style[0]),
			graph.VertexAttribute("shape", "box"),
			graph.VertexAttribute("style", "rounded,filled"),
			graph.VertexAttribute("fillcolor", style[1]),
		); err != nil {
			return nil, fmt.Errorf("failed to add module %s: %w", m, err)
		}
	}
	for _, lib := range Libraries {
		style := libraryStyles[lib]
		if err := g.AddVertex(lib,
			graph.VertexAttribute("label", style[0]),
			graph.VertexAttribute("shape", "ellipse"),
			graph.VertexAttribute("style", "filled"),
			graph.VertexAttribute("fillcolor", style[1]),
		); err != nil {
			return nil, fmt.Errorf("failed to add library %s: %w", lib, err)
		}
	}

	for _, e := range r.Edges {
		err := g.AddEdge(e.From, e.To,
			graph.EdgeWeight(e.Count),
			graph.EdgeAttribute("label", strconv.Itoa(e.Count)),
		)
		if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("failed to add edge %s -> %s: %w", e.From, e.To, err)
		}
	}
	return g, nil
}

// FindCycles returns the groups of files that include each other, directly
// or transitively. Local includes are resolved against the scanned files,
// first relative to the including file, then by path suffix. Each group is
// sorted, and groups are ordered by their first file.
func FindCycles(code, headers map[string][]extract.IncludeDirective) ([][]string, error) {
	all := make(map[string][]extract.IncludeDirective, len(code)+len(headers))
	for f, d := range headers {
		all[f] = d
	}
	for f, d := range code {
		all[f] = d
	}

	files := make([]string, 0, len(all))
	for f := range all {
		files = append(files, f)
	}
	sort.Strings(files)

	g := graph.New(graph.StringHash, graph.Directed())
	for _, f := range files {
		if err := g.AddVertex(f); err != nil {
			return nil, fmt.Errorf("failed to add file %s: %w", f, err)
		}
	}

	for _, f := range files {
		for _, d := range all[f] {
			if d.Kind != extract.IncludeLocal {
				continue
			}
			target := resolveInclude(f, d.Header, all, files)
			if target == "" || target == f {
				continue
			}
			if err := g.AddEdge(f, target); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, fmt.Errorf("failed to add include %s -> %s: %w", f, target, err)
			}
		}
	}

	components, err := graph.StronglyConnectedComponents(g)
	if err != nil {
		return nil, fmt.Errorf("failed to find include cycles: %w", err)
	}

	cycles := [][]string{}
	for _, c := range components {
		if len(c) < 2 {
			continue
		}
		sort.Strings(c)
		cycles = append(cycles, c)
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0] < cycles[j][0]
	})
	return cycles, nil
}

func resolveInclude(from, header string, known map[string][]extract.IncludeDirective, files []string) string {
	candidate := path.Clean(path.Join(path.Dir(from), header))
	if _, ok := known[candidate]; ok {
		return candidate
	}
	for _, f := range files {
		if f == header || strings.HasSuffix(f, "/"+header) {
			return f
		}
	}
	return ""
}
