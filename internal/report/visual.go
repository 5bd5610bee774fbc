package report

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/mvp-joe/fwscan/internal/analysis"
	"github.com/mvp-joe/fwscan/internal/depgraph"
	"github.com/mvp-joe/fwscan/internal/extract"
)

// Graph names, used as output file base names.
const (
	DependencyGraphName = "dependency_graph"
	ModuleGraphName     = "module_graph"
	MemoryLayoutName    = "memory_layout"
	MagicNumbersName    = "magic_numbers_analysis"
)

// Visual is a named graph ready to be exported.
type Visual struct {
	Name    string
	Graph   graph.Graph[string, string]
	RankDir string
}

var libraryColors = map[string]string{
	"Arduino":     "lightblue",
	"WiFi":        "lightgreen",
	"TFT_eSPI":    "orange",
	"FastLED":     "red",
	"ArduinoJson": "yellow",
	"SPIFFS":      "lightgray",
	"SD":          "lightcyan",
	"Wire":        "lightpink",
	"FreeRTOS":    "lightyellow",
	"Local":       "pink",
}

// DependencyGraph links the project to every library its sources include.
func DependencyGraph(r *analysis.LibraryReport) (*Visual, error) {
	g := graph.New(graph.StringHash, graph.Directed())

	if err := g.AddVertex("Project",
		graph.VertexAttribute("label", "Project"),
		graph.VertexAttribute("shape", "ellipse"),
		graph.VertexAttribute("style", "filled"),
		graph.VertexAttribute("fillcolor", "lightcoral"),
	); err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(r.SourceIncludes))
	for label := range r.SourceIncludes {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		color, ok := libraryColors[label]
		if !ok {
			color = "white"
		}
		if err := g.AddVertex(label,
			graph.VertexAttribute("label", label),
			graph.VertexAttribute("shape", "box"),
			graph.VertexAttribute("style", "rounded,filled"),
			graph.VertexAttribute("fillcolor", color),
		); err != nil {
			return nil, fmt.Errorf("failed to add library %s: %w", label, err)
		}
		files := len(r.SourceIncludes[label])
		if err := g.AddEdge("Project", label,
			graph.EdgeWeight(files),
			graph.EdgeAttribute("label", fmt.Sprintf("%d files", files)),
		); err != nil {
			return nil, fmt.Errorf("failed to link library %s: %w", label, err)
		}
	}
	return &Visual{Name: DependencyGraphName, Graph: g, RankDir: "TB"}, nil
}

// ModuleGraph wraps the module graph of the dependency report.
func ModuleGraph(r *analysis.DepsReport) (*Visual, error) {
	g, err := depgraph.ModuleGraph(r.Graph)
	if err != nil {
		return nil, err
	}
	return &Visual{Name: ModuleGraphName, Graph: g, RankDir: "TB"}, nil
}

var partitionColors = map[string]string{
	"nvs":     "lightblue",
	"otadata": "lightgreen",
	"app0":    "orange",
	"spiffs":  "lightyellow",
}

// MemoryLayout draws the flash partitions, the largest RAM and unknown
// storage variables and a statistics node.
func MemoryLayout(r *analysis.StaticReport) (*Visual, error) {
	g := graph.New(graph.StringHash, graph.Directed())
	add := func(id, label, color, shape string) error {
		err := g.AddVertex(id,
			graph.VertexAttribute("label", label),
			graph.VertexAttribute("shape", shape),
			graph.VertexAttribute("style", "filled"),
			graph.VertexAttribute("fillcolor", color),
		)
		if errors.Is(err, graph.ErrVertexAlreadyExists) {
			return nil
		}
		return err
	}
	link := func(from, to string) error {
		err := g.AddEdge(from, to)
		if errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil
		}
		return err
	}

	if err := add("flash", "Flash Memory", "lightgray", "folder"); err != nil {
		return nil, err
	}
	for _, p := range r.Partitions {
		color, ok := partitionColors[p.Name]
		if !ok {
			color = "white"
		}
		id := "flash_" + p.Name
		label := fmt.Sprintf(`%s\n%s/%s\n%.2fMB`, p.Name, p.Type, p.Subtype, float64(p.SizeBytes())/(1024*1024))
		if err := add(id, label, color, "box"); err != nil {
			return nil, err
		}
		if err := link("flash", id); err != nil {
			return nil, err
		}
	}

	ramVars, ramSize := byStorage(r.Variables, extract.StorageRAM)
	if err := add("ram_vars", fmt.Sprintf(`RAM Variables\n%d vars\n%d bytes`, len(ramVars), ramSize), "lightpink", "box"); err != nil {
		return nil, err
	}
	for _, v := range top(ramVars, 5) {
		id := "var_" + v.Name
		if err := add(id, fmt.Sprintf(`%s\n%s\n%dB`, v.Name, v.Type, v.SizeEstimate), "pink", "box"); err != nil {
			return nil, err
		}
		if err := link("ram_vars", id); err != nil {
			return nil, err
		}
	}

	unknownVars, unknownSize := byStorage(r.Variables, extract.StorageUnknown)
	if err := add("unknown_vars", fmt.Sprintf(`Unknown Storage\n%d vars\n%d bytes`, len(unknownVars), unknownSize), "lightgray", "box"); err != nil {
		return nil, err
	}
	for _, v := range top(unknownVars, 3) {
		id := "unk_" + v.Name
		if err := add(id, fmt.Sprintf(`%s\n%s\n%dB`, v.Name, v.Type, v.SizeEstimate), "gray", "box"); err != nil {
			return nil, err
		}
		if err := link("unknown_vars", id); err != nil {
			return nil, err
		}
	}

	stats := strings.Join([]string{
		"Memory Statistics",
		"Total Variables: " + strconv.Itoa(len(r.Variables)),
		"Global: " + strconv.Itoa(r.ScopeStats[extract.ScopeGlobal]),
		"Static: " + strconv.Itoa(r.ScopeStats[extract.ScopeStatic]),
		fmt.Sprintf("RAM Usage: ~%dB", ramSize),
		fmt.Sprintf("Unknown: ~%dB", unknownSize),
	}, `\n`)
	if err := add("stats", stats, "lightyellow", "ellipse"); err != nil {
		return nil, err
	}
	return &Visual{Name: MemoryLayoutName, Graph: g, RankDir: "TB"}, nil
}

func byStorage(vars []extract.Variable, storage extract.Storage) ([]extract.Variable, int) {
	var out []extract.Variable
	total := 0
	for _, v := range vars {
		if v.Storage == storage {
			out = append(out, v)
			total += v.SizeEstimate
		}
	}
	return out, total
}

// top returns the n largest variables without reordering vars.
func top(vars []extract.Variable, n int) []extract.Variable {
	sorted := append([]extract.Variable{}, vars...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SizeEstimate > sorted[j].SizeEstimate
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Magic number priorities.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MED"
	PriorityLow    = "LOW"
)

// MagicCategory counts magic numbers under one top-level source directory.
type MagicCategory struct {
	Name     string
	Count    int
	Priority string
}

// MagicCategories groups magic number issues by the first path segment of
// their file ("root" for top-level files), most issues first.
func MagicCategories(issues []extract.QualityIssue) []MagicCategory {
	counts := make(map[string]int)
	for _, issue := range issues {
		if issue.Kind != extract.IssueMagicNumber {
			continue
		}
		category := "root"
		if i := strings.Index(issue.File, "/"); i >= 0 {
			category = issue.File[:i]
		}
		counts[category]++
	}

	out := make([]MagicCategory, 0, len(counts))
	for name, n := range counts {
		out = append(out, MagicCategory{Name: name, Count: n, Priority: magicPriority(name)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func magicPriority(category string) string {
	switch category {
	case "core", "system":
		return PriorityHigh
	case "app", "drivers":
		return PriorityMedium
	}
	return PriorityLow
}

var priorityColors = map[string]string{
	PriorityHigh:   "orange",
	PriorityMedium: "yellow",
	PriorityLow:    "lightgray",
}

// MagicNumbers draws the magic number counts per source directory.
func MagicNumbers(r *analysis.StaticReport) (*Visual, error) {
	g := graph.New(graph.StringHash, graph.Directed())

	categories := MagicCategories(r.QualityIssues)
	total := 0
	for _, c := range categories {
		total += c.Count
	}

	if err := g.AddVertex("magic_center",
		graph.VertexAttribute("label", fmt.Sprintf(`Magic Numbers\nTotal: %d`, total)),
		graph.VertexAttribute("shape", "box"),
		graph.VertexAttribute("style", "filled"),
		graph.VertexAttribute("fillcolor", "red"),
		graph.VertexAttribute("fontcolor", "white"),
	); err != nil {
		return nil, err
	}

	for _, c := range categories {
		id := "cat_" + c.Name
		if err := g.AddVertex(id,
			graph.VertexAttribute("label", fmt.Sprintf(`%s/\n%d magic numbers\nPriority: %s`, c.Name, c.Count, c.Priority)),
			graph.VertexAttribute("shape", "box"),
			graph.VertexAttribute("style", "filled"),
			graph.VertexAttribute("fillcolor", priorityColors[c.Priority]),
		); err != nil {
			return nil, err
		}
		if err := g.AddEdge("magic_center", id,
			graph.EdgeWeight(c.Count),
			graph.EdgeAttribute("label", strconv.Itoa(c.Count)),
		); err != nil {
			return nil, err
		}
	}
	return &Visual{Name: MagicNumbersName, Graph: g, RankDir: "LR"}, nil
}
