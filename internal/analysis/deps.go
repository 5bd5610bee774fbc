package analysis

import (
	"context"

	"github.com/mvp-joe/fwscan/internal/depgraph"
)

// DepsReport is the output of the dependency analysis.
type DepsReport struct {
	Graph *depgraph.Report `json:"graph" yaml:"graph"`
	// IncludePaths counts the include directories per category reported by
	// the build tool.
	IncludePaths map[string]int `json:"include_paths" yaml:"include_paths"`
}

// Dependencies builds the module graph of the scanned code files. It fails
// with depgraph.ErrNoSources when no code files were scanned.
func (a *Analyzer) Dependencies(ctx context.Context, scan *Scan) (*DepsReport, error) {
	graph, err := depgraph.Analyze(scan.Model.Directives, scan.Model.HeaderDirectives)
	if err != nil {
		return nil, err
	}

	report := &DepsReport{
		Graph:        graph,
		IncludePaths: map[string]int{},
	}
	if a.tool != nil {
		md := a.tool.ProjectMetadata(ctx, a.cfg.Build.Environment)
		for category, paths := range md.Includes {
			report.IncludePaths[category] = len(paths)
		}
	}
	return report, nil
}
