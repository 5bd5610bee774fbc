package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/mvp-joe/fwscan/internal/buildtool"
	"github.com/mvp-joe/fwscan/internal/config"
	"github.com/mvp-joe/fwscan/internal/extract"
	"github.com/mvp-joe/fwscan/internal/funcs"
	"github.com/mvp-joe/fwscan/internal/partition"
	"github.com/phuslu/log"
)

// Static advice thresholds.
const (
	HighRAMBytes = 50 * 1024
	ManyGlobals  = 10
)

// StorageStat totals the variables of one storage class.
type StorageStat struct {
	Count int `json:"count" yaml:"count"`
	Size  int `json:"size" yaml:"size"`
}

// StaticReport is the output of the static analysis.
type StaticReport struct {
	Variables       []extract.Variable              `json:"variables" yaml:"variables"`
	StorageStats    map[extract.Storage]StorageStat `json:"storage_stats" yaml:"storage_stats"`
	ScopeStats      map[extract.Scope]int           `json:"scope_stats" yaml:"scope_stats"`
	Partitions      []partition.Partition           `json:"partitions" yaml:"partitions"`
	PartitionsFound bool                            `json:"partitions_found" yaml:"partitions_found"`
	BuildInfo       buildtool.MemoryUsage           `json:"build_info" yaml:"build_info"`
	QualityIssues   []extract.QualityIssue          `json:"quality_issues" yaml:"quality_issues"`
	IssueStats      map[extract.IssueKind]int       `json:"issue_stats" yaml:"issue_stats"`
	Functions       []funcs.Function                `json:"functions" yaml:"functions"`
	Advice          []Advice                        `json:"recommendations" yaml:"recommendations"`
}

// RAMEstimate sums the estimated size of RAM variables.
func (r *StaticReport) RAMEstimate() int {
	return r.StorageStats[extract.StorageRAM].Size
}

// Globals returns the global variables, largest first.
func (r *StaticReport) Globals() []extract.Variable {
	return byScope(r.Variables, extract.ScopeGlobal)
}

// Statics returns the static variables, largest first.
func (r *StaticReport) Statics() []extract.Variable {
	return byScope(r.Variables, extract.ScopeStatic)
}

func byScope(vars []extract.Variable, scope extract.Scope) []extract.Variable {
	out := []extract.Variable{}
	for _, v := range vars {
		if v.Scope == scope {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SizeEstimate > out[j].SizeEstimate
	})
	return out
}

// Static classifies variables, loads the partition table, asks the build
// tool for memory usage and collects quality issues and function complexity.
func (a *Analyzer) Static(ctx context.Context, scan *Scan) (*StaticReport, error) {
	model := scan.Model

	report := &StaticReport{
		Variables:     model.Variables,
		StorageStats:  make(map[extract.Storage]StorageStat),
		ScopeStats:    make(map[extract.Scope]int),
		QualityIssues: model.Issues,
		IssueStats:    make(map[extract.IssueKind]int),
		Functions:     append([]funcs.Function{}, scan.Functions...),
	}

	for _, v := range model.Variables {
		s := report.StorageStats[v.Storage]
		s.Count++
		s.Size += v.SizeEstimate
		report.StorageStats[v.Storage] = s
		report.ScopeStats[v.Scope]++
	}
	for _, issue := range model.Issues {
		report.IssueStats[issue.Kind]++
	}
	funcs.SortByComplexity(report.Functions)

	var err error
	report.Partitions, report.PartitionsFound, err = partition.Load(config.Resolve(a.root, a.cfg.Partitions.Path))
	if err != nil {
		log.Warn().Err(err).Str("path", a.cfg.Partitions.Path).Msg("cannot read partition table, no partitions")
		report.Partitions = []partition.Partition{}
	} else if !report.PartitionsFound {
		log.Info().Str("path", a.cfg.Partitions.Path).Msg("no partition table found")
	}

	if a.tool != nil {
		report.BuildInfo = a.tool.MemoryUsage(ctx, a.cfg.Build.Environment)
	}

	report.Advice = staticAdvice(report, a.cfg.Quality.MaxComplexity)
	return report, nil
}

func staticAdvice(r *StaticReport, maxComplexity int) []Advice {
	advice := []Advice{}

	if ram := r.RAMEstimate(); ram > HighRAMBytes {
		advice = append(advice, Advice{
			Kind:       AdviceHighRAM,
			Message:    fmt.Sprintf("high estimated RAM usage (~%d bytes)", ram),
			Suggestion: "move large arrays to PSRAM or flash",
		})
	}

	globals := r.Globals()
	if len(globals) > ManyGlobals {
		advice = append(advice, Advice{
			Kind:       AdviceManyGlobals,
			Message:    fmt.Sprintf("many global variables (%d)", len(globals)),
			Suggestion: "wrap them in a class or namespace",
		})
	}

	var uninit []string
	for _, v := range r.Variables {
		if v.Scope == extract.ScopeGlobal && !v.Initialized {
			uninit = append(uninit, fmt.Sprintf("%s (%s:%d)", v.Name, v.File, v.Line))
		}
	}
	if len(uninit) > 0 {
		advice = append(advice, Advice{
			Kind:       AdviceUninitGlobals,
			Message:    fmt.Sprintf("%d uninitialized global variables", len(uninit)),
			Suggestion: "initialize all globals explicitly",
			Items:      uninit,
		})
	}

	var tooComplex []string
	for _, fn := range r.Functions {
		if fn.Complexity > maxComplexity {
			tooComplex = append(tooComplex, fmt.Sprintf("%s (%s:%d) complexity %d", fn.Name, fn.File, fn.StartLine, fn.Complexity))
		}
	}
	if len(tooComplex) > 0 {
		advice = append(advice, Advice{
			Kind:       AdviceComplexFuncs,
			Message:    fmt.Sprintf("%d functions exceed complexity %d", len(tooComplex), maxComplexity),
			Suggestion: "split them into smaller functions",
			Items:      tooComplex,
		})
	}
	return advice
}
