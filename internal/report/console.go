package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mvp-joe/fwscan/internal/analysis"
	"github.com/mvp-joe/fwscan/internal/extract"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Printer writes styled summaries for a terminal.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Title prints a section heading.
func (p *Printer) Title(msg string) {
	fmt.Fprintln(p.w, titleStyle.Render(msg))
}

// Success prints a completed step.
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.w, successStyle.Render("✓ "+msg))
}

// Warn prints something the user should look at.
func (p *Printer) Warn(msg string) {
	fmt.Fprintln(p.w, warnStyle.Render("! "+msg))
}

// Step prints an indented detail line.
func (p *Printer) Step(msg string) {
	fmt.Fprintln(p.w, stepStyle.Render("   "+msg))
}

// Libraries summarizes the library report.
func (p *Printer) Libraries(r *analysis.LibraryReport) {
	p.Title("Libraries")
	p.Step(fmt.Sprintf("declared: %d, installed: %d, used: %d",
		len(r.PlatformIOLibs.Declared), len(r.PlatformIOLibs.Installed), len(r.SourceIncludes)))
	p.Step(fmt.Sprintf("include occurrences: %d", r.TotalIncludes))
	labels := make([]string, 0, len(r.SourceIncludes))
	for label := range r.SourceIncludes {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		p.Step(fmt.Sprintf("%s: %d files", label, len(r.SourceIncludes[label])))
	}
	if len(r.UnusedLibs) > 0 {
		p.Warn("unused declared libraries: " + strings.Join(r.UnusedLibs, ", "))
	}
	if r.LibDirFound {
		for _, lib := range r.LocalLibraries {
			p.Step(fmt.Sprintf("local library %s (%s)", lib.Name, lib.Layout))
		}
	}
	p.Advice(r.Advice)
}

// Static summarizes the static analysis report.
func (p *Printer) Static(r *analysis.StaticReport) {
	p.Title("Static analysis")
	p.Step(fmt.Sprintf("variables: %d (global %d, static %d)",
		len(r.Variables), r.ScopeStats[extract.ScopeGlobal], r.ScopeStats[extract.ScopeStatic]))
	p.Step(fmt.Sprintf("estimated RAM: %d bytes", r.RAMEstimate()))
	if ram := r.BuildInfo.RAM; ram != nil {
		p.Step(fmt.Sprintf("build RAM: %d / %d bytes (%.1f%%)", ram.Used, ram.Total, ram.Percentage))
	}
	if flash := r.BuildInfo.Flash; flash != nil {
		p.Step(fmt.Sprintf("build Flash: %d / %d bytes (%.1f%%)", flash.Used, flash.Total, flash.Percentage))
	}
	if r.PartitionsFound {
		for _, part := range r.Partitions {
			p.Step(fmt.Sprintf("partition %s %s/%s %s", part.Name, part.Type, part.Subtype, part.Size))
		}
	}
	p.Step(fmt.Sprintf("quality issues: %d (nesting %d, long lines %d, magic numbers %d)",
		len(r.QualityIssues),
		r.IssueStats[extract.IssueDeepNesting],
		r.IssueStats[extract.IssueLongLine],
		r.IssueStats[extract.IssueMagicNumber]))
	p.Step(fmt.Sprintf("functions: %d", len(r.Functions)))
	p.Advice(r.Advice)
}

// Dependencies summarizes the dependency report.
func (p *Printer) Dependencies(r *analysis.DepsReport) {
	p.Title("Dependencies")
	for _, c := range r.Graph.LibraryStats {
		p.Step(fmt.Sprintf("%s: %d references", c.Name, c.Count))
	}
	for _, c := range r.Graph.ModuleStats {
		p.Step(fmt.Sprintf("%s: %d dependencies", c.Name, c.Count))
	}
	for _, cycle := range r.Graph.Cycles {
		p.Warn("include cycle: " + strings.Join(cycle, " -> "))
	}
}

// Advice prints optimisation hints.
func (p *Printer) Advice(advice []analysis.Advice) {
	for _, a := range advice {
		p.Warn(a.Message)
		p.Step(a.Suggestion)
	}
}
