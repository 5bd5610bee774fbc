// Package analysis turns a scanned source tree, the project manifest, the
// partition table and build tool output into the library, static and
// dependency reports.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mvp-joe/fwscan/internal/buildtool"
	"github.com/mvp-joe/fwscan/internal/config"
	"github.com/mvp-joe/fwscan/internal/discovery"
	"github.com/mvp-joe/fwscan/internal/extract"
	"github.com/mvp-joe/fwscan/internal/funcs"
	"github.com/phuslu/log"
)

// BuildTool is the subset of the PlatformIO runner the analyses call.
// Implementations return empty data on failure.
type BuildTool interface {
	InstalledLibraries(ctx context.Context) []buildtool.InstalledLibrary
	MemoryUsage(ctx context.Context, env string) buildtool.MemoryUsage
	ProjectMetadata(ctx context.Context, env string) buildtool.Metadata
}

// Scan is the shared result of reading the source tree once.
type Scan struct {
	Model     *extract.Model
	Functions []funcs.Function
}

// Analyzer runs the analyses for one project root.
type Analyzer struct {
	root     string
	cfg      *config.Config
	tool     BuildTool
	progress extract.ProgressReporter
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithBuildTool sets the build tool. Without one, installed libraries,
// memory usage and project metadata are left empty.
func WithBuildTool(tool BuildTool) Option {
	return func(a *Analyzer) {
		a.tool = tool
	}
}

// WithProgress reports scan progress.
func WithProgress(progress extract.ProgressReporter) Option {
	return func(a *Analyzer) {
		a.progress = progress
	}
}

// New creates an analyzer for the project at root.
func New(root string, cfg *config.Config, opts ...Option) *Analyzer {
	a := &Analyzer{root: root, cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Root returns the project root.
func (a *Analyzer) Root() string {
	return a.root
}

// SourceDir returns the absolute source directory.
func (a *Analyzer) SourceDir() string {
	return config.Resolve(a.root, a.cfg.Paths.SourceDir)
}

// Scan discovers and reads the source files. A missing source directory is
// logged and yields an empty scan.
func (a *Analyzer) Scan(ctx context.Context) (*Scan, error) {
	srcDir := a.SourceDir()
	if _, err := os.Stat(srcDir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to access source directory: %w", err)
		}
		log.Warn().Str("dir", srcDir).Msg("source directory does not exist")
		return &Scan{Model: extract.NewModel(), Functions: []funcs.Function{}}, nil
	}

	fd, err := discovery.NewFileDiscovery(srcDir, a.cfg.Paths.Code, a.cfg.Paths.Headers, a.cfg.Paths.Ignore)
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}
	files, err := fd.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover source files: %w", err)
	}

	functions := []funcs.Function{}
	fx := funcs.NewExtractor()
	opts := []extract.Option{
		extract.WithQualityRules(extract.QualityRules{
			IndentWidth:   a.cfg.Quality.IndentWidth,
			MaxNesting:    a.cfg.Quality.MaxNesting,
			MaxLineLength: a.cfg.Quality.MaxLineLength,
			MagicDigits:   a.cfg.Quality.MagicDigits,
		}),
		extract.WithFileHook(func(f discovery.File, content []byte) {
			if f.Kind != discovery.KindCode {
				return
			}
			fns, err := fx.Extract(f.Rel, content)
			if err != nil {
				log.Warn().Err(err).Str("file", f.Rel).Msg("cannot parse functions, skipping")
				return
			}
			functions = append(functions, fns...)
		}),
	}
	if a.progress != nil {
		opts = append(opts, extract.WithProgress(a.progress))
	}

	model, err := extract.NewExtractor(opts...).Extract(ctx, files)
	if err != nil {
		return nil, err
	}
	return &Scan{Model: model, Functions: functions}, nil
}

// Result holds the reports of a full run. A report is nil when its analysis
// failed.
type Result struct {
	Libraries    *LibraryReport `json:"libraries,omitempty" yaml:"libraries,omitempty"`
	Static       *StaticReport  `json:"static,omitempty" yaml:"static,omitempty"`
	Dependencies *DepsReport    `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Analyze scans once and runs all three analyses. The library and static
// reports are returned even when the dependency analysis fails.
func (a *Analyzer) Analyze(ctx context.Context) (*Result, error) {
	scan, err := a.Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if result.Libraries, err = a.Libraries(ctx, scan); err != nil {
		return result, err
	}
	if result.Static, err = a.Static(ctx, scan); err != nil {
		return result, err
	}
	if result.Dependencies, err = a.Dependencies(ctx, scan); err != nil {
		return result, err
	}
	return result, nil
}
