package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/fwscan/internal/analysis"
	"github.com/mvp-joe/fwscan/internal/buildtool"
	"github.com/mvp-joe/fwscan/internal/config"
	"github.com/mvp-joe/fwscan/internal/history"
	"github.com/mvp-joe/fwscan/internal/report"
	"github.com/phuslu/log"
	"github.com/spf13/cobra"
)

// Analysis steps, in the order a full run executes them.
const (
	stepLibs   = "libs"
	stepStatic = "static"
	stepDeps   = "deps"
)

var allSteps = []string{stepLibs, stepStatic, stepDeps}

// outputFlags are shared by the analysis commands.
type outputFlags struct {
	format   string
	dir      string
	noRender bool
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "report format: json or yaml (default from config)")
	cmd.Flags().StringVarP(&f.dir, "output", "o", "", "output directory (default from config)")
	cmd.Flags().BoolVar(&f.noRender, "no-render", false, "write DOT files without rendering PNG images")
}

// apply overrides the loaded configuration with explicitly set flags.
func (f *outputFlags) apply(cfg *config.Config) error {
	if f.format != "" {
		cfg.Output.Format = f.format
	}
	if f.dir != "" {
		cfg.Output.Dir = f.dir
	}
	if f.noRender {
		cfg.Output.Render = false
	}
	return config.Validate(cfg)
}

// environment is everything a command needs to analyze one project.
type environment struct {
	root     string
	cfg      *config.Config
	analyzer *analysis.Analyzer
	renderer *report.Renderer
	printer  *report.Printer
	out      io.Writer
	quiet    bool
}

// loadConfig resolves the project root and loads its configuration.
func loadConfig(root, configFile string) (string, *config.Config, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	cfg, err := config.NewLoader(root, opts...).Load()
	if err != nil {
		return "", nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return root, cfg, nil
}

// newEnvironment wires the analyzer, build tool and renderer for cfg.
func newEnvironment(root string, cfg *config.Config, out io.Writer, quiet bool) *environment {
	var opts []analysis.Option
	if cfg.Build.Enabled {
		opts = append(opts, analysis.WithBuildTool(
			buildtool.NewRunner(cfg.Build.Tool, root, buildtool.WithTimeout(cfg.Build.Timeout)),
		))
	}
	if !quiet {
		opts = append(opts, analysis.WithProgress(newScanProgress(out)))
	}

	env := &environment{
		root:     root,
		cfg:      cfg,
		analyzer: analysis.New(root, cfg, opts...),
		printer:  report.NewPrinter(out),
		out:      out,
		quiet:    quiet,
	}
	if cfg.Output.Render {
		env.renderer = report.NewRenderer(cfg.Output.Renderer, nil)
	}
	return env
}

// commandEnvironment builds the environment from the global and output flags.
func commandEnvironment(cmd *cobra.Command, flags *outputFlags) (*environment, error) {
	root, cfg, err := loadConfig(rootFlag, cfgFile)
	if err != nil {
		return nil, err
	}
	if err := flags.apply(cfg); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return newEnvironment(root, cfg, cmd.OutOrStdout(), quietFlag), nil
}

func (e *environment) outputDir() string {
	return config.Resolve(e.root, e.cfg.Output.Dir)
}

// execute scans once, then runs each step and writes its output as soon
// as it is produced, so a later failure keeps earlier reports on disk.
func (e *environment) execute(ctx context.Context, command string, steps ...string) (*analysis.Result, error) {
	scan, err := e.analyzer.Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := &analysis.Result{}
	var visuals []*report.Visual
	var runErr error

	for _, step := range steps {
		if runErr = e.runStep(ctx, step, scan, result, &visuals); runErr != nil {
			break
		}
	}

	if len(visuals) > 0 {
		paths, err := report.Export(ctx, e.outputDir(), visuals, e.renderer)
		if err != nil && runErr == nil {
			runErr = err
		}
		for _, p := range paths {
			log.Debug().Str("path", p).Msg("graph written")
		}
	}

	e.record(ctx, command, result)
	return result, runErr
}

func (e *environment) runStep(ctx context.Context, step string, scan *analysis.Scan, result *analysis.Result, visuals *[]*report.Visual) error {
	dir := e.outputDir()
	format := strings.ToLower(e.cfg.Output.Format)

	switch step {
	case stepLibs:
		libs, err := e.analyzer.Libraries(ctx, scan)
		if err != nil {
			return fmt.Errorf("library analysis failed: %w", err)
		}
		result.Libraries = libs
		path, err := report.WriteData(dir, report.LibraryReportName, format, libs)
		if err != nil {
			return err
		}
		v, err := report.DependencyGraph(libs)
		if err != nil {
			return fmt.Errorf("failed to build dependency graph: %w", err)
		}
		*visuals = append(*visuals, v)
		e.summarize(func() { e.printer.Libraries(libs) }, path)

	case stepStatic:
		st, err := e.analyzer.Static(ctx, scan)
		if err != nil {
			return fmt.Errorf("static analysis failed: %w", err)
		}
		result.Static = st
		path, err := report.WriteData(dir, report.StaticReportName, format, st)
		if err != nil {
			return err
		}
		layout, err := report.MemoryLayout(st)
		if err != nil {
			return fmt.Errorf("failed to build memory layout: %w", err)
		}
		magic, err := report.MagicNumbers(st)
		if err != nil {
			return fmt.Errorf("failed to build magic number graph: %w", err)
		}
		*visuals = append(*visuals, layout, magic)
		e.summarize(func() { e.printer.Static(st) }, path)

	case stepDeps:
		deps, err := e.analyzer.Dependencies(ctx, scan)
		if err != nil {
			return fmt.Errorf("dependency analysis failed: %w", err)
		}
		result.Dependencies = deps
		path, err := report.SaveDependencyText(dir, deps)
		if err != nil {
			return err
		}
		v, err := report.ModuleGraph(deps)
		if err != nil {
			return fmt.Errorf("failed to build module graph: %w", err)
		}
		*visuals = append(*visuals, v)
		e.summarize(func() { e.printer.Dependencies(deps) }, path)

	default:
		return fmt.Errorf("unknown analysis step %q", step)
	}
	return nil
}

func (e *environment) summarize(print func(), path string) {
	if e.quiet {
		return
	}
	print()
	e.printer.Success("report saved to " + path)
	fmt.Fprintln(e.out)
}

// record stores the run in the history database. Failures are logged only.
func (e *environment) record(ctx context.Context, command string, result *analysis.Result) {
	if !e.cfg.History.Enabled {
		return
	}
	store, err := history.Open(config.Resolve(e.root, e.cfg.History.Path))
	if err != nil {
		log.Warn().Err(err).Msg("could not open run history")
		return
	}
	defer store.Close()

	run, err := store.Record(ctx, command, e.root, history.Summarize(result))
	if err != nil {
		log.Warn().Err(err).Msg("could not record run")
		return
	}
	log.Debug().Str("id", run.ID).Str("command", command).Msg("run recorded")
}
