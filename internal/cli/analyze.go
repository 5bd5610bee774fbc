package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mvp-joe/fwscan/internal/config"
	"github.com/mvp-joe/fwscan/internal/watcher"
	"github.com/phuslu/log"
	"github.com/spf13/cobra"
)

var (
	libsFlags    outputFlags
	staticFlags  outputFlags
	depsFlags    outputFlags
	analyzeFlags outputFlags
	watchFlag    bool
)

var libsCmd = &cobra.Command{
	Use:   "libs",
	Short: "Reconcile declared libraries against the sources",
	Long: `libs compares the lib_deps declared in platformio.ini with the libraries
the sources include, lists installed and local libraries and counts calls
into well-known library APIs.

Writes library_dependency_report.<format> and dependency_graph.dot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSteps(cmd, &libsFlags, stepLibs)
	},
}

var staticCmd = &cobra.Command{
	Use:   "static",
	Short: "Estimate variable memory usage and find quality issues",
	Long: `static classifies top-level variable declarations by scope and likely
storage, loads the flash partition table, asks PlatformIO for the firmware
memory usage and reports quality issues and function complexity.

Writes static_analysis_report.<format>, memory_layout.dot and
magic_numbers_analysis.dot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSteps(cmd, &staticFlags, stepStatic)
	},
}

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Build the module dependency graph",
	Long: `deps reads the include directives of every source file, groups files
into modules and reports library references, module dependencies and
include cycles.

Writes dependency_report.txt and module_graph.dot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSteps(cmd, &depsFlags, stepDeps)
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the library, static and dependency analyses",
	Long: `analyze scans the sources once and runs libs, static and deps.

Examples:
  # Analyze the current project
  fwscan analyze

  # Write YAML reports to a separate directory
  fwscan analyze --format yaml --output reports

  # Re-run whenever a source, the manifest or the partition table changes
  fwscan analyze --watch
`,
	RunE: runAnalyze,
}

func init() {
	for _, c := range []struct {
		cmd   *cobra.Command
		flags *outputFlags
	}{
		{libsCmd, &libsFlags},
		{staticCmd, &staticFlags},
		{depsCmd, &depsFlags},
		{analyzeCmd, &analyzeFlags},
	} {
		c.flags.register(c.cmd)
		rootCmd.AddCommand(c.cmd)
	}
	analyzeCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "watch for changes and re-run")
}

// watchLockPath keeps one watch process per project.
const watchLockPath = ".fwscan/watch.lock"

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSteps(cmd *cobra.Command, flags *outputFlags, steps ...string) error {
	ctx, cancel := signalContext()
	defer cancel()

	env, err := commandEnvironment(cmd, flags)
	if err != nil {
		return err
	}
	_, err = env.execute(ctx, cmd.Name(), steps...)
	return wrapCancelled(ctx, err)
}

// wrapCancelled turns a failure caused by ctx ending into a cancellation
// error that wraps ctx.Err().
func wrapCancelled(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("analysis cancelled: %w", ctx.Err())
	}
	return err
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if !watchFlag {
		return runSteps(cmd, &analyzeFlags, allSteps...)
	}

	ctx, cancel := signalContext()
	defer cancel()

	env, err := commandEnvironment(cmd, &analyzeFlags)
	if err != nil {
		return err
	}
	return env.watch(ctx, cmd.Name())
}

// watch runs a full analysis, then again after every batch of changes
// until ctx is cancelled.
func (e *environment) watch(ctx context.Context, command string) error {
	lock, err := watcher.AcquireLock(config.Resolve(e.root, watchLockPath))
	if err != nil {
		return err
	}
	defer lock.Release()

	if _, err := e.execute(ctx, command, allSteps...); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		log.Warn().Err(err).Msg("analysis failed, waiting for changes")
	}

	w, err := watcher.New(watchConfig(e.root, e.cfg))
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	w.Start(ctx, func(files []string) {
		log.Info().Int("files", len(files)).Msg("changes detected, re-running analysis")
		if _, err := e.execute(ctx, command, allSteps...); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("analysis failed, waiting for changes")
		}
	})
	log.Info().Str("root", e.root).Msg("watching for changes, press Ctrl+C to stop")

	<-ctx.Done()
	log.Info().Msg("watch mode stopped")
	return nil
}

// watchConfig watches the source and lib dirs for files matching the
// configured patterns, plus the manifest and the partition table.
func watchConfig(root string, cfg *config.Config) watcher.Config {
	wc := watcher.Config{
		Files: []string{
			config.Resolve(root, cfg.Manifest.Path),
			config.Resolve(root, cfg.Partitions.Path),
		},
	}
	for _, dir := range []string{cfg.Paths.SourceDir, cfg.Paths.LibDir} {
		abs := config.Resolve(root, dir)
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			wc.Dirs = append(wc.Dirs, abs)
		} else if !errors.Is(err, os.ErrNotExist) && err != nil {
			log.Warn().Err(err).Str("dir", abs).Msg("cannot watch directory")
		}
	}

	seen := make(map[string]bool)
	for _, pattern := range append(append([]string{}, cfg.Paths.Code...), cfg.Paths.Headers...) {
		if ext := filepath.Ext(pattern); ext != "" && !seen[ext] {
			seen[ext] = true
			wc.Extensions = append(wc.Extensions, ext)
		}
	}
	return wc
}
