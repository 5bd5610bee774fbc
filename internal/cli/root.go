package cli

import (
	"fmt"
	"os"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	verbose   bool
	rootFlag  string
	quietFlag bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fwscan",
	Short: "fwscan - static analysis for PlatformIO firmware projects",
	Long: `fwscan analyzes an ESP32 PlatformIO project: which declared libraries
the sources actually include, where variables are likely to live in memory,
code quality issues, function complexity and the module dependency graph.

Reports are written as JSON or YAML next to the project, with optional
graphviz renderings.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(verbose)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <root>/.fwscan/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "project root (default is the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "disable progress bars and summaries")
}

// setupLogging writes human readable logs to stderr.
func setupLogging(debug bool) {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	log.DefaultLogger = log.Logger{
		Level:      level,
		TimeFormat: "15:04:05",
		Writer: &log.ConsoleWriter{
			Writer:      os.Stderr,
			ColorOutput: log.IsTerminal(os.Stderr.Fd()),
		},
	}
}
