package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mvp-joe/fwscan/internal/config"
	"github.com/mvp-joe/fwscan/internal/history"
	"github.com/mvp-joe/fwscan/internal/report"
	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyFormat string
	pruneKeep     int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded analysis runs",
	Long: `history lists past runs recorded in the history database
(.fwscan/history.db by default), newest first.

Examples:
  fwscan history
  fwscan history --limit 5
  fwscan history show <run-id>
  fwscan history prune --keep 20
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, store *history.Store) error {
			runs, err := store.List(ctx, historyLimit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs, time.Now())
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the summary of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, store *history.Store) error {
			run, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			data, err := report.Encode(run, historyFormat)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		})
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if pruneKeep < 0 {
			return fmt.Errorf("--keep must not be negative")
		}
		return withHistory(func(ctx context.Context, store *history.Store) error {
			n, err := store.Prune(ctx, pruneKeep)
			if err != nil {
				return err
			}
			report.NewPrinter(cmd.OutOrStdout()).Success(fmt.Sprintf("deleted %d runs", n))
			return nil
		})
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to list (0 lists all)")
	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", report.FormatJSON, "output format: json or yaml")
	historyPruneCmd.Flags().IntVar(&pruneKeep, "keep", 20, "number of newest runs to keep")

	historyCmd.AddCommand(historyShowCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

// withHistory opens the project's history database for fn.
func withHistory(fn func(ctx context.Context, store *history.Store) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	root, cfg, err := loadConfig(rootFlag, cfgFile)
	if err != nil {
		return err
	}
	store, err := history.Open(config.Resolve(root, cfg.History.Path))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func printRuns(w io.Writer, runs []history.Run, now time.Time) {
	p := report.NewPrinter(w)
	if len(runs) == 0 {
		p.Step("no runs recorded")
		return
	}
	p.Title(fmt.Sprintf("%d runs", len(runs)))
	for _, r := range runs {
		s := r.Summary
		p.Step(fmt.Sprintf("%s  %-8s %-10s libs %d (unused %d)  vars %d  RAM ~%s  issues %s  cycles %d",
			r.ID[:8], r.Command, formatTimeSince(r.CreatedAt, now),
			s.Libraries, s.UnusedLibs, s.Variables, formatBytes(int64(s.RAMEstimate)),
			formatNumber(s.Issues), s.Cycles))
	}
}
