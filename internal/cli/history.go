package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/filesift/filesift/internal/config"
	"github.com/filesift/filesift/internal/journal"
)

var (
	historyLimit int
	historyPrune time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show operations recorded in the journal",
	Long: `List recently detected operations from the journal, newest first.
Requires journal persistence to be enabled in the config or via
FILESIFT_JOURNAL_PATH.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum operations to show")
	historyCmd.Flags().DurationVar(&historyPrune, "prune", 0, "Remove entries older than this before listing")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled {
		return fmt.Errorf("journal is not enabled; set journal.path in the config or FILESIFT_JOURNAL_PATH")
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	j, err := journal.Open(cfg.Journal.Path, quiet)
	if err != nil {
		return err
	}
	defer j.Close()

	if historyPrune > 0 {
		removed, err := j.Prune(time.Now().Add(-historyPrune))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d entries\n", removed)
	}

	ops, err := j.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no operations recorded")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, op := range ops {
		fmt.Fprintf(out, "%s  %-12s %.2f  %s\n",
			op.EndTime.Format("2006-01-02 15:04:05"),
			op.Type,
			op.Confidence,
			op.Description())
	}
	return nil
}
