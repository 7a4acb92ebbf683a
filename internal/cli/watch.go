package cli

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/filesift/filesift/internal/di"
	"github.com/filesift/filesift/internal/monitor"
)

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Watch paths and report detected operations",
	Long: `Watch one or more paths and log each detected operation.

Paths given as arguments take precedence over the watch paths in the
config file. With no paths at all, the current directory is watched.

Press Ctrl-C to stop; pending event groups are flushed before exit.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	injector := di.NewContainer(configFile, args)

	m, err := do.Invoke[*monitor.Monitor](injector)
	if err != nil {
		return err
	}
	log := do.MustInvoke[*slog.Logger](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = m.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("monitor stopped", "error", err)
	}

	log.Info("shutting down")
	if err := injector.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
	}
	return nil
}
