package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	clierrors "github.com/blackwell-systems/reposcope/internal/errors"
	"github.com/blackwell-systems/reposcope/internal/output"
	"github.com/blackwell-systems/reposcope/internal/pipeline"
	"github.com/blackwell-systems/reposcope/internal/watcher"
)

var (
	watchDaemon        bool
	watchDaemonChild   bool
	watchStop          bool
	watchPIDFile       string
	watchLogFile       string
	watchDebounce      time.Duration
	watchSkipProcessed bool

	watchCmd = &cobra.Command{
		Use:   "watch <batch-file>",
		Short: "Ingest new entries whenever a batch file changes",
		Long: `Watch a batch file and ingest its entries each time it is saved.

The file is processed once at start-up. After that, every change reloads it
and ingests the entries that have not been ingested successfully in this
session, so failed entries are retried on the next save.

Watch modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as a background process logging to the data directory
  • Stop: Stop a running daemon`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  reposcope watch repositories.yaml

  # Run as background daemon
  reposcope watch repositories.yaml --daemon

  # Stop running daemon
  reposcope watch --stop`,
		Args: rangeArgs(0, 1),
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, strings.TrimPrefix(watcher.DaemonChildFlag, "--"), false, "internal flag for daemon child process")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: <data-dir>/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: <data-dir>/watch.log)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "how long the file must be quiet before it is reloaded")
	watchCmd.Flags().BoolVar(&watchSkipProcessed, "skip-processed", true, "skip repositories that already have a category")

	watchCmd.Flags().MarkHidden(strings.TrimPrefix(watcher.DaemonChildFlag, "--"))
}

func runWatch(cmd *cobra.Command, args []string) (err error) {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if watchPIDFile == "" {
		watchPIDFile = settings.PIDFile()
	}
	if watchLogFile == "" {
		watchLogFile = settings.LogFile()
	}
	if err := os.MkdirAll(settings.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if watchStop {
		return stopWatchDaemon(cmd)
	}

	if len(args) != 1 {
		return argsError(cmd, "a batch file")
	}
	if _, err := os.Stat(args[0]); err != nil {
		return err
	}

	if watchDaemon {
		return startWatchDaemon(cmd)
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv(env, &err)

	p, err := env.pipeline(pipeline.Options{SkipProcessed: watchSkipProcessed})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w, err := watcher.New(args[0], p, watcher.Options{
		Debounce: watchDebounce,
		Logger:   env.logger,
		OnBatch: func(results []pipeline.Result) {
			if !watchDaemonChild {
				fmt.Fprint(out, output.RenderBatchResults(results))
			}
		},
	})
	if err != nil {
		return err
	}

	if watchDaemonChild {
		// stdout and stderr are redirected to the log file
		return w.RunDaemon(commandContext(cmd), watchPIDFile)
	}

	fmt.Fprintf(out, "Watching %s (press Ctrl+C to stop)...\n\n", args[0])
	return w.RunDaemon(commandContext(cmd), "")
}

func stopWatchDaemon(cmd *cobra.Command) error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
		return nil
	}

	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Daemon stopped")
	return nil
}

func startWatchDaemon(cmd *cobra.Command) error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return clierrors.NewInputError("Watcher already running", "PID file: "+watchPIDFile,
			"Run: reposcope watch --stop")
	}

	if err := watcher.StartDaemon(watchPIDFile, watchLogFile, daemonArgs(os.Args[1:])); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Daemon started")
	fmt.Fprintf(out, "  PID file: %s\n", watchPIDFile)
	fmt.Fprintf(out, "  Log file: %s\n", watchLogFile)
	fmt.Fprintf(out, "\nTo stop: reposcope watch --stop\n")
	return nil
}

// daemonArgs returns the current arguments without the --daemon flag.
func daemonArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--daemon" || strings.HasPrefix(a, "--daemon=") {
			continue
		}
		out = append(out, a)
	}
	return out
}
