package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/reposcope/internal/analyzer"
	"github.com/blackwell-systems/reposcope/internal/output"
	"github.com/blackwell-systems/reposcope/internal/store"
	"github.com/blackwell-systems/reposcope/internal/watcher"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalogue counts, analyzer mode and watcher state",
	Long: `Display the number of rows in each catalogue table, whether analysis runs
remotely or deterministically, and whether a 'reposcope watch --daemon' process
is running.`,
	Example: `  reposcope status
  reposcope status --json`,
	Args: exactArgs(0),
	RunE: runStatus,
}

// statusOutput is the --json rendering of status.
type statusOutput struct {
	Database      string        `json:"database"`
	AnalyzerMode  string        `json:"analyzer_mode"`
	WatcherActive bool          `json:"watcher_active"`
	Counts        *store.Counts `json:"counts"`
}

func runStatus(cmd *cobra.Command, args []string) (err error) {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv(env, &err)

	counts, err := env.store.GetCounts()
	if err != nil {
		return err
	}

	mode := analyzer.ModeDeterministic
	if p, err := env.provider(); err == nil && p != nil {
		mode = analyzer.ModeRemote + " (" + p.Name() + ")"
	}

	running, err := watcher.IsDaemonRunning(env.settings.PIDFile())
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	st := statusOutput{
		Database:      env.settings.DBPath,
		AnalyzerMode:  mode,
		WatcherActive: running,
		Counts:        counts,
	}
	return render(cmd.OutOrStdout(), st, func() string {
		var sb strings.Builder
		sb.WriteString(output.RenderStatus(counts, mode, st.Database))
		if running {
			sb.WriteString("Watcher:          running\n")
		} else {
			sb.WriteString("Watcher:          stopped\n")
		}
		if counts.Repositories == 0 {
			sb.WriteString("\nCatalogue is empty. Run 'reposcope ingest <url>' to get started.\n")
		}
		return sb.String()
	})
}
