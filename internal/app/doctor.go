package app

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/reposcope/internal/analyzer"
	clierrors "github.com/blackwell-systems/reposcope/internal/errors"
	"github.com/blackwell-systems/reposcope/internal/watcher"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose common issues and check system health",
	Long: `Runs diagnostic checks on your reposcope installation.

Checks:
  • Configuration is valid and the database is accessible
  • git is installed (required for ingestion)
  • The flatten command is installed (otherwise a basic summary is stored)
  • An analysis credential is configured (otherwise analysis is deterministic)
  • The search index and watcher daemon state

Critical issues exit non-zero. Warnings alone exit 0.`,
	Args: exactArgs(0),
	RunE: runDoctor,
}

// lookPath resolves executables on PATH; tests replace it.
var lookPath = exec.LookPath

type diagnosis struct {
	out      io.Writer
	critical int
	warnings int
}

func (d *diagnosis) pass(format string, a ...any) {
	fmt.Fprintf(d.out, "%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, a...))
}

func (d *diagnosis) warn(action, format string, a ...any) {
	d.warnings++
	fmt.Fprintf(d.out, "%s %s\n", color.YellowString("⚠"), fmt.Sprintf(format, a...))
	if action != "" {
		fmt.Fprintf(d.out, "  Action: %s\n", action)
	}
}

func (d *diagnosis) fail(action, format string, a ...any) {
	d.critical++
	fmt.Fprintf(d.out, "%s %s\n", color.RedString("✗"), fmt.Sprintf(format, a...))
	if action != "" {
		fmt.Fprintf(d.out, "  Action: %s\n", action)
	}
}

func runDoctor(cmd *cobra.Command, args []string) (err error) {
	d := &diagnosis{out: cmd.OutOrStdout()}
	fmt.Fprintln(d.out, "Running reposcope diagnostics...")
	fmt.Fprintln(d.out)

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv(env, &err)
	d.pass("Configuration valid")

	counts, err := env.store.GetCounts()
	if err != nil {
		d.fail("Remove or move "+env.settings.DBPath+" and re-run ingestion", "Cannot read database: %v", err)
	} else {
		d.pass("Database accessible: %s (%d repositories)", env.settings.DBPath, counts.Repositories)
	}

	if path, err := lookPath("git"); err != nil {
		d.fail("Install git; ingestion clones repositories with it", "git not found in PATH")
	} else {
		d.pass("git found: %s", path)
	}

	flatten := strings.Fields(env.settings.Extractor.FlattenCommand)
	if path, err := lookPath(flatten[0]); err != nil {
		d.warn("Install "+flatten[0]+" or set --flatten-command",
			"Flatten command %q not found; a basic summary will be stored instead", env.settings.Extractor.FlattenCommand)
	} else {
		d.pass("Flatten command found: %s", path)
	}

	if p, err := env.provider(); err != nil {
		d.fail("Check --llm-provider, --llm-base-url and --llm-model", "Analysis provider misconfigured: %v", err)
	} else if p == nil {
		d.warn("Set OPENAI_API_KEY, or use --llm-provider ollama --llm-model <model>",
			"No analysis credential; using %s analysis", analyzer.ModeDeterministic)
	} else {
		d.pass("Analysis provider: %s", p.Name())
	}

	if _, err := os.Stat(env.settings.IndexPath()); os.IsNotExist(err) {
		d.warn("", "Search index not built yet; it is created by the first 'reposcope search'")
	} else {
		d.pass("Search index found: %s", env.settings.IndexPath())
	}

	running, err := watcher.IsDaemonRunning(env.settings.PIDFile())
	switch {
	case err != nil:
		d.warn("", "Cannot check watcher daemon: %v", err)
	case running:
		d.pass("Watcher daemon running")
	default:
		d.pass("Watcher daemon not running")
	}

	fmt.Fprintln(d.out)
	if d.critical > 0 {
		fmt.Fprintf(d.out, "Found %d critical issue(s) and %d warning(s).\n", d.critical, d.warnings)
		return &clierrors.UserError{
			Message:  "Diagnostics failed",
			Cause:    fmt.Sprintf("%d critical issue(s)", d.critical),
			Fix:      "Follow the actions listed above",
			ExitCode: clierrors.ExitConfig,
		}
	}
	if d.warnings > 0 {
		fmt.Fprintf(d.out, "Found %d warning(s). reposcope is functional.\n", d.warnings)
		return nil
	}
	fmt.Fprintln(d.out, "✓ All checks passed!")
	return nil
}
