package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	clierrors "github.com/blackwell-systems/reposcope/internal/errors"
)

// Version is set at build time.
var Version = "dev"

var (
	dbPath         string
	dataDir        string
	configFile     string
	logLevel       string
	jsonOutput     bool
	metricsFile    string
	llmProvider    string
	llmModel       string
	llmBaseURL     string
	llmTimeout     time.Duration
	flattenCommand string
	outputDir      string

	// RootCmd is the root command for reposcope
	RootCmd = &cobra.Command{
		Use:   "reposcope",
		Short: "Catalogue, classify and compare source repositories",
		Long: `reposcope ingests source repositories, classifies each into a functional
category, extracts the tools it provides and compares repositories that share
a category.

Analysis uses an OpenAI-compatible or Ollama model when a credential is
configured (OPENAI_API_KEY or --llm-provider ollama --llm-model <model>).
Without one, every step falls back to deterministic keyword analysis.

Quick Start:
  1. reposcope ingest https://github.com/owner/repo
  2. reposcope batch repositories.json
  3. reposcope analyze --needs "web scraping"
  4. reposcope list

Configuration is read from flags, REPOSCOPE_* environment variables and
$XDG_CONFIG_HOME/reposcope/config.yaml, in that order of precedence.`,
		Example: `  # Ingest one repository
  reposcope ingest https://github.com/owner/repo

  # Ingest a list and skip repositories already classified
  reposcope batch repositories.json --skip-processed

  # Compare repositories and get recommendations
  reposcope analyze --needs "a crawler with proxy support"

  # Show one category
  reposcope category web-scraping`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringVar(&dbPath, "db", "", "database path (default: <data-dir>/reposcope.db)")
	flags.StringVar(&dataDir, "data-dir", "", "directory for the database, search index and outputs (default: ~/.reposcope)")
	flags.StringVar(&configFile, "config", "", "config file (default: $XDG_CONFIG_HOME/reposcope/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default: info)")
	flags.BoolVar(&jsonOutput, "json", false, "print results as JSON")
	flags.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	flags.StringVar(&llmProvider, "llm-provider", "", "analysis provider: openai, openai-compatible, ollama, none (default: openai)")
	flags.StringVar(&llmModel, "llm-model", "", "model name (required for ollama)")
	flags.StringVar(&llmBaseURL, "llm-base-url", "", "provider API base URL")
	flags.DurationVar(&llmTimeout, "llm-timeout", 0, "timeout per analysis request (default: none)")
	flags.StringVar(&flattenCommand, "flatten-command", "", `repository flattening command (default: "npx repomix")`)
	flags.StringVar(&outputDir, "output-dir", "", "directory for flattened repository output (default: <data-dir>/outputs)")

	RootCmd.SuggestionsMinimumDistance = 2
	RootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return clierrors.NewInputError(err.Error(), "", fmt.Sprintf("Run: %s --help", cmd.CommandPath()))
	})

	RootCmd.AddCommand(ingestCmd)
	RootCmd.AddCommand(batchCmd)
	RootCmd.AddCommand(analyzeCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(categoriesCmd)
	RootCmd.AddCommand(toolsCmd)
	RootCmd.AddCommand(categoryCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(searchCmd)
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(explainCmd)
	RootCmd.AddCommand(doctorCmd)
}

// Execute runs the root command and returns the process exit code.
// SIGINT or SIGTERM cancels the context so batch work stops between
// repositories.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := RootCmd.ExecuteContext(ctx)
	return clierrors.Render(os.Stderr, toUserError(err), jsonOutput, false)
}

// argsError reports a wrong argument count as an input error.
func argsError(cmd *cobra.Command, want string) error {
	return clierrors.NewInputError("Wrong number of arguments", "Expected "+want,
		fmt.Sprintf("Usage: %s", cmd.UseLine()))
}

// exactArgs is cobra.ExactArgs with an input error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return argsError(cmd, fmt.Sprintf("%d argument(s), got %d", n, len(args)))
		}
		return nil
	}
}

// rangeArgs is cobra.RangeArgs with an input error.
func rangeArgs(min, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < min || len(args) > max {
			return argsError(cmd, fmt.Sprintf("%d to %d arguments, got %d", min, max, len(args)))
		}
		return nil
	}
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// minArgs is cobra.MinimumNArgs with an input error.
func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return argsError(cmd, fmt.Sprintf("at least %d argument(s), got %d", n, len(args)))
		}
		return nil
	}
}
