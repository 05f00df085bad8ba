package app

import (
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/reposcope/internal/output"
)

var (
	analyzeNeeds string

	analyzeCmd = &cobra.Command{
		Use:   "analyze",
		Short: "Compare repositories by category and recommend tools",
		Long: `Group every repository by category, register the categories, compare
each category that has two or more repositories and ask for recommendations.

Each comparison is stored, so 'reposcope category <name>' shows the history.
Recommendations are printed but not stored. --needs describes what you are
looking for and focuses the recommendations.`,
		Example: `  # Full analysis
  reposcope analyze

  # Focus recommendations
  reposcope analyze --needs "scrape JavaScript-heavy sites"

  # Machine-readable report
  reposcope analyze --json`,
		Args: exactArgs(0),
		RunE: runAnalyze,
	}
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeNeeds, "needs", "", "what you need, used to focus recommendations")
}

func runAnalyze(cmd *cobra.Command, args []string) (err error) {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv(env, &err)

	r, err := env.reporter()
	if err != nil {
		return err
	}

	spinner := output.NewSpinner(cmd.ErrOrStderr(), "Analyzing repositories")
	if !jsonOutput {
		spinner.Start()
	}
	rep, err := r.Analyze(commandContext(cmd), analyzeNeeds)
	spinner.Stop()
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), rep, func() string {
		return output.RenderReport(rep)
	})
}
