package app

import (
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/reposcope/internal/output"
)

var explainCmd = &cobra.Command{
	Use:   "explain <repository>",
	Short: "Show how a repository was classified",
	Long: `Display what the catalogue recorded about one repository: its category and
score, the rationale behind the classification, its tools and the analysis
history.

The repository may be given as its id, its URL or its name.`,
	Example: `  # Explain by name
  reposcope explain crawler

  # Explain by id
  reposcope explain 3 --json`,
	Args: exactArgs(1),
	RunE: runExplain,
}

func runExplain(cmd *cobra.Command, args []string) (err error) {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv(env, &err)

	e, err := env.catalogue().Explain(args[0])
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), e, func() string {
		return output.RenderExplanation(e)
	})
}
