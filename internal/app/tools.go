package app

import (
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/reposcope/internal/output"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List extracted tools grouped by repository",
	Long: `List every tool extracted from the catalogue, grouped under the repository
it came from.`,
	Example: `  reposcope tools
  reposcope tools --json`,
	Args: exactArgs(0),
	RunE: runTools,
}

func runTools(cmd *cobra.Command, args []string) (err error) {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv(env, &err)

	list, err := env.catalogue().Tools()
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), list, func() string {
		return output.RenderToolsList(list)
	})
}
