package app

import (
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/reposcope/internal/output"
	"github.com/blackwell-systems/reposcope/internal/store"
)

var (
	listCategory string

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List ingested repositories",
		Long: `List every repository in the catalogue in ingestion order. Repositories
that have not been classified yet are shown as "uncategorized".`,
		Example: `  reposcope list
  reposcope list --category database
  reposcope list --json`,
		Args: exactArgs(0),
		RunE: runList,
	}
)

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "only show repositories in this category")
}

func runList(cmd *cobra.Command, args []string) (err error) {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv(env, &err)

	var repos []*store.Repository
	if listCategory != "" {
		repos, err = env.store.ListRepositoriesByCategory(listCategory)
	} else {
		repos, err = env.store.ListRepositories()
	}
	if err != nil {
		return err
	}
	if repos == nil {
		repos = []*store.Repository{}
	}

	return render(cmd.OutOrStdout(), repos, func() string {
		return output.RenderRepositoryTable(repos)
	})
}
