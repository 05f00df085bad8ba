package app

import (
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/reposcope/internal/output"
	"github.com/blackwell-systems/reposcope/internal/report"
	"github.com/blackwell-systems/reposcope/internal/store"
)

var (
	categoriesCmd = &cobra.Command{
		Use:   "categories",
		Short: "List registered categories",
		Long: `List the categories registered by 'reposcope analyze' with the number of
repositories currently in each.`,
		Example: `  reposcope categories`,
		Args:    exactArgs(0),
		RunE:    runCategories,
	}

	categoryCmd = &cobra.Command{
		Use:   "category <name>",
		Short: "Show the repositories, tools and comparisons of one category",
		Long: `Show one category: its repositories, every tool extracted from them and
the comparisons stored by previous 'reposcope analyze' runs. Use
"uncategorized" to see repositories that have not been classified.

An unknown category prints an empty report.`,
		Example: `  reposcope category web-scraping
  reposcope category uncategorized --json`,
		Args: exactArgs(1),
		RunE: runCategory,
	}
)

// categoryEntry is the --json rendering of one row of 'categories'.
type categoryEntry struct {
	*store.Category
	RepositoryCount int `json:"repository_count"`
}

func runCategories(cmd *cobra.Command, args []string) (err error) {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv(env, &err)

	categories, err := env.store.ListCategories()
	if err != nil {
		return err
	}
	repos, err := env.store.ListRepositories()
	if err != nil {
		return err
	}
	counts := make(map[string]int)
	for _, r := range repos {
		name := r.Category
		if name == "" {
			name = report.Uncategorized
		}
		counts[name]++
	}

	entries := make([]categoryEntry, len(categories))
	for i, c := range categories {
		entries[i] = categoryEntry{Category: c, RepositoryCount: counts[c.Name]}
	}

	return render(cmd.OutOrStdout(), entries, func() string {
		return output.RenderCategoryTable(categories, counts)
	})
}

func runCategory(cmd *cobra.Command, args []string) (err error) {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv(env, &err)

	rep, err := env.catalogue().Category(args[0])
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), rep, func() string {
		return output.RenderCategoryReport(rep)
	})
}
