package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	clierrors "github.com/blackwell-systems/reposcope/internal/errors"
	"github.com/blackwell-systems/reposcope/internal/output"
	"github.com/blackwell-systems/reposcope/internal/search"
)

var (
	searchKind     string
	searchCategory string
	searchLimit    int

	searchCmd = &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over repositories and tools",
		Long: `Search repository names, descriptions and content together with extracted
tool names and descriptions. The search index lives in the data directory and
is brought up to date with the catalogue before every query.`,
		Example: `  reposcope search crawler
  reposcope search "html parser" --kind tool
  reposcope search postgres --category database --limit 5`,
		Args: minArgs(1),
		RunE: runSearch,
	}
)

func init() {
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "limit results to 'repository' or 'tool'")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "limit results to one category")
	searchCmd.Flags().IntVar(&searchLimit, "limit", search.DefaultLimit, "maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) (err error) {
	switch searchKind {
	case "", search.KindRepository, search.KindTool:
	default:
		return clierrors.NewInputError("Invalid --kind", fmt.Sprintf("Unknown kind %q", searchKind),
			"Use --kind repository or --kind tool")
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv(env, &err)

	idx, err := search.Open(env.settings.IndexPath(), env.store)
	if err != nil {
		return err
	}
	defer idx.Close()

	if _, err := idx.Sync(); err != nil {
		return err
	}

	res, err := idx.Search(search.Query{
		Text:     strings.Join(args, " "),
		Kind:     searchKind,
		Category: searchCategory,
		Limit:    searchLimit,
	})
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), res, func() string {
		return output.RenderSearchResults(res)
	})
}
