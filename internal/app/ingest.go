package app

import (
	"github.com/spf13/cobra"

	clierrors "github.com/blackwell-systems/reposcope/internal/errors"
	"github.com/blackwell-systems/reposcope/internal/output"
	"github.com/blackwell-systems/reposcope/internal/pipeline"
)

var (
	ingestReplaceTools bool

	ingestCmd = &cobra.Command{
		Use:   "ingest <url> [name] [description]",
		Short: "Fetch, classify and extract tools from one repository",
		Long: `Clone a repository, flatten its content, classify it into a category and
extract the tools it provides. Results are stored in the catalogue.

Ingesting a URL that is already in the catalogue reuses its record: content
and category are refreshed and new tools are appended to the existing ones
unless --replace-tools is given.

The name defaults to the last path segment of the URL.`,
		Example: `  # Ingest with a derived name
  reposcope ingest https://github.com/owner/crawler

  # Ingest with name and description
  reposcope ingest https://github.com/owner/crawler crawler "Fast site crawler"

  # Re-ingest and replace previously extracted tools
  reposcope ingest https://github.com/owner/crawler --replace-tools`,
		Args: rangeArgs(1, 3),
		RunE: runIngest,
	}
)

func init() {
	ingestCmd.Flags().BoolVar(&ingestReplaceTools, "replace-tools", false, "delete the repository's existing tools before storing new ones")
}

func runIngest(cmd *cobra.Command, args []string) (err error) {
	req := pipeline.Request{URL: args[0]}
	if len(args) > 1 {
		req.Name = args[1]
	}
	if len(args) > 2 {
		req.Description = args[2]
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv(env, &err)

	p, err := env.pipeline(pipeline.Options{ReplaceTools: ingestReplaceTools})
	if err != nil {
		return err
	}

	res := p.Ingest(commandContext(cmd), req)

	if err := render(cmd.OutOrStdout(), res, func() string {
		return output.FormatResult(res) + "\n"
	}); err != nil {
		return err
	}

	if !res.Success {
		return clierrors.NewNetworkError("Repository ingestion failed",
			"Failed at step "+string(res.FailedStep)+": "+res.Error,
			"Check the URL is reachable, then retry", nil)
	}
	return nil
}
