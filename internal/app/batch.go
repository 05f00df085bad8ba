package app

import (
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/reposcope/internal/output"
	"github.com/blackwell-systems/reposcope/internal/pipeline"
)

var (
	batchSkipProcessed bool
	batchReplaceTools  bool
	batchQuiet         bool

	batchCmd = &cobra.Command{
		Use:   "batch <file>",
		Short: "Ingest every repository listed in a JSON or YAML file",
		Long: `Ingest repositories one at a time from a batch file. The file is a JSON
array (or YAML list) of entries with url, name and description; only url is
required.

A repository that fails does not stop the batch. The summary reports how many
succeeded, were skipped and failed.`,
		Example: `  # repositories.json:
  #   [{"url": "https://github.com/owner/crawler", "name": "crawler"}]
  reposcope batch repositories.json

  # Skip repositories that already have a category
  reposcope batch repositories.yaml --skip-processed`,
		Args: exactArgs(1),
		RunE: runBatch,
	}
)

func init() {
	batchCmd.Flags().BoolVar(&batchSkipProcessed, "skip-processed", false, "skip repositories that already have a category")
	batchCmd.Flags().BoolVar(&batchReplaceTools, "replace-tools", false, "delete each repository's existing tools before storing new ones")
	batchCmd.Flags().BoolVar(&batchQuiet, "quiet", false, "suppress the progress bar")
}

// batchOutput is the --json rendering of a batch run.
type batchOutput struct {
	Results []pipeline.Result `json:"results"`
	Summary pipeline.Summary  `json:"summary"`
}

func runBatch(cmd *cobra.Command, args []string) (err error) {
	reqs, err := pipeline.LoadBatch(args[0])
	if err != nil {
		return err
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv(env, &err)

	opts := pipeline.Options{
		SkipProcessed: batchSkipProcessed,
		ReplaceTools:  batchReplaceTools,
	}
	if !batchQuiet && !jsonOutput {
		progress := output.NewProgress(cmd.ErrOrStderr(), len(reqs))
		defer progress.Finish()
		opts.Progress = func(done, total int, r pipeline.Result) {
			progress.Step(r.Name)
		}
	}

	p, err := env.pipeline(opts)
	if err != nil {
		return err
	}

	results := p.Batch(commandContext(cmd), reqs)

	return render(cmd.OutOrStdout(), batchOutput{Results: results, Summary: pipeline.Summarize(results)}, func() string {
		return output.RenderBatchResults(results)
	})
}
