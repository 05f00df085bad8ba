package app

import (
	"errors"
	"os"

	clierrors "github.com/blackwell-systems/reposcope/internal/errors"
	"github.com/blackwell-systems/reposcope/internal/extractor"
	"github.com/blackwell-systems/reposcope/internal/pipeline"
	"github.com/blackwell-systems/reposcope/internal/report"
	"github.com/blackwell-systems/reposcope/internal/search"
	"github.com/blackwell-systems/reposcope/internal/store"
)

func configError(msg string, err error) error {
	return clierrors.NewConfigError(msg, err.Error(),
		"Check your flags, REPOSCOPE_* environment variables and config file", err)
}

func databaseError(path string, err error) error {
	if errors.Is(err, os.ErrPermission) {
		return clierrors.NewPermissionError("Cannot open catalogue database", err.Error(),
			"Choose a writable location with --db or --data-dir", err)
	}
	return clierrors.NewDatabaseError("Cannot open catalogue database", "Database: "+path,
		"Stop any running 'reposcope watch --daemon' and retry", err)
}

// toUserError maps domain errors to a UserError. Errors that already are a
// UserError pass through; anything unrecognised is reported as internal.
func toUserError(err error) error {
	if err == nil {
		return nil
	}
	var ue *clierrors.UserError
	if errors.As(err, &ue) {
		return ue
	}

	switch {
	case errors.Is(err, report.ErrNoRepositories):
		return clierrors.NewNotFoundError("No repositories to analyze",
			"The catalogue is empty", "Run: reposcope ingest <url>")
	case errors.Is(err, pipeline.ErrMalformedBatchInput):
		return &clierrors.UserError{
			Message:  "Invalid batch file",
			Cause:    err.Error(),
			Fix:      "Provide a JSON or YAML list of {url, name, description} entries",
			ExitCode: clierrors.ExitInput,
			Err:      err,
		}
	case errors.Is(err, extractor.ErrExtraction):
		return clierrors.NewNetworkError("Cannot fetch repository content", err.Error(),
			"Check the URL is reachable and that git is installed", err)
	case errors.Is(err, store.ErrNotFound):
		return clierrors.NewNotFoundError("Not found", err.Error(), "Run: reposcope list")
	case errors.Is(err, search.ErrEmptyQuery):
		return clierrors.NewInputError("Empty search query", "", "Run: reposcope search <terms>")
	case errors.Is(err, os.ErrNotExist):
		return &clierrors.UserError{
			Message:  "File not found",
			Cause:    err.Error(),
			ExitCode: clierrors.ExitNotFound,
			Err:      err,
		}
	}

	return clierrors.NewInternalError("Unexpected error", err.Error(),
		"Re-run with --log-level debug for details", err)
}
