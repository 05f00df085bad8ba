package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/reposcope/internal/analyzer"
	"github.com/blackwell-systems/reposcope/internal/config"
	clierrors "github.com/blackwell-systems/reposcope/internal/errors"
	"github.com/blackwell-systems/reposcope/internal/extractor"
	"github.com/blackwell-systems/reposcope/internal/llm"
	"github.com/blackwell-systems/reposcope/internal/output"
	"github.com/blackwell-systems/reposcope/internal/pipeline"
	"github.com/blackwell-systems/reposcope/internal/report"
	"github.com/blackwell-systems/reposcope/internal/store"
)

// runtimeEnv is what a command needs: resolved settings, a logger and an
// open store. Close it when the command finishes.
type runtimeEnv struct {
	settings *config.Settings
	logger   *slog.Logger
	store    *store.Store
	registry *prometheus.Registry
	metrics  *pipeline.Metrics
}

// loadSettings resolves settings from the root command's persistent flags.
func loadSettings() (*config.Settings, error) {
	settings, err := config.LoadSettingsWithFlags(RootCmd.PersistentFlags())
	if err != nil {
		return nil, configError("Cannot load configuration", err)
	}
	if err := config.ValidateSettings(settings); err != nil {
		return nil, configError("Invalid configuration", err)
	}
	return settings, nil
}

// openEnv loads settings, builds the logger and opens the store.
func openEnv(cmd *cobra.Command) (*runtimeEnv, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}

	logger := config.NewLogger(cmd.ErrOrStderr(), settings.Log.Level)
	config.LogWithLogger(settings, logger)

	if err := os.MkdirAll(filepath.Dir(settings.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := store.New(settings.DBPath)
	if err != nil {
		return nil, databaseError(settings.DBPath, err)
	}
	if err := db.CreateSchema(); err != nil {
		db.Close()
		return nil, databaseError(settings.DBPath, err)
	}

	registry := prometheus.NewRegistry()
	return &runtimeEnv{
		settings: settings,
		logger:   logger,
		store:    db,
		registry: registry,
		metrics:  pipeline.NewMetrics(registry),
	}, nil
}

// Close writes the metrics file when --metrics-file is set and closes the store.
func (e *runtimeEnv) Close() error {
	var errs []error
	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, e.registry); err != nil {
			errs = append(errs, clierrors.NewConfigError("Cannot write metrics file", err.Error(),
				"Point --metrics-file at a writable location", err))
		}
	}
	if err := e.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	return errors.Join(errs...)
}

// closeEnv closes e from a deferred call, reporting the close error through
// *errp unless the command already failed.
func closeEnv(e *runtimeEnv, errp *error) {
	if cerr := e.Close(); cerr != nil && *errp == nil {
		*errp = cerr
	}
}

// provider builds the LLM provider, or nil when no usable credential is
// configured. Missing credentials are not an error.
func (e *runtimeEnv) provider() (llm.Provider, error) {
	if !e.settings.HasCredential() {
		return nil, nil
	}
	p, err := llm.NewProvider(llm.Config{
		Type:    e.settings.LLM.Provider,
		BaseURL: e.settings.LLM.BaseURL,
		APIKey:  e.settings.LLM.APIKey,
		Model:   e.settings.LLM.Model,
		Timeout: e.settings.LLM.Timeout,
	})
	if errors.Is(err, llm.ErrNoCredential) {
		return nil, nil
	}
	if err != nil {
		return nil, configError("Cannot create analysis provider", err)
	}
	return p, nil
}

// analyzer picks remote or deterministic analysis once, from the credential.
func (e *runtimeEnv) analyzer() (analyzer.Analyzer, error) {
	p, err := e.provider()
	if err != nil {
		return nil, err
	}
	return analyzer.New(p, e.logger, e.metrics.Fallbacks()), nil
}

func (e *runtimeEnv) pipeline(opts pipeline.Options) (*pipeline.Pipeline, error) {
	an, err := e.analyzer()
	if err != nil {
		return nil, err
	}
	opts.Logger = e.logger
	opts.Metrics = e.metrics
	return pipeline.New(e.store, newExtractor(e), an, opts), nil
}

// newExtractor builds the content extractor; tests replace it.
var newExtractor = func(e *runtimeEnv) pipeline.Extractor {
	return extractor.New(extractor.Options{
		FlattenCommand: e.settings.Extractor.FlattenCommand,
		OutputDir:      e.settings.Extractor.OutputDir,
		Logger:         e.logger,
	})
}

func (e *runtimeEnv) reporter() (*report.Reporter, error) {
	an, err := e.analyzer()
	if err != nil {
		return nil, err
	}
	return report.New(e.store, an, e.logger), nil
}

// catalogue returns a reporter for read-only listings, which never call the
// analyzer.
func (e *runtimeEnv) catalogue() *report.Reporter {
	return report.New(e.store, nil, e.logger)
}

// render writes v as JSON when --json is set, otherwise the text from human.
func render(w io.Writer, v any, human func() string) error {
	if jsonOutput {
		return output.JSONTo(w, v)
	}
	_, err := io.WriteString(w, human())
	return err
}
