// Package analyzer derives categories, tools, comparisons and
// recommendations from flattened repository content.
//
// Two implementations exist. The remote analyzer asks a chat model through
// an llm.Provider; the deterministic analyzer uses keyword scoring and
// lexical patterns and needs no network. New picks one at construction and
// wraps the remote analyzer so every failed call falls back for that call
// only.
package analyzer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/blackwell-systems/reposcope/internal/llm"
	"github.com/blackwell-systems/reposcope/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// Modes reported by Analyzer.Mode.
const (
	ModeRemote        = "remote"
	ModeDeterministic = "deterministic"
)

// ErrCapability marks a failed or unparseable remote call. It never escapes
// an analyzer returned by New.
var ErrCapability = errors.New("analysis capability failed")

// Analyzer is the analysis contract used by the pipeline and the reporter.
type Analyzer interface {
	Classify(ctx context.Context, text, name string) (Classification, error)
	ExtractTools(ctx context.Context, text, name string) ([]ExtractedTool, error)
	Compare(ctx context.Context, repos []*store.Repository, category string) (string, error)
	Recommend(ctx context.Context, stats AggregateStats, needs string) (string, error)
	Mode() string
}

// New returns the deterministic analyzer when provider is nil, otherwise a
// remote analyzer that falls back to the deterministic one per call.
// fallbacks may be nil.
func New(provider llm.Provider, logger *slog.Logger, fallbacks *prometheus.CounterVec) Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		logger.Warn("no analysis provider configured, using deterministic analysis")
		return NewDeterministic()
	}
	return WithFallback(NewRemote(provider), NewDeterministic(), logger, fallbacks)
}
