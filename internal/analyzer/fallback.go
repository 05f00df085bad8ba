package analyzer

import (
	"context"
	"log/slog"

	"github.com/blackwell-systems/reposcope/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// fallbackAnalyzer tries primary first and, on any error, answers the same
// call with fallback. It never switches modes permanently.
type fallbackAnalyzer struct {
	primary   Analyzer
	fallback  Analyzer
	logger    *slog.Logger
	fallbacks *prometheus.CounterVec
}

// WithFallback wraps primary so failures are answered by fallback. The
// counter, if non-nil, is incremented with the operation name as its only
// label value.
func WithFallback(primary, fallback Analyzer, logger *slog.Logger, fallbacks *prometheus.CounterVec) Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &fallbackAnalyzer{
		primary:   primary,
		fallback:  fallback,
		logger:    logger,
		fallbacks: fallbacks,
	}
}

// Mode reports the configured primary. Classification.Mode and
// ExtractedTool.Mode name the analyzer that actually answered.
func (f *fallbackAnalyzer) Mode() string { return f.primary.Mode() }

func (f *fallbackAnalyzer) degrade(op string, err error) {
	f.logger.Warn("remote analysis failed, using fallback", "operation", op, "error", err)
	if f.fallbacks != nil {
		f.fallbacks.WithLabelValues(op).Inc()
	}
}

func (f *fallbackAnalyzer) Classify(ctx context.Context, text, name string) (Classification, error) {
	c, err := f.primary.Classify(ctx, text, name)
	if err == nil {
		return c, nil
	}
	f.degrade("classify", err)
	return f.fallback.Classify(ctx, text, name)
}

func (f *fallbackAnalyzer) ExtractTools(ctx context.Context, text, name string) ([]ExtractedTool, error) {
	tools, err := f.primary.ExtractTools(ctx, text, name)
	if err == nil {
		return tools, nil
	}
	f.degrade("extract_tools", err)
	return f.fallback.ExtractTools(ctx, text, name)
}

func (f *fallbackAnalyzer) Compare(ctx context.Context, repos []*store.Repository, category string) (string, error) {
	s, err := f.primary.Compare(ctx, repos, category)
	if err == nil {
		return s, nil
	}
	f.degrade("compare", err)
	return f.fallback.Compare(ctx, repos, category)
}

func (f *fallbackAnalyzer) Recommend(ctx context.Context, stats AggregateStats, needs string) (string, error) {
	s, err := f.primary.Recommend(ctx, stats, needs)
	if err == nil {
		return s, nil
	}
	f.degrade("recommend", err)
	return f.fallback.Recommend(ctx, stats, needs)
}
