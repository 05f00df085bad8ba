// Package report aggregates the catalogue: it groups repositories by
// category, records comparisons for multi-member groups and asks the
// analyzer for recommendations. It also builds the read-only category and
// tool listings.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blackwell-systems/reposcope/internal/analyzer"
	"github.com/blackwell-systems/reposcope/internal/store"
)

// Uncategorized groups repositories that have not been classified.
const Uncategorized = "uncategorized"

// ErrNoRepositories is returned by Analyze on an empty catalogue.
var ErrNoRepositories = errors.New("no repositories to analyze")

// RepositoryRef is the short form of a repository used in listings.
type RepositoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// CategoryDetail lists the members of one category group.
type CategoryDetail struct {
	Name         string          `json:"name"`
	Count        int             `json:"count"`
	Repositories []RepositoryRef `json:"repositories"`
}

// Summary holds the corpus totals of a report.
type Summary struct {
	TotalRepositories int              `json:"totalRepositories"`
	TotalTools        int              `json:"totalTools"`
	Categories        int              `json:"categories"`
	CategoriesDetail  []CategoryDetail `json:"categoriesDetail"`
	ToolsByType       map[string]int   `json:"toolsByType"`
}

// ComparisonEntry is a comparison produced during one Analyze run.
type ComparisonEntry struct {
	ID            int64   `json:"id"`
	Category      string  `json:"category"`
	RepositoryIDs []int64 `json:"repositoryIds"`
	Narrative     string  `json:"narrative"`
}

// Report is the result of Analyze.
type Report struct {
	Timestamp       time.Time         `json:"timestamp"`
	Mode            string            `json:"mode"`
	Summary         Summary           `json:"summary"`
	Comparisons     []ComparisonEntry `json:"comparisons"`
	Recommendations string            `json:"recommendations"`
}

// Reporter reads from and writes comparisons to a Store.
type Reporter struct {
	store    *store.Store
	analyzer analyzer.Analyzer
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Reporter. The store is owned by the caller.
func New(s *store.Store, an analyzer.Analyzer, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{store: s, analyzer: an, logger: logger, now: time.Now}
}

type group struct {
	name  string
	repos []*store.Repository
}

// groupByCategory keeps groups in the order their first member appears.
func groupByCategory(repos []*store.Repository) []*group {
	var groups []*group
	index := make(map[string]*group)
	for _, r := range repos {
		name := r.Category
		if name == "" {
			name = Uncategorized
		}
		g, ok := index[name]
		if !ok {
			g = &group{name: name}
			index[name] = g
			groups = append(groups, g)
		}
		g.repos = append(g.repos, r)
	}
	return groups
}

// Analyze runs a full aggregation. Every category is registered; groups with
// two or more members are compared and the comparison is persisted. Any
// store error aborts the run.
func (r *Reporter) Analyze(ctx context.Context, needs string) (*Report, error) {
	repos, err := r.store.ListRepositories()
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	if len(repos) == 0 {
		return nil, ErrNoRepositories
	}

	groups := groupByCategory(repos)
	r.logger.Info("aggregating repositories", "repositories", len(repos), "categories", len(groups))

	summary := Summary{
		TotalRepositories: len(repos),
		Categories:        len(groups),
		ToolsByType:       make(map[string]int),
	}
	names := make([]string, 0, len(groups))

	for _, g := range groups {
		if err := r.store.RegisterCategory(g.name, "Repositories categorized as "+g.name); err != nil {
			return nil, err
		}
		names = append(names, g.name)

		detail := CategoryDetail{Name: g.name, Count: len(g.repos)}
		for _, repo := range g.repos {
			detail.Repositories = append(detail.Repositories, RepositoryRef{ID: repo.ID, Name: repo.Name, URL: repo.URL})
		}
		summary.CategoriesDetail = append(summary.CategoriesDetail, detail)
	}

	var comparisons []ComparisonEntry
	for _, g := range groups {
		if len(g.repos) < 2 {
			r.logger.Debug("skipping comparison for single-member category", "category", g.name)
			continue
		}

		narrative, err := r.analyzer.Compare(ctx, g.repos, g.name)
		if err != nil {
			return nil, fmt.Errorf("failed to compare %s: %w", g.name, err)
		}

		ids := make([]int64, len(g.repos))
		for i, repo := range g.repos {
			ids[i] = repo.ID
		}
		id, err := r.store.RecordComparison(g.name, ids, narrative, "")
		if err != nil {
			return nil, err
		}
		comparisons = append(comparisons, ComparisonEntry{
			ID:            id,
			Category:      g.name,
			RepositoryIDs: ids,
			Narrative:     narrative,
		})
	}

	tools, err := r.store.ListAllTools()
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	summary.TotalTools = len(tools)
	for _, t := range tools {
		typ := t.Type
		if typ == "" {
			typ = "unknown"
		}
		summary.ToolsByType[typ]++
	}

	stats := analyzer.AggregateStats{
		Categories:      names,
		RepositoryCount: len(repos),
		ToolCount:       len(tools),
	}
	for _, c := range comparisons {
		stats.Comparisons = append(stats.Comparisons, analyzer.CategoryNarrative{Category: c.Category, Narrative: c.Narrative})
	}
	recommendations, err := r.analyzer.Recommend(ctx, stats, needs)
	if err != nil {
		return nil, fmt.Errorf("failed to generate recommendations: %w", err)
	}

	return &Report{
		Timestamp:       r.now().UTC(),
		Mode:            r.analyzer.Mode(),
		Summary:         summary,
		Comparisons:     comparisons,
		Recommendations: recommendations,
	}, nil
}
