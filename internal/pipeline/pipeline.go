// Package pipeline runs the per-repository ingestion state machine:
// register, fetch content, classify, extract tools. Failures never escape as
// Go errors; each repository yields a Result.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/blackwell-systems/reposcope/internal/analyzer"
	"github.com/blackwell-systems/reposcope/internal/store"
)

// Stage is a step of the ingestion state machine.
type Stage string

const (
	StageRegistered     Stage = "registered"
	StageContentFetched Stage = "content_fetched"
	StageClassified     Stage = "classified"
	StageToolsExtracted Stage = "tools_extracted"
	StageDone           Stage = "done"
	StageFailed         Stage = "failed"
)

// Extractor produces the flattened content of a repository.
type Extractor interface {
	Fetch(ctx context.Context, url, name string) (string, error)
}

// Request identifies one repository to ingest.
type Request struct {
	URL         string `json:"url" yaml:"url"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Result is the outcome of one ingestion.
type Result struct {
	Success      bool   `json:"success"`
	Skipped      bool   `json:"skipped,omitempty"`
	RepositoryID int64  `json:"repositoryId,omitempty"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	Category     string `json:"category,omitempty"`
	ToolCount    int    `json:"toolsCount"`
	Stage        Stage  `json:"stage"`
	FailedStep   Stage  `json:"failedStep,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Options tunes pipeline behaviour.
type Options struct {
	Logger  *slog.Logger
	Metrics *Metrics

	// ReplaceTools deletes a repository's existing tools before inserting
	// the newly extracted set. By default tools accumulate.
	ReplaceTools bool

	// SkipProcessed returns early for urls that already have a category.
	SkipProcessed bool

	// Progress, if set, is called after each repository of a batch.
	Progress func(done, total int, r Result)
}

// Pipeline ingests repositories into a Store.
type Pipeline struct {
	store     *store.Store
	extractor Extractor
	analyzer  analyzer.Analyzer
	logger    *slog.Logger
	metrics   *Metrics
	opts      Options
}

// New creates a Pipeline. The store is owned by the caller.
func New(s *store.Store, ext Extractor, an analyzer.Analyzer, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:     s,
		extractor: ext,
		analyzer:  an,
		logger:    logger,
		metrics:   opts.Metrics,
		opts:      opts,
	}
}

// Ingest runs the full pipeline for one repository.
func (p *Pipeline) Ingest(ctx context.Context, req Request) Result {
	start := time.Now()
	res := p.ingest(ctx, req)
	p.metrics.observe(res, time.Since(start))

	if res.Success {
		p.logger.Info("repository processed",
			"name", res.Name, "id", res.RepositoryID, "category", res.Category,
			"tools", res.ToolCount, "skipped", res.Skipped)
	} else {
		p.logger.Error("repository failed",
			"name", res.Name, "url", res.URL, "step", res.FailedStep, "error", res.Error)
	}
	return res
}

func (p *Pipeline) ingest(ctx context.Context, req Request) Result {
	res := Result{
		Name: strings.TrimSpace(req.Name),
		URL:  strings.TrimSpace(req.URL),
	}
	if res.Name == "" {
		res.Name = NameFromURL(res.URL)
	}
	fail := func(step Stage, err error) Result {
		res.Success = false
		res.Stage = StageFailed
		res.FailedStep = step
		res.Error = err.Error()
		return res
	}

	if res.URL == "" {
		return fail(StageRegistered, errors.New("repository url is required"))
	}

	if p.opts.SkipProcessed {
		if done, ok := p.alreadyProcessed(res); ok {
			return done
		}
	}

	// Registered
	id, err := p.store.UpsertRepository(res.Name, res.URL, req.Description)
	if err != nil {
		return fail(StageRegistered, err)
	}
	res.RepositoryID = id
	res.Stage = StageRegistered
	p.logger.Debug("repository registered", "id", id, "url", res.URL)

	// ContentFetched
	if err := ctx.Err(); err != nil {
		return fail(StageContentFetched, err)
	}
	content, err := p.extractor.Fetch(ctx, res.URL, res.Name)
	if err != nil {
		return fail(StageContentFetched, err)
	}
	if strings.TrimSpace(content) == "" {
		return fail(StageContentFetched, fmt.Errorf("extractor returned no content for %s", res.URL))
	}
	if err := p.store.SetRawContent(id, content); err != nil {
		return fail(StageContentFetched, err)
	}
	if err := p.store.SetMetadata(id, map[string]any{"content_bytes": len(content)}); err != nil {
		return fail(StageContentFetched, err)
	}
	res.Stage = StageContentFetched

	// Classified
	if err := ctx.Err(); err != nil {
		return fail(StageClassified, err)
	}
	cls, err := p.analyzer.Classify(ctx, content, res.Name)
	if err != nil {
		return fail(StageClassified, err)
	}
	category := strings.TrimSpace(cls.Label)
	if err := p.store.SetCategory(id, category); err != nil {
		return fail(StageClassified, err)
	}
	if err := p.store.SetMetadata(id, map[string]any{
		"content_bytes": len(content),
		"analyzer":      p.modeOf(cls.Mode),
	}); err != nil {
		return fail(StageClassified, err)
	}
	if _, err := p.store.RecordAnalysis(id, store.AnalysisCategorization, cls.Text(), cls.Score); err != nil {
		return fail(StageClassified, err)
	}
	res.Category = category
	res.Stage = StageClassified

	// ToolsExtracted
	if err := ctx.Err(); err != nil {
		return fail(StageToolsExtracted, err)
	}
	tools, err := p.analyzer.ExtractTools(ctx, content, res.Name)
	if err != nil {
		return fail(StageToolsExtracted, err)
	}
	if p.opts.ReplaceTools {
		removed, err := p.store.DeleteToolsByRepository(id)
		if err != nil {
			return fail(StageToolsExtracted, err)
		}
		if removed > 0 {
			p.logger.Debug("replaced existing tools", "id", id, "removed", removed)
		}
	}
	for _, t := range tools {
		meta := map[string]any{"analyzer": p.modeOf(t.Mode)}
		if _, err := p.store.AddTool(id, t.Name, t.Description, t.Type, meta); err != nil {
			return fail(StageToolsExtracted, err)
		}
	}
	encoded, err := json.Marshal(tools)
	if err != nil {
		return fail(StageToolsExtracted, fmt.Errorf("failed to encode tools: %w", err))
	}
	if _, err := p.store.RecordAnalysis(id, store.AnalysisToolExtraction, string(encoded), nil); err != nil {
		return fail(StageToolsExtracted, err)
	}
	res.ToolCount = len(tools)

	res.Success = true
	res.Stage = StageDone
	return res
}

// modeOf returns the mode recorded on a result, or the configured analyzer's
// mode when the result carries none.
func (p *Pipeline) modeOf(m string) string {
	if m != "" {
		return m
	}
	return p.analyzer.Mode()
}

// alreadyProcessed reports a skip result for a url that has a category.
func (p *Pipeline) alreadyProcessed(res Result) (Result, bool) {
	repo, err := p.store.GetRepositoryByURL(res.URL)
	if err != nil || repo.Category == "" {
		return res, false
	}
	tools, err := p.store.ListToolsByRepository(repo.ID)
	if err != nil {
		return res, false
	}
	res.Success = true
	res.Skipped = true
	res.RepositoryID = repo.ID
	res.Name = repo.Name
	res.Category = repo.Category
	res.ToolCount = len(tools)
	res.Stage = StageDone
	return res, true
}

// Batch ingests reqs strictly in order. A failed repository does not stop
// the batch. If ctx is cancelled the remaining requests are not started and
// only the results produced so far are returned.
func (p *Pipeline) Batch(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, 0, len(reqs))
	for i, req := range reqs {
		if ctx.Err() != nil {
			p.logger.Warn("batch interrupted", "completed", i, "total", len(reqs))
			break
		}
		r := p.Ingest(ctx, req)
		results = append(results, r)
		if p.opts.Progress != nil {
			p.opts.Progress(i+1, len(reqs), r)
		}
	}
	return results
}

// NameFromURL derives a repository name from the last path element of url.
func NameFromURL(url string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(url), "/")
	name := strings.TrimSuffix(path.Base(trimmed), ".git")
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// Summary counts outcomes in a batch.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Skipped:
			s.Skipped++
		case r.Success:
			s.Succeeded++
		default:
			s.Failed++
		}
	}
	return s
}
