package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blackwell-systems/reposcope/internal/store"
)

// Explanation is everything recorded about one repository: its latest
// classification, the full analysis audit trail and its tools.
type Explanation struct {
	Repository     *store.Repository       `json:"repository"`
	Classification *store.AnalysisResult   `json:"classification,omitempty"`
	Analyses       []*store.AnalysisResult `json:"analyses"`
	Tools          []*store.Tool           `json:"tools"`
}

// Rationale returns the classification text without its leading label line.
func (e *Explanation) Rationale() string {
	if e.Classification == nil {
		return ""
	}
	_, rest, found := strings.Cut(e.Classification.Result, "\n\n")
	if !found {
		return ""
	}
	return strings.TrimSpace(rest)
}

// FindRepository resolves ref as a numeric id, then a url, then a name.
// Names are matched in ingestion order, so the oldest duplicate wins.
func (r *Reporter) FindRepository(ref string) (*store.Repository, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		repo, err := r.store.GetRepository(id)
		if err == nil || !errors.Is(err, store.ErrNotFound) {
			return repo, err
		}
	}

	repo, err := r.store.GetRepositoryByURL(ref)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return repo, err
	}

	all, err := r.store.ListRepositories()
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	for _, repo := range all {
		if repo.Name == ref {
			return repo, nil
		}
	}
	return nil, fmt.Errorf("repository %q: %w", ref, store.ErrNotFound)
}

// Explain builds the Explanation for the repository ref resolves to.
func (r *Reporter) Explain(ref string) (*Explanation, error) {
	repo, err := r.FindRepository(ref)
	if err != nil {
		return nil, err
	}

	analyses, err := r.store.ListAnalysisResults(repo.ID)
	if err != nil {
		return nil, err
	}
	tools, err := r.store.ListToolsByRepository(repo.ID)
	if err != nil {
		return nil, err
	}

	e := &Explanation{Repository: repo, Analyses: analyses, Tools: tools}
	for _, a := range analyses {
		if a.AnalysisType == store.AnalysisCategorization {
			e.Classification = a
		}
	}
	if e.Analyses == nil {
		e.Analyses = []*store.AnalysisResult{}
	}
	if e.Tools == nil {
		e.Tools = []*store.Tool{}
	}
	return e, nil
}
