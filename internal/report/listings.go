package report

import (
	"fmt"

	"github.com/blackwell-systems/reposcope/internal/store"
)

// CategoryReport describes one category: its repositories, their tools and
// every comparison stored for it.
type CategoryReport struct {
	Category        string              `json:"category"`
	RepositoryCount int                 `json:"repositoryCount"`
	Repositories    []*store.Repository `json:"repositories"`
	ToolCount       int                 `json:"toolCount"`
	Tools           []*store.Tool       `json:"tools"`
	Comparisons     []*store.Comparison `json:"comparisons"`
}

// Category builds the report for one category. An unknown category yields
// an empty report, not an error.
func (r *Reporter) Category(category string) (*CategoryReport, error) {
	var repos []*store.Repository
	var err error
	if category == Uncategorized {
		repos, err = r.unclassified()
	} else {
		repos, err = r.store.ListRepositoriesByCategory(category)
	}
	if err != nil {
		return nil, err
	}

	rep := &CategoryReport{
		Category:        category,
		RepositoryCount: len(repos),
		Repositories:    repos,
	}
	for _, repo := range repos {
		tools, err := r.store.ListToolsByRepository(repo.ID)
		if err != nil {
			return nil, err
		}
		rep.Tools = append(rep.Tools, tools...)
	}
	rep.ToolCount = len(rep.Tools)

	if rep.Comparisons, err = r.store.ListComparisonsByCategory(category); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *Reporter) unclassified() ([]*store.Repository, error) {
	all, err := r.store.ListRepositories()
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	var repos []*store.Repository
	for _, repo := range all {
		if repo.Category == "" {
			repos = append(repos, repo)
		}
	}
	return repos, nil
}

// ToolEntry is a tool inside a ToolGroup.
type ToolEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// ToolGroup is the tools of one repository.
type ToolGroup struct {
	RepositoryID int64       `json:"repositoryId"`
	Repository   string      `json:"repository"`
	URL          string      `json:"url"`
	Tools        []ToolEntry `json:"tools"`
}

// ToolsList is every tool in the catalogue grouped by repository.
type ToolsList struct {
	TotalTools   int          `json:"totalTools"`
	Repositories []*ToolGroup `json:"repositories"`
}

// Tools groups all tools by owning repository, in the order the first tool
// of each repository was recorded.
func (r *Reporter) Tools() (*ToolsList, error) {
	tools, err := r.store.ListAllTools()
	if err != nil {
		return nil, err
	}

	list := &ToolsList{TotalTools: len(tools), Repositories: []*ToolGroup{}}
	byRepo := make(map[int64]*ToolGroup)
	for _, t := range tools {
		g, ok := byRepo[t.RepositoryID]
		if !ok {
			g = &ToolGroup{RepositoryID: t.RepositoryID, Repository: t.RepositoryName, URL: t.RepositoryURL}
			byRepo[t.RepositoryID] = g
			list.Repositories = append(list.Repositories, g)
		}
		g.Tools = append(g.Tools, ToolEntry{Name: t.Name, Description: t.Description, Type: t.Type})
	}
	return list, nil
}
