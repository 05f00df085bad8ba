package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blackwell-systems/reposcope/internal/report"
)

// RenderReport renders the result of an analyze run.
func RenderReport(rep *report.Report) string {
	var sb strings.Builder

	sb.WriteString(colorize(colorGreen, "Catalogue analysis"))
	sb.WriteString(fmt.Sprintf(" (%s, %s mode)\n", rep.Timestamp.Format("2006-01-02 15:04"), rep.Mode))
	sb.WriteString(strings.Repeat("─", 60))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Repositories: %d · Tools: %d · Categories: %d\n",
		rep.Summary.TotalRepositories, rep.Summary.TotalTools, rep.Summary.Categories))

	sb.WriteString("\nCategories:\n")
	for _, c := range rep.Summary.CategoriesDetail {
		names := make([]string, len(c.Repositories))
		for i, r := range c.Repositories {
			names[i] = r.Name
		}
		sb.WriteString(fmt.Sprintf("  %-20s %3d  %s\n", c.Name, c.Count, strings.Join(names, ", ")))
	}

	if len(rep.Summary.ToolsByType) > 0 {
		sb.WriteString("\nTools by type:\n")
		types := make([]string, 0, len(rep.Summary.ToolsByType))
		for t := range rep.Summary.ToolsByType {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			sb.WriteString(fmt.Sprintf("  %-20s %d\n", t, rep.Summary.ToolsByType[t]))
		}
	}

	if len(rep.Comparisons) == 0 {
		sb.WriteString(colorize(colorGray, "\nNo category has two or more repositories; nothing to compare.\n"))
	}
	for _, c := range rep.Comparisons {
		sb.WriteString("\n")
		sb.WriteString(colorize(colorYellow, "Comparison: "+c.Category))
		sb.WriteString("\n")
		sb.WriteString(strings.TrimSpace(c.Narrative))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(colorize(colorGreen, "Recommendations"))
	sb.WriteString("\n")
	sb.WriteString(strings.TrimSpace(rep.Recommendations))
	sb.WriteString("\n")

	return sb.String()
}

// RenderCategoryReport renders the repositories, tools and stored
// comparisons of one category.
func RenderCategoryReport(rep *report.CategoryReport) string {
	if rep.RepositoryCount == 0 {
		return fmt.Sprintf("No repositories in category %q.\n", rep.Category)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Category: %s (%d repositories, %d tools)\n",
		rep.Category, rep.RepositoryCount, rep.ToolCount))
	sb.WriteString(strings.Repeat("─", 60))
	sb.WriteString("\n")

	names := make(map[int64]string, len(rep.Repositories))
	for _, r := range rep.Repositories {
		names[r.ID] = r.Name
		sb.WriteString(fmt.Sprintf("  %-24s %s\n", truncate(r.Name, 24), r.URL))
		if r.Description != "" {
			sb.WriteString(fmt.Sprintf("  %-24s %s\n", "", truncate(r.Description, 60)))
		}
	}

	if len(rep.Tools) > 0 {
		sb.WriteString("\nTools:\n")
		for _, t := range rep.Tools {
			sb.WriteString(fmt.Sprintf("  %-24s %-10s %s\n",
				truncate(t.Name, 24), t.Type, names[t.RepositoryID]))
		}
	}

	if len(rep.Comparisons) > 0 {
		sb.WriteString(fmt.Sprintf("\nComparisons (%d stored):\n", len(rep.Comparisons)))
		latest := rep.Comparisons[len(rep.Comparisons)-1]
		sb.WriteString(fmt.Sprintf("Latest, %s:\n", formatRelativeTime(latest.ComparedAt)))
		sb.WriteString(strings.TrimSpace(latest.Result))
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderExplanation renders what is recorded about one repository.
func RenderExplanation(e *report.Explanation) string {
	var sb strings.Builder
	repo := e.Repository

	sb.WriteString(fmt.Sprintf("\nRepository: %s (id %d)\n", repo.Name, repo.ID))
	sb.WriteString(fmt.Sprintf("URL:        %s\n", repo.URL))
	if repo.Description != "" {
		sb.WriteString(fmt.Sprintf("About:      %s\n", repo.Description))
	}
	if repo.ProcessedAt != nil {
		sb.WriteString(fmt.Sprintf("Fetched:    %s (%s)\n", formatRelativeTime(*repo.ProcessedAt), formatSize(int64(len(repo.RawContent)))))
	} else {
		sb.WriteString("Fetched:    pending\n")
	}

	if e.Classification == nil {
		sb.WriteString(colorize(colorRed, "\nNot classified yet.") + " Run: reposcope ingest " + repo.URL + "\n")
	} else {
		score := "n/a"
		if e.Classification.Score != nil {
			score = fmt.Sprintf("%.2f", *e.Classification.Score)
		}
		sb.WriteString(fmt.Sprintf("\nCategory:   %s (score %s)\n", colorize(colorGreen, categoryLabel(repo.Category)), score))
		if rationale := e.Rationale(); rationale != "" {
			sb.WriteString("Why:        " + rationale + "\n")
		}
	}

	if len(e.Tools) > 0 {
		sb.WriteString(fmt.Sprintf("\nTools (%d):\n", len(e.Tools)))
		for _, t := range e.Tools {
			sb.WriteString(fmt.Sprintf("  %-24s %-10s %s\n", truncate(t.Name, 24), t.Type, truncate(t.Description, 40)))
		}
	}

	if len(e.Analyses) > 0 {
		sb.WriteString("\nAnalysis history:\n")
		for _, a := range e.Analyses {
			sb.WriteString(fmt.Sprintf("  %-16s %s\n", a.AnalysisType, colorize(colorGray, formatRelativeTime(a.AnalyzedAt))))
		}
	}

	return sb.String()
}
