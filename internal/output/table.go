// Package output provides terminal output utilities for reposcope.
//
// This package includes:
//   - Table rendering for repositories, categories, tools, batch results and search hits
//   - Rendering of analysis and category reports
//   - Progress bars and spinners for long-running operations
//   - JSON encoding for --json output
//
// Tables use fixed-width columns and ANSI color codes only when stdout is a terminal.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/reposcope/internal/pipeline"
	"github.com/blackwell-systems/reposcope/internal/report"
	"github.com/blackwell-systems/reposcope/internal/search"
	"github.com/blackwell-systems/reposcope/internal/store"
)

// ANSI color codes for category and status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// categoryLabel returns the display label for a repository category.
func categoryLabel(category string) string {
	if category == "" {
		return report.Uncategorized
	}
	return category
}

// RenderRepositoryTable renders repositories in ingestion order.
func RenderRepositoryTable(repos []*store.Repository) string {
	if len(repos) == 0 {
		return "No repositories found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-24s %-17s %-14s %-8s %s\n",
		"ID", "Name", "Category", "Fetched", "Size", "URL"))
	sb.WriteString(strings.Repeat("─", 100))
	sb.WriteString("\n")

	for _, repo := range repos {
		fetched, size := "pending", "-"
		if repo.ProcessedAt != nil {
			fetched = formatRelativeTime(*repo.ProcessedAt)
			size = formatSize(int64(len(repo.RawContent)))
		}

		// Pad before colorizing so escape codes do not break alignment.
		category := fmt.Sprintf("%-17s", categoryLabel(repo.Category))
		if repo.Category == "" {
			category = colorize(colorGray, category)
		}

		sb.WriteString(fmt.Sprintf("%-5d %-24s %s %-14s %-8s %s\n",
			repo.ID,
			truncate(repo.Name, 24),
			category,
			fetched,
			size,
			repo.URL))
	}

	return sb.String()
}

// RenderCategoryTable renders registered categories with member counts.
func RenderCategoryTable(categories []*store.Category, counts map[string]int) string {
	if len(categories) == 0 {
		return "No categories registered. Run 'reposcope analyze' first.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-20s %-13s %-14s %s\n",
		"Category", "Repositories", "Registered", "Description"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, c := range categories {
		sb.WriteString(fmt.Sprintf("%-20s %-13d %-14s %s\n",
			truncate(c.Name, 20),
			counts[c.Name],
			formatRelativeTime(c.CreatedAt),
			truncate(c.Description, 40)))
	}

	return sb.String()
}

// RenderToolsList renders tools grouped under their repository.
func RenderToolsList(list *report.ToolsList) string {
	if list == nil || list.TotalTools == 0 {
		return "No tools extracted yet.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d tools across %d repositories\n", list.TotalTools, len(list.Repositories)))

	for _, g := range list.Repositories {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s (%s)\n", g.Repository, g.URL))
		sb.WriteString(strings.Repeat("─", 60))
		sb.WriteString("\n")
		for _, t := range g.Tools {
			sb.WriteString(fmt.Sprintf("  %-24s %-10s %s\n",
				truncate(t.Name, 24),
				t.Type,
				truncate(t.Description, 50)))
		}
	}

	return sb.String()
}

// RenderBatchResults renders one line per ingestion followed by a summary.
func RenderBatchResults(results []pipeline.Result) string {
	if len(results) == 0 {
		return "No repositories processed.\n"
	}

	var sb strings.Builder
	for _, r := range results {
		sb.WriteString(FormatResult(r))
		sb.WriteString("\n")
	}

	s := pipeline.Summarize(results)
	sb.WriteString(fmt.Sprintf("\nProcessed %d: %d succeeded, %d skipped, %d failed\n",
		s.Total, s.Succeeded, s.Skipped, s.Failed))
	return sb.String()
}

// FormatResult renders a single ingestion outcome on one line.
func FormatResult(r pipeline.Result) string {
	switch {
	case r.Skipped:
		return fmt.Sprintf("%s %-24s already processed (%s)",
			color.YellowString("-"), truncate(r.Name, 24), categoryLabel(r.Category))
	case r.Success:
		return fmt.Sprintf("%s %-24s %-17s %d tools",
			color.GreenString("✓"), truncate(r.Name, 24), r.Category, r.ToolCount)
	default:
		return fmt.Sprintf("%s %-24s failed at %s: %s",
			color.RedString("✗"), truncate(r.Name, 24), r.FailedStep, r.Error)
	}
}

// RenderStatus renders table counts and the active analyzer mode.
func RenderStatus(counts *store.Counts, mode, dbPath string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Database:         %s\n", dbPath))
	sb.WriteString(fmt.Sprintf("Analyzer mode:    %s\n", mode))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Repositories:     %d (%d fetched)\n", counts.Repositories, counts.Processed))
	sb.WriteString(fmt.Sprintf("Tools:            %d\n", counts.Tools))
	sb.WriteString(fmt.Sprintf("Categories:       %d\n", counts.Categories))
	sb.WriteString(fmt.Sprintf("Analysis results: %d\n", counts.AnalysisResults))
	sb.WriteString(fmt.Sprintf("Comparisons:      %d\n", counts.Comparisons))

	return sb.String()
}

// RenderSearchResults renders catalogue search hits in score order.
func RenderSearchResults(res *search.Results) string {
	if res == nil || len(res.Hits) == 0 {
		return "No matches.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-6s %-10s %-24s %-20s %s\n",
		"Score", "Kind", "Name", "Repository", "Category"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, h := range res.Hits {
		sb.WriteString(fmt.Sprintf("%-6.2f %-10s %-24s %-20s %s\n",
			h.Score,
			h.Kind,
			truncate(h.Name, 24),
			truncate(h.Repository, 20),
			h.Category))
	}

	if uint64(len(res.Hits)) < res.Total {
		sb.WriteString(fmt.Sprintf("\nShowing %d of %d matches\n", len(res.Hits), res.Total))
	}

	return sb.String()
}

// formatSize converts bytes to human-readable size (MB, KB).
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
	)

	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.0f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// truncate shortens s to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
