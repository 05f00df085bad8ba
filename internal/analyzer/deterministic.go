package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/blackwell-systems/reposcope/internal/store"
)

// MaxExtractedTools bounds offline tool extraction.
const MaxExtractedTools = 10

// declPattern captures the declared name, skipping modifiers such as the
// "function" in "export function handler".
var declPattern = regexp.MustCompile(`\b(?:function|const|export)\s+(?:(?:function|const|let|var|class|default|async)\s+)*(\w+)`)

// Deterministic is the offline analyzer. Every method is a pure function of
// its inputs.
type Deterministic struct{}

// NewDeterministic creates the offline analyzer.
func NewDeterministic() *Deterministic {
	return &Deterministic{}
}

func (d *Deterministic) Mode() string { return ModeDeterministic }

// Classify scores each category by the number of its distinct keywords found
// in text. A category must strictly beat the current best to win, so ties go
// to the earlier taxonomy entry.
func (d *Deterministic) Classify(_ context.Context, text, _ string) (Classification, error) {
	lower := strings.ToLower(text)

	best := CategoryOther
	bestMatches := 0
	bestTotal := 0
	for _, c := range taxonomy {
		matches := 0
		for _, kw := range c.Keywords {
			if strings.Contains(lower, kw) {
				matches++
			}
		}
		if matches > bestMatches {
			best, bestMatches, bestTotal = c.Name, matches, len(c.Keywords)
		}
	}

	cls := Classification{
		Label: best,
		Rationale: fmt.Sprintf("This repository appears to be related to %s based on keyword analysis. "+
			"It contains functionality typical of this category.", best),
		Mode: ModeDeterministic,
	}
	if bestTotal > 0 {
		score := float64(bestMatches) / float64(bestTotal)
		cls.Score = &score
	}
	return cls, nil
}

// ExtractTools returns up to MaxExtractedTools distinct declaration names.
// With no matches it returns one entry standing for the repository itself.
func (d *Deterministic) ExtractTools(_ context.Context, text, name string) ([]ExtractedTool, error) {
	var tools []ExtractedTool
	seen := make(map[string]bool)

	for _, m := range declPattern.FindAllStringSubmatch(text, -1) {
		ident := m[1]
		if seen[ident] {
			continue
		}
		seen[ident] = true
		tools = append(tools, ExtractedTool{
			Name:        ident,
			Description: "Function or tool extracted from " + name,
			Type:        "function",
			Mode:        ModeDeterministic,
		})
		if len(tools) == MaxExtractedTools {
			break
		}
	}

	if len(tools) == 0 {
		tools = append(tools, ExtractedTool{
			Name:        name,
			Description: "Main repository functionality",
			Type:        "service",
			Mode:        ModeDeterministic,
		})
	}
	return tools, nil
}

// Compare renders a fixed comparison with one line per repository.
func (d *Deterministic) Compare(_ context.Context, repos []*store.Repository, category string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Comparison of %d repositories in the %q category:\n\n", len(repos), category)
	b.WriteString("Similarities:\n")
	fmt.Fprintf(&b, "- All repositories provide functionality related to %s\n", category)
	b.WriteString("- Common tools and patterns are used across implementations\n\n")
	b.WriteString("Differences:\n")
	for _, r := range repos {
		desc := r.Description
		if desc == "" {
			desc = "Unique implementation approach"
		}
		fmt.Fprintf(&b, "- %s: %s\n", r.Name, desc)
	}
	b.WriteString("\nRecommendations:\n")
	b.WriteString("Consider your specific use case when choosing between these options. " +
		"Each has its strengths for different scenarios.")
	return b.String(), nil
}

const genericRecommendations = `Based on the analysis, here are the recommendations:

1. Consider the category that best matches your needs
2. Review the tools available in each repository
3. Compare features and choose the best fit
4. Start with the most actively maintained repository

The analysis shows diverse options across different categories, providing good coverage for various use cases.`

// Recommend returns a generic checklist regardless of input.
func (d *Deterministic) Recommend(_ context.Context, _ AggregateStats, _ string) (string, error) {
	return genericRecommendations, nil
}
