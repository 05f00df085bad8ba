package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/blackwell-systems/reposcope/internal/llm"
	"github.com/blackwell-systems/reposcope/internal/store"
)

// Content prefixes sent to the remote model.
const (
	classifyPrefixLen = 4000
	comparePrefixLen  = 1000
)

var (
	fencedJSON  = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n\\s*```")
	fencedPlain = regexp.MustCompile("(?s)```\\s*\\n(.*?)\\n\\s*```")
)

// callSettings holds per-operation sampling parameters.
type callSettings struct {
	system      string
	temperature float64
	maxTokens   int
}

var (
	classifySettings = callSettings{
		system:      "You are an expert at analyzing code repositories and categorizing them based on their functionality.",
		temperature: 0.3,
		maxTokens:   200,
	}
	extractSettings = callSettings{
		system:      "You are an expert at analyzing code and extracting tools and functionalities. Always respond with valid JSON.",
		temperature: 0.3,
		maxTokens:   1000,
	}
	compareSettings = callSettings{
		system:      "You are an expert at comparing software tools and providing recommendations.",
		temperature: 0.5,
		maxTokens:   1500,
	}
	recommendSettings = callSettings{
		system:      "You are an expert at recommending tools based on analysis and user needs.",
		temperature: 0.6,
		maxTokens:   1000,
	}
)

// Remote analyzes content with a chat model. Every failure is returned
// wrapped in ErrCapability; use WithFallback to absorb them.
type Remote struct {
	provider llm.Provider
}

// NewRemote creates a remote analyzer backed by provider.
func NewRemote(provider llm.Provider) *Remote {
	return &Remote{provider: provider}
}

func (r *Remote) Mode() string { return ModeRemote }

func (r *Remote) chat(ctx context.Context, s callSettings, prompt string) (string, error) {
	resp, err := r.provider.Chat(ctx, llm.ChatRequest{
		Messages:    llm.BuildChatMessages(s.system, prompt),
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCapability, err)
	}
	content := strings.TrimSpace(resp.Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty reply from %s", ErrCapability, r.provider.Name())
	}
	return content, nil
}

func (r *Remote) Classify(ctx context.Context, text, name string) (Classification, error) {
	var b strings.Builder
	b.WriteString("Analyze the following repository output and categorize it into one of these categories:\n")
	for _, c := range Categories() {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	fmt.Fprintf(&b, "\nRepository: %s\n\nOutput:\n%s\n\n", name, prefix(text, classifyPrefixLen))
	b.WriteString("Respond with only the category name on the first line, followed by a brief explanation (2-3 sentences).")

	reply, err := r.chat(ctx, classifySettings, b.String())
	if err != nil {
		return Classification{}, err
	}
	return parseClassification(reply)
}

// parseClassification splits a reply into label (first line) and rationale.
// The label is normalised and must name a taxonomy category.
func parseClassification(reply string) (Classification, error) {
	first, rest, _ := strings.Cut(strings.TrimSpace(reply), "\n")
	label := normaliseLabel(first)
	if !IsCategory(label) {
		return Classification{}, fmt.Errorf("%w: unrecognised category %q", ErrCapability, first)
	}
	return Classification{Label: label, Rationale: strings.TrimSpace(rest), Mode: ModeRemote}, nil
}

func normaliseLabel(line string) string {
	s := strings.ToLower(strings.TrimSpace(line))
	s = strings.TrimPrefix(s, "category:")
	s = strings.Trim(s, " \t*#`\"'.:-")
	return s
}

func (r *Remote) ExtractTools(ctx context.Context, text, name string) ([]ExtractedTool, error) {
	prompt := fmt.Sprintf(`Analyze the following repository and extract a list of tools/functions it provides.
For each tool, provide:
- name: The tool/function name
- description: Brief description of what it does
- type: The type (e.g., function, api, service, utility)

Repository: %s

Output:
%s

Respond with a JSON array of tools.`, name, prefix(text, classifyPrefixLen))

	reply, err := r.chat(ctx, extractSettings, prompt)
	if err != nil {
		return nil, err
	}
	return parseTools(reply)
}

// parseTools decodes a JSON array of tools, unwrapping a fenced code block.
func parseTools(reply string) ([]ExtractedTool, error) {
	body := reply
	if m := fencedJSON.FindStringSubmatch(reply); m != nil {
		body = m[1]
	} else if m := fencedPlain.FindStringSubmatch(reply); m != nil {
		body = m[1]
	}

	var raw []ExtractedTool
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse tool list: %v", ErrCapability, err)
	}

	tools := raw[:0]
	for _, t := range raw {
		if strings.TrimSpace(t.Name) == "" {
			continue
		}
		t.Mode = ModeRemote
		tools = append(tools, t)
	}
	return tools, nil
}

type repoSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Summary     string `json:"summary"`
}

func (r *Remote) Compare(ctx context.Context, repos []*store.Repository, category string) (string, error) {
	summaries := make([]repoSummary, 0, len(repos))
	for _, repo := range repos {
		summary := prefix(repo.RawContent, comparePrefixLen)
		if summary == "" {
			summary = "No output available"
		}
		summaries = append(summaries, repoSummary{
			Name:        repo.Name,
			Description: repo.Description,
			Category:    repo.Category,
			Summary:     summary,
		})
	}
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode repositories: %w", err)
	}

	prompt := fmt.Sprintf(`Compare the following repositories in the %q category and provide:
1. Key similarities
2. Key differences
3. Strengths of each
4. Recommended use cases for each

Repositories:
%s

Provide a structured comparison and recommendations.`, category, data)

	return r.chat(ctx, compareSettings, prompt)
}

func (r *Remote) Recommend(ctx context.Context, stats AggregateStats, needs string) (string, error) {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode statistics: %w", err)
	}
	if strings.TrimSpace(needs) == "" {
		needs = "General purpose recommendations"
	}

	prompt := fmt.Sprintf(`Based on the following analysis results, generate recommendations for which tools to use:

Analysis Results:
%s

User Needs: %s

Provide clear, actionable recommendations with reasoning.`, data, needs)

	return r.chat(ctx, recommendSettings, prompt)
}

// prefix returns at most n runes of s.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
