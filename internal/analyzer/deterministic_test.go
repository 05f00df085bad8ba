package analyzer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/blackwell-systems/reposcope/internal/store"
)

func TestClassify_KeywordScoring(t *testing.T) {
	d := NewDeterministic()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"scraper", strings.Repeat("scrape puppeteer ", 3), "web-scraping"},
		{"case insensitive", "Uses POSTGRES and MongoDB", "database"},
		{"tie goes to earlier category", "sql data", "data-processing"},
		{"no keywords", "xyz qqq", CategoryOther},
		{"empty", "", CategoryOther},
		{"distinct keywords not occurrences", "slack slack slack slack email chat", "communication"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Classify(context.Background(), tt.text, "repo")
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got.Label != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got.Label, tt.want)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	d := NewDeterministic()
	text := "A crawler that stores scraped pages in sqlite and uploads them to s3"

	first, _ := d.Classify(context.Background(), text, "a")
	for i := 0; i < 5; i++ {
		got, _ := d.Classify(context.Background(), text, "a")
		if got.Label != first.Label || got.Rationale != first.Rationale {
			t.Fatalf("run %d = %+v, want %+v", i, got, first)
		}
	}
}

func TestClassify_ScoreAndRationale(t *testing.T) {
	d := NewDeterministic()

	got, _ := d.Classify(context.Background(), "scrape with puppeteer", "a")
	if got.Score == nil || *got.Score != 0.4 {
		t.Errorf("Score = %v, want 0.4", got.Score)
	}
	if !strings.Contains(got.Rationale, "web-scraping based on keyword analysis") {
		t.Errorf("unexpected rationale: %q", got.Rationale)
	}
	if !strings.HasPrefix(got.Text(), "web-scraping\n\n") {
		t.Errorf("Text() = %q, want label on first line", got.Text())
	}

	other, _ := d.Classify(context.Background(), "zzz", "a")
	if other.Score != nil {
		t.Errorf("Score for other = %v, want nil", *other.Score)
	}
}

func TestExtractTools_DistinctMatches(t *testing.T) {
	d := NewDeterministic()
	text := "function foo() {}\nconst foo = 1\nexport bar\nlet baz = 2"

	tools, err := d.ExtractTools(context.Background(), text, "repo")
	if err != nil {
		t.Fatalf("ExtractTools() error = %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("got %d tools, want 2: %+v", len(tools), tools)
	}
	if tools[0].Name != "foo" || tools[1].Name != "bar" {
		t.Errorf("names = %q, %q; want foo, bar", tools[0].Name, tools[1].Name)
	}
	for _, tool := range tools {
		if tool.Type != "function" {
			t.Errorf("tool %s type = %q, want function", tool.Name, tool.Type)
		}
		if tool.Description != "Function or tool extracted from repo" {
			t.Errorf("tool %s description = %q", tool.Name, tool.Description)
		}
	}
}

func TestExtractTools_DeclarationNames(t *testing.T) {
	d := NewDeterministic()
	tests := []struct {
		text string
		want []string
	}{
		{"export function handler(req) {}", []string{"handler"}},
		{"export const config = {}", []string{"config"}},
		{"export default async function main() {}", []string{"main"}},
		{"export class Router {}", []string{"Router"}},
		{"async function fetchAll() {}", []string{"fetchAll"}},
		{"a dysfunction x and a constant y", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			tools, _ := d.ExtractTools(context.Background(), tt.text, "repo")
			var got []string
			for _, tool := range tools {
				if tool.Type == "function" {
					got = append(got, tool.Name)
				}
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("names = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractTools_Bound(t *testing.T) {
	d := NewDeterministic()
	var b strings.Builder
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, "function f%d() {}\n", i)
	}

	tools, _ := d.ExtractTools(context.Background(), b.String(), "repo")
	if len(tools) != MaxExtractedTools {
		t.Fatalf("got %d tools, want %d", len(tools), MaxExtractedTools)
	}
	if tools[0].Name != "f0" || tools[9].Name != "f9" {
		t.Errorf("expected first ten in order, got %s..%s", tools[0].Name, tools[9].Name)
	}
}

func TestExtractTools_SyntheticEntry(t *testing.T) {
	d := NewDeterministic()

	tools, _ := d.ExtractTools(context.Background(), "just some prose without declarations", "my-repo")
	if len(tools) != 1 {
		t.Fatalf("got %d tools, want 1", len(tools))
	}
	want := ExtractedTool{Name: "my-repo", Description: "Main repository functionality", Type: "service", Mode: ModeDeterministic}
	if tools[0] != want {
		t.Errorf("tool = %+v, want %+v", tools[0], want)
	}
}

func TestCompare_Template(t *testing.T) {
	d := NewDeterministic()
	repos := []*store.Repository{
		{Name: "alpha", Description: "Fast SQL client"},
		{Name: "beta"},
	}

	got, _ := d.Compare(context.Background(), repos, "database")

	for _, want := range []string{
		`Comparison of 2 repositories in the "database" category:`,
		"- All repositories provide functionality related to database",
		"- alpha: Fast SQL client",
		"- beta: Unique implementation approach",
		"Recommendations:",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("comparison missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "- alpha") > strings.Index(got, "- beta") {
		t.Error("repositories should be listed in input order")
	}
}

func TestRecommend_FixedChecklist(t *testing.T) {
	d := NewDeterministic()

	a, _ := d.Recommend(context.Background(), AggregateStats{RepositoryCount: 3}, "")
	b, _ := d.Recommend(context.Background(), AggregateStats{RepositoryCount: 99}, "need a scraper")
	if a != b {
		t.Error("offline recommendations should not depend on input")
	}
	for i := 1; i <= 4; i++ {
		if !strings.Contains(a, fmt.Sprintf("%d. ", i)) {
			t.Errorf("checklist missing item %d", i)
		}
	}
}

func TestCategories(t *testing.T) {
	cats := Categories()
	if len(cats) != 10 {
		t.Fatalf("got %d categories, want 10", len(cats))
	}
	if cats[0] != "web-scraping" || cats[len(cats)-1] != CategoryOther {
		t.Errorf("unexpected order: %v", cats)
	}
	if !IsCategory("ai-ml") || IsCategory("gardening") {
		t.Error("IsCategory gave wrong answer")
	}
}
