package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/blackwell-systems/reposcope/internal/analyzer"
	"github.com/blackwell-systems/reposcope/internal/report"
	"github.com/blackwell-systems/reposcope/internal/search"
	"github.com/blackwell-systems/reposcope/internal/store"
)

func newTestHandlers(t *testing.T) (*Handlers, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	idx, err := search.NewMemory(s)
	if err != nil {
		t.Fatalf("NewMemory error = %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rep := report.New(s, analyzer.NewDeterministic(), logger)
	return &Handlers{store: s, reporter: rep, index: idx}, s
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func seed(t *testing.T, s *store.Store) {
	t.Helper()
	a, _ := s.UpsertRepository("alpha", "https://x/alpha", "SQL toolkit")
	s.SetCategory(a, "database")
	b, _ := s.UpsertRepository("beta", "https://x/beta", "Page crawler")
	s.SetCategory(b, "web-scraping")
	s.AddTool(a, "migrate", "Apply schema migrations", "function", nil)
}

func TestCreateServer(t *testing.T) {
	h, s := newTestHandlers(t)
	server := CreateServer(ServerConfig{Name: "reposcope", Version: "test", Store: s, Reporter: h.reporter, Index: h.index})
	if server == nil {
		t.Fatal("Expected server to be created")
	}
}

func TestCreateServer_WithoutIndex(t *testing.T) {
	h, s := newTestHandlers(t)
	server := CreateServer(ServerConfig{Name: "reposcope", Store: s, Reporter: h.reporter})
	if server == nil {
		t.Fatal("Expected server to be created without a search index")
	}
}

func TestListRepositories(t *testing.T) {
	h, s := newTestHandlers(t)
	seed(t, s)

	res, _, err := h.ListRepositories(context.Background(), nil, RepositoriesArgs{Category: "database"})
	if err != nil || res.IsError {
		t.Fatalf("ListRepositories failed: %v %s", err, resultText(t, res))
	}

	var repos []store.Repository
	if err := json.Unmarshal([]byte(resultText(t, res)), &repos); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(repos) != 1 || repos[0].Name != "alpha" {
		t.Errorf("repos = %+v", repos)
	}
}

func TestListRepositories_Empty(t *testing.T) {
	h, _ := newTestHandlers(t)
	res, _, _ := h.ListRepositories(context.Background(), nil, RepositoriesArgs{})
	if got := resultText(t, res); got != "[]" {
		t.Errorf("empty list = %q, want []", got)
	}
}

func TestListCategories(t *testing.T) {
	h, s := newTestHandlers(t)
	s.RegisterCategory("database", "Repositories categorized as database")

	res, _, _ := h.ListCategories(context.Background(), nil, NoArgs{})
	if !strings.Contains(resultText(t, res), `"name": "database"`) {
		t.Errorf("unexpected categories: %s", resultText(t, res))
	}
}

func TestCategoryReport(t *testing.T) {
	h, s := newTestHandlers(t)
	seed(t, s)

	res, _, _ := h.CategoryReport(context.Background(), nil, CategoryArgs{Category: "database"})
	if res.IsError {
		t.Fatalf("CategoryReport error: %s", resultText(t, res))
	}
	var rep report.CategoryReport
	if err := json.Unmarshal([]byte(resultText(t, res)), &rep); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rep.RepositoryCount != 1 || rep.ToolCount != 1 {
		t.Errorf("report = %+v", rep)
	}
}

func TestCategoryReport_EmptyCategory(t *testing.T) {
	h, _ := newTestHandlers(t)
	res, _, _ := h.CategoryReport(context.Background(), nil, CategoryArgs{Category: "  "})
	if !res.IsError {
		t.Error("expected error result for empty category")
	}
}

func TestListTools(t *testing.T) {
	h, s := newTestHandlers(t)
	seed(t, s)

	res, _, _ := h.ListTools(context.Background(), nil, NoArgs{})
	if !strings.Contains(resultText(t, res), `"totalTools": 1`) {
		t.Errorf("unexpected tools: %s", resultText(t, res))
	}
}

func TestSearch(t *testing.T) {
	h, s := newTestHandlers(t)
	seed(t, s)

	res, _, _ := h.Search(context.Background(), nil, SearchArgs{Query: "crawler"})
	if res.IsError {
		t.Fatalf("Search error: %s", resultText(t, res))
	}
	var out search.Results
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(out.Hits) == 0 || out.Hits[0].Name != "beta" {
		t.Errorf("hits = %+v", out.Hits)
	}
}

func TestSearch_Validation(t *testing.T) {
	h, _ := newTestHandlers(t)
	res, _, _ := h.Search(context.Background(), nil, SearchArgs{})
	if !res.IsError {
		t.Error("expected error result for empty query")
	}

	h.index = nil
	res, _, _ = h.Search(context.Background(), nil, SearchArgs{Query: "x"})
	if !res.IsError {
		t.Error("expected error result without an index")
	}
}

func TestExplainRepository(t *testing.T) {
	h, s := newTestHandlers(t)
	seed(t, s)

	res, _, _ := h.ExplainRepository(context.Background(), nil, RepositoryArgs{Repository: "alpha"})
	if res.IsError {
		t.Fatalf("ExplainRepository error: %s", resultText(t, res))
	}
	var e report.Explanation
	if err := json.Unmarshal([]byte(resultText(t, res)), &e); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if e.Repository.URL != "https://x/alpha" || len(e.Tools) != 1 {
		t.Errorf("explanation = %+v", e)
	}

	res, _, _ = h.ExplainRepository(context.Background(), nil, RepositoryArgs{Repository: "gamma"})
	if !res.IsError || !strings.Contains(resultText(t, res), "not found") {
		t.Error("expected not-found error result")
	}
}
