// Package mcpserver exposes the catalogue as read-only MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/blackwell-systems/reposcope/internal/report"
	"github.com/blackwell-systems/reposcope/internal/search"
	"github.com/blackwell-systems/reposcope/internal/store"
)

// ServerConfig contains what is needed to build the MCP server. Index may be
// nil, in which case the search tool is not registered.
type ServerConfig struct {
	Name     string
	Version  string
	Store    *store.Store
	Reporter *report.Reporter
	Index    *search.Index
}

// CreateServer creates the MCP server and registers the catalogue tools.
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	h := &Handlers{store: cfg.Store, reporter: cfg.Reporter, index: cfg.Index}

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_repositories",
		Description: "List ingested repositories, optionally limited to one category",
	}, h.ListRepositories)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_categories",
		Description: "List the categories registered by the last analysis",
	}, h.ListCategories)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "category_report",
		Description: "Show the repositories, tools and stored comparisons of one category",
	}, h.CategoryReport)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_tools",
		Description: "List every extracted tool grouped by repository",
	}, h.ListTools)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "explain_repository",
		Description: "Show how one repository was classified: category, score, rationale, tools and analysis history",
	}, h.ExplainRepository)
	if cfg.Index != nil {
		mcp.AddTool(s, &mcp.Tool{
			Name:        "search_catalog",
			Description: "Full-text search over repository names, descriptions, content and tools",
		}, h.Search)
	}

	return s
}

// NoArgs is the input of tools that take no parameters.
type NoArgs struct{}

// RepositoriesArgs filters list_repositories.
type RepositoriesArgs struct {
	Category string `json:"category,omitempty" jsonschema_description:"Only list repositories in this category"`
}

// CategoryArgs selects the category for category_report.
type CategoryArgs struct {
	Category string `json:"category" jsonschema_description:"Category name (e.g., database, web-scraping)"`
}

// RepositoryArgs selects one repository.
type RepositoryArgs struct {
	Repository string `json:"repository" jsonschema_description:"Repository id, URL or name"`
}

// SearchArgs are the parameters of search_catalog.
type SearchArgs struct {
	Query    string `json:"query" jsonschema_description:"Search text"`
	Kind     string `json:"kind,omitempty" jsonschema_description:"Restrict to 'repository' or 'tool'"`
	Category string `json:"category,omitempty" jsonschema_description:"Restrict to one category"`
	Limit    int    `json:"limit,omitempty" jsonschema_description:"Maximum number of hits (default 20)"`
}

// Handlers implements the MCP tool handlers.
type Handlers struct {
	store    *store.Store
	reporter *report.Reporter
	index    *search.Index
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Failed to encode result: %s", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// ListRepositories returns repositories as JSON.
func (h *Handlers) ListRepositories(_ context.Context, _ *mcp.CallToolRequest, args RepositoriesArgs) (*mcp.CallToolResult, any, error) {
	var repos []*store.Repository
	var err error
	if c := strings.TrimSpace(args.Category); c != "" {
		repos, err = h.store.ListRepositoriesByCategory(c)
	} else {
		repos, err = h.store.ListRepositories()
	}
	if err != nil {
		return errorResult("Failed to list repositories: %s", err), nil, nil
	}
	if repos == nil {
		repos = []*store.Repository{}
	}
	return jsonResult(repos)
}

// ListCategories returns registered categories as JSON.
func (h *Handlers) ListCategories(_ context.Context, _ *mcp.CallToolRequest, _ NoArgs) (*mcp.CallToolResult, any, error) {
	cats, err := h.store.ListCategories()
	if err != nil {
		return errorResult("Failed to list categories: %s", err), nil, nil
	}
	if cats == nil {
		cats = []*store.Category{}
	}
	return jsonResult(cats)
}

// CategoryReport returns the report of one category.
func (h *Handlers) CategoryReport(_ context.Context, _ *mcp.CallToolRequest, args CategoryArgs) (*mcp.CallToolResult, any, error) {
	category := strings.TrimSpace(args.Category)
	if category == "" {
		return errorResult("Category cannot be empty"), nil, nil
	}
	rep, err := h.reporter.Category(category)
	if err != nil {
		return errorResult("Failed to build category report: %s", err), nil, nil
	}
	return jsonResult(rep)
}

// ListTools returns all tools grouped by repository.
func (h *Handlers) ListTools(_ context.Context, _ *mcp.CallToolRequest, _ NoArgs) (*mcp.CallToolResult, any, error) {
	list, err := h.reporter.Tools()
	if err != nil {
		return errorResult("Failed to list tools: %s", err), nil, nil
	}
	return jsonResult(list)
}

// ExplainRepository returns what is recorded about one repository.
func (h *Handlers) ExplainRepository(_ context.Context, _ *mcp.CallToolRequest, args RepositoryArgs) (*mcp.CallToolResult, any, error) {
	ref := strings.TrimSpace(args.Repository)
	if ref == "" {
		return errorResult("Repository cannot be empty"), nil, nil
	}
	e, err := h.reporter.Explain(ref)
	if errors.Is(err, store.ErrNotFound) {
		return errorResult("Repository %q not found", ref), nil, nil
	}
	if err != nil {
		return errorResult("Failed to explain repository: %s", err), nil, nil
	}
	return jsonResult(e)
}

// Search syncs the index from the store and runs the query.
func (h *Handlers) Search(_ context.Context, _ *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	if h.index == nil {
		return errorResult("Search is not available"), nil, nil
	}
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}
	if _, err := h.index.Sync(); err != nil {
		return errorResult("Failed to update search index: %s", err), nil, nil
	}
	res, err := h.index.Search(search.Query{
		Text:     args.Query,
		Kind:     args.Kind,
		Category: args.Category,
		Limit:    args.Limit,
	})
	if err != nil {
		return errorResult("Search failed: %s", err), nil, nil
	}
	return jsonResult(res)
}
