package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/blackwell-systems/reposcope/internal/analyzer"
	"github.com/blackwell-systems/reposcope/internal/llm"
	"github.com/blackwell-systems/reposcope/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fakeExtractor serves content by url.
type fakeExtractor struct {
	content map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeExtractor) Fetch(_ context.Context, url, _ string) (string, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	return f.content[url], nil
}

// failingAnalyzer fails Classify and delegates everything else.
type failingAnalyzer struct {
	*analyzer.Deterministic
}

func (failingAnalyzer) Classify(context.Context, string, string) (analyzer.Classification, error) {
	return analyzer.Classification{}, errors.New("classifier exploded")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T, ext Extractor, opts Options) (*Pipeline, *store.Store) {
	t.Helper()
	s := newTestStore(t)
	opts.Logger = quietLogger()
	return New(s, ext, analyzer.NewDeterministic(), opts), s
}

func TestIngest_ScraperScenario(t *testing.T) {
	ext := &fakeExtractor{content: map[string]string{
		"https://x/a": strings.Repeat("scrape puppeteer ", 3),
	}}
	p, s := newTestPipeline(t, ext, Options{})

	res := p.Ingest(context.Background(), Request{URL: "https://x/a", Name: "a"})
	if !res.Success {
		t.Fatalf("Ingest failed: %+v", res)
	}
	if res.Category != "web-scraping" {
		t.Errorf("Category = %q, want web-scraping", res.Category)
	}
	if res.Stage != StageDone {
		t.Errorf("Stage = %q, want done", res.Stage)
	}

	repo, err := s.GetRepository(res.RepositoryID)
	if err != nil {
		t.Fatalf("GetRepository error = %v", err)
	}
	if repo.Category != "web-scraping" || !repo.HasContent() || repo.ProcessedAt == nil {
		t.Errorf("repository not updated: %+v", repo)
	}
	if repo.Metadata["analyzer"] != analyzer.ModeDeterministic {
		t.Errorf("metadata = %v", repo.Metadata)
	}

	tools, _ := s.ListToolsByRepository(res.RepositoryID)
	if len(tools) != 1 || tools[0].Name != "a" || tools[0].Type != "service" {
		t.Errorf("tools = %+v, want synthetic service entry", tools)
	}
	if res.ToolCount != 1 {
		t.Errorf("ToolCount = %d, want 1", res.ToolCount)
	}

	results, _ := s.ListAnalysisResults(res.RepositoryID)
	if len(results) != 2 {
		t.Fatalf("got %d analysis results, want 2", len(results))
	}
	if results[0].AnalysisType != store.AnalysisCategorization || !strings.HasPrefix(results[0].Result, "web-scraping\n") {
		t.Errorf("categorization result = %+v", results[0])
	}
	if results[1].AnalysisType != store.AnalysisToolExtraction || !strings.Contains(results[1].Result, `"type":"service"`) {
		t.Errorf("tool extraction result = %+v", results[1])
	}
}

func TestIngest_RecordsAnsweringAnalyzer(t *testing.T) {
	mock := &llm.MockProvider{ChatFunc: func(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
		return nil, errors.New("API error (status 500): upstream unavailable")
	}}
	ext := &fakeExtractor{content: map[string]string{"https://x/a": "function fooBar() {}"}}
	s := newTestStore(t)
	p := New(s, ext, analyzer.New(mock, quietLogger(), nil), Options{Logger: quietLogger()})

	res := p.Ingest(context.Background(), Request{URL: "https://x/a", Name: "a"})
	if !res.Success {
		t.Fatalf("Ingest failed: %+v", res)
	}
	if len(mock.Calls) == 0 {
		t.Fatal("remote provider was never consulted")
	}

	repo, _ := s.GetRepository(res.RepositoryID)
	if repo.Metadata["analyzer"] != analyzer.ModeDeterministic {
		t.Errorf("repository analyzer = %v, want deterministic", repo.Metadata["analyzer"])
	}
	tools, _ := s.ListToolsByRepository(res.RepositoryID)
	if len(tools) != 1 || tools[0].Name != "fooBar" {
		t.Fatalf("tools = %+v, want fooBar", tools)
	}
	if tools[0].Metadata["analyzer"] != analyzer.ModeDeterministic {
		t.Errorf("tool analyzer = %v, want deterministic", tools[0].Metadata["analyzer"])
	}
}

func TestIngest_DerivesNameFromURL(t *testing.T) {
	ext := &fakeExtractor{content: map[string]string{"https://github.com/o/tool.git": "const helper = 1"}}
	p, _ := newTestPipeline(t, ext, Options{})

	res := p.Ingest(context.Background(), Request{URL: "https://github.com/o/tool.git"})
	if res.Name != "tool" {
		t.Errorf("Name = %q, want tool", res.Name)
	}
}

func TestIngest_Failures(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		ext     *fakeExtractor
		step    Stage
		errPart string
	}{
		{
			name:    "missing url",
			req:     Request{Name: "x"},
			ext:     &fakeExtractor{},
			step:    StageRegistered,
			errPart: "url is required",
		},
		{
			name:    "extraction error",
			req:     Request{URL: "https://x/gone", Name: "gone"},
			ext:     &fakeExtractor{errs: map[string]error{"https://x/gone": errors.New("clone failed")}},
			step:    StageContentFetched,
			errPart: "clone failed",
		},
		{
			name:    "empty content",
			req:     Request{URL: "https://x/empty", Name: "empty"},
			ext:     &fakeExtractor{content: map[string]string{"https://x/empty": "  "}},
			step:    StageContentFetched,
			errPart: "no content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPipeline(t, tt.ext, Options{})
			res := p.Ingest(context.Background(), tt.req)
			if res.Success {
				t.Fatal("expected failure")
			}
			if res.Stage != StageFailed || res.FailedStep != tt.step {
				t.Errorf("Stage = %q, FailedStep = %q; want failed at %q", res.Stage, res.FailedStep, tt.step)
			}
			if !strings.Contains(res.Error, tt.errPart) {
				t.Errorf("Error = %q, want it to contain %q", res.Error, tt.errPart)
			}
		})
	}
}

func TestIngest_FailureKeepsRegistration(t *testing.T) {
	ext := &fakeExtractor{errs: map[string]error{"https://x/a": errors.New("boom")}}
	p, s := newTestPipeline(t, ext, Options{})

	res := p.Ingest(context.Background(), Request{URL: "https://x/a", Name: "a"})
	if res.RepositoryID == 0 {
		t.Fatal("registered id should be reported on later failure")
	}
	repo, err := s.GetRepositoryByURL("https://x/a")
	if err != nil {
		t.Fatalf("GetRepositoryByURL error = %v", err)
	}
	if repo.HasContent() || repo.Category != "" {
		t.Errorf("repository should stay unprocessed: %+v", repo)
	}
}

func TestIngest_ClassifyFailure(t *testing.T) {
	s := newTestStore(t)
	ext := &fakeExtractor{content: map[string]string{"https://x/a": "data"}}
	p := New(s, ext, failingAnalyzer{analyzer.NewDeterministic()}, Options{Logger: quietLogger()})

	res := p.Ingest(context.Background(), Request{URL: "https://x/a", Name: "a"})
	if res.Success || res.FailedStep != StageClassified {
		t.Errorf("result = %+v, want failure at classified", res)
	}
	tools, _ := s.ListToolsByRepository(res.RepositoryID)
	if len(tools) != 0 {
		t.Errorf("no tools should be written after classification fails, got %d", len(tools))
	}
}

func TestIngest_ReprocessAppends(t *testing.T) {
	ext := &fakeExtractor{content: map[string]string{"https://x/a": "function one() {}\nfunction two() {}"}}
	p, s := newTestPipeline(t, ext, Options{})

	first := p.Ingest(context.Background(), Request{URL: "https://x/a", Name: "a"})
	second := p.Ingest(context.Background(), Request{URL: "https://x/a", Name: "a"})
	if first.RepositoryID != second.RepositoryID {
		t.Fatalf("ids differ: %d vs %d", first.RepositoryID, second.RepositoryID)
	}

	tools, _ := s.ListToolsByRepository(first.RepositoryID)
	if len(tools) != 4 {
		t.Errorf("got %d tools, want 4 after re-processing", len(tools))
	}
	results, _ := s.ListAnalysisResults(first.RepositoryID)
	if len(results) != 4 {
		t.Errorf("got %d analysis results, want 4", len(results))
	}
}

func TestIngest_ReplaceTools(t *testing.T) {
	ext := &fakeExtractor{content: map[string]string{"https://x/a": "function one() {}\nfunction two() {}"}}
	p, s := newTestPipeline(t, ext, Options{ReplaceTools: true})

	p.Ingest(context.Background(), Request{URL: "https://x/a", Name: "a"})
	res := p.Ingest(context.Background(), Request{URL: "https://x/a", Name: "a"})

	tools, _ := s.ListToolsByRepository(res.RepositoryID)
	if len(tools) != 2 {
		t.Errorf("got %d tools, want 2 with replace", len(tools))
	}
}

func TestIngest_SkipProcessed(t *testing.T) {
	ext := &fakeExtractor{content: map[string]string{"https://x/a": "sqlite database"}}
	p, _ := newTestPipeline(t, ext, Options{SkipProcessed: true})

	p.Ingest(context.Background(), Request{URL: "https://x/a", Name: "a"})
	res := p.Ingest(context.Background(), Request{URL: "https://x/a", Name: "a"})

	if !res.Success || !res.Skipped {
		t.Errorf("second ingest = %+v, want skipped", res)
	}
	if res.Category != "database" || res.ToolCount != 1 {
		t.Errorf("skip result should report stored state: %+v", res)
	}
	if len(ext.calls) != 1 {
		t.Errorf("extractor called %d times, want 1", len(ext.calls))
	}
}

func TestBatch_ContinuesAfterFailure(t *testing.T) {
	ext := &fakeExtractor{
		content: map[string]string{
			"https://x/a": "sql",
			"https://x/c": "sqlite",
		},
		errs: map[string]error{"https://x/b": errors.New("unreachable")},
	}
	var progress []int
	p, s := newTestPipeline(t, ext, Options{
		Progress: func(done, total int, _ Result) { progress = append(progress, done) },
	})

	results := p.Batch(context.Background(), []Request{
		{URL: "https://x/a", Name: "a"},
		{URL: "https://x/b", Name: "b"},
		{URL: "https://x/c", Name: "c"},
	})

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if !results[0].Success || results[1].Success || !results[2].Success {
		t.Errorf("unexpected outcomes: %+v", results)
	}
	if strings.Join(ext.calls, ",") != "https://x/a,https://x/b,https://x/c" {
		t.Errorf("requests not processed in order: %v", ext.calls)
	}
	if len(progress) != 3 || progress[2] != 3 {
		t.Errorf("progress = %v", progress)
	}

	sum := Summarize(results)
	if sum.Succeeded != 2 || sum.Failed != 1 {
		t.Errorf("Summarize = %+v", sum)
	}

	repos, _ := s.ListRepositories()
	if len(repos) != 3 {
		t.Errorf("got %d repositories, want 3", len(repos))
	}
}

func TestBatch_CancelledContext(t *testing.T) {
	ext := &fakeExtractor{content: map[string]string{"https://x/a": "sql"}}
	p, _ := newTestPipeline(t, ext, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := p.Batch(ctx, []Request{{URL: "https://x/a"}})
	if len(results) != 0 {
		t.Errorf("got %d results, want none after cancellation", len(results))
	}
}

func TestMetrics_Recorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	ext := &fakeExtractor{
		content: map[string]string{"https://x/a": "function a() {}"},
		errs:    map[string]error{"https://x/b": errors.New("nope")},
	}
	p, _ := newTestPipeline(t, ext, Options{Metrics: m})

	p.Ingest(context.Background(), Request{URL: "https://x/a"})
	p.Ingest(context.Background(), Request{URL: "https://x/b"})

	if got := testutil.ToFloat64(m.Results.WithLabelValues("success")); got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StageFailures.WithLabelValues(string(StageContentFetched))); got != 1 {
		t.Errorf("content failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ToolsExtracted); got != 1 {
		t.Errorf("tools = %v, want 1", got)
	}
}

func TestNameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/owner/repo", "repo"},
		{"https://github.com/owner/repo.git", "repo"},
		{"https://github.com/owner/repo/", "repo"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NameFromURL(tt.url); got != tt.want {
			t.Errorf("NameFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
