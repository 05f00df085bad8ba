package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	clierrors "github.com/blackwell-systems/reposcope/internal/errors"
	"github.com/blackwell-systems/reposcope/internal/extractor"
	"github.com/blackwell-systems/reposcope/internal/pipeline"
)

// fakeExtractor serves canned content by url instead of cloning.
type fakeExtractor struct {
	content map[string]string
}

func (f *fakeExtractor) Fetch(_ context.Context, url, _ string) (string, error) {
	c, ok := f.content[url]
	if !ok {
		return "", fmt.Errorf("clone %s: %w", url, extractor.ErrExtraction)
	}
	return c, nil
}

const (
	urlCrawler = "https://example.com/acme/crawler"
	urlScraper = "https://example.com/acme/scraper"
	urlPG      = "https://example.com/acme/pgkit"
)

// setupCatalogue isolates settings in a temp data dir, forces offline
// analysis and swaps in a fake extractor.
func setupCatalogue(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("REPOSCOPE_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("REPOSCOPE_LLM_PROVIDER", "none")
	t.Setenv("REPOSCOPE_LOG_LEVEL", "error")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("REPOSCOPE_LLM_API_KEY", "")
	t.Setenv("REPOSCOPE_DB_PATH", "")
	t.Setenv("REPOSCOPE_CONFIG", "")

	orig := newExtractor
	newExtractor = func(*runtimeEnv) pipeline.Extractor {
		return &fakeExtractor{content: map[string]string{
			urlCrawler: "A puppeteer crawler to scrape pages.\nfunction crawlSite(url) {}\n",
			urlScraper: "Scrape with playwright and cheerio.\nfunction scrapeAll() {}\nfunction parsePage() {}\n",
			urlPG:      "Postgres sql database helpers",
		}}
	}

	origJSON, origQuiet, origMetrics := jsonOutput, batchQuiet, metricsFile
	jsonOutput, batchQuiet, metricsFile = false, true, ""
	t.Cleanup(func() {
		newExtractor = orig
		jsonOutput, batchQuiet, metricsFile = origJSON, origQuiet, origMetrics
		listCategory, analyzeNeeds, searchKind = "", "", ""
		ingestReplaceTools, batchSkipProcessed = false, false
	})
	return dir
}

// run invokes a command's RunE directly and captures stdout.
func run(t *testing.T, cmd *cobra.Command, runE func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	})
	err := runE(cmd, args)
	return out.String(), err
}

func writeBatchFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "repositories.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// seedCatalogue ingests the three fixture repositories.
func seedCatalogue(t *testing.T, dir string) {
	t.Helper()
	if _, err := run(t, ingestCmd, runIngest, urlCrawler); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	batch := writeBatchFile(t, dir, fmt.Sprintf(`[
  {"url": %q, "name": "scraper", "description": "Headless scraping"},
  {"url": %q}
]`, urlScraper, urlPG))
	if _, err := run(t, batchCmd, runBatch, batch); err != nil {
		t.Fatalf("batch: %v", err)
	}
}

func TestIngest_Success(t *testing.T) {
	setupCatalogue(t)

	out, err := run(t, ingestCmd, runIngest, urlCrawler)
	if err != nil {
		t.Fatalf("runIngest() error: %v", err)
	}
	if !strings.Contains(out, "crawler") || !strings.Contains(out, "web-scraping") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestIngest_IdempotentByURL(t *testing.T) {
	setupCatalogue(t)
	jsonOutput = true

	first, err := run(t, ingestCmd, runIngest, urlCrawler)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := run(t, ingestCmd, runIngest, urlCrawler, "renamed")
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	var a, b pipeline.Result
	if err := json.Unmarshal([]byte(first), &a); err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if err := json.Unmarshal([]byte(second), &b); err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if a.RepositoryID == 0 || a.RepositoryID != b.RepositoryID {
		t.Errorf("expected the same repository id, got %d and %d", a.RepositoryID, b.RepositoryID)
	}
}

func TestIngest_FailureIsNetworkError(t *testing.T) {
	setupCatalogue(t)

	out, err := run(t, ingestCmd, runIngest, "https://example.com/acme/missing")
	if err == nil {
		t.Fatal("expected error for unreachable repository")
	}
	var ue *clierrors.UserError
	if !errors.As(err, &ue) || ue.ExitCode != clierrors.ExitNetwork {
		t.Errorf("expected network UserError, got %v", err)
	}
	if !strings.Contains(out, "missing") {
		t.Errorf("failure result should still be printed, got %q", out)
	}
}

func TestBatch_ContinuesPastFailures(t *testing.T) {
	dir := setupCatalogue(t)
	batch := writeBatchFile(t, dir, fmt.Sprintf(`[{"url": %q}, {"url": "https://example.com/acme/gone"}, {"url": %q}]`, urlCrawler, urlPG))

	out, err := run(t, batchCmd, runBatch, batch)
	if err != nil {
		t.Fatalf("runBatch() error: %v", err)
	}
	if !strings.Contains(out, "Processed 3: 2 succeeded, 0 skipped, 1 failed") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}

func TestBatch_SkipProcessed(t *testing.T) {
	dir := setupCatalogue(t)
	seedCatalogue(t, dir)
	batchSkipProcessed = true

	batch := writeBatchFile(t, dir, fmt.Sprintf(`[{"url": %q}]`, urlCrawler))
	out, err := run(t, batchCmd, runBatch, batch)
	if err != nil {
		t.Fatalf("runBatch() error: %v", err)
	}
	if !strings.Contains(out, "1 skipped") {
		t.Errorf("expected the repository to be skipped:\n%s", out)
	}
}

func TestBatch_MalformedFile(t *testing.T) {
	dir := setupCatalogue(t)
	batch := writeBatchFile(t, dir, `[{"name": "no-url"}]`)

	_, err := run(t, batchCmd, runBatch, batch)
	if !errors.Is(err, pipeline.ErrMalformedBatchInput) {
		t.Fatalf("expected ErrMalformedBatchInput, got %v", err)
	}
	ue := toUserError(err).(*clierrors.UserError)
	if ue.ExitCode != clierrors.ExitInput {
		t.Errorf("ExitCode = %d, want %d", ue.ExitCode, clierrors.ExitInput)
	}
}

func TestList(t *testing.T) {
	dir := setupCatalogue(t)
	seedCatalogue(t, dir)

	out, err := run(t, listCmd, runList)
	if err != nil {
		t.Fatalf("runList() error: %v", err)
	}
	for _, want := range []string{"crawler", "scraper", "pgkit", "web-scraping", "database"} {
		if !strings.Contains(out, want) {
			t.Errorf("list missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "crawler") > strings.Index(out, "pgkit") {
		t.Error("repositories should be listed in ingestion order")
	}

	listCategory = "database"
	out, err = run(t, listCmd, runList)
	if err != nil {
		t.Fatalf("runList(--category) error: %v", err)
	}
	if strings.Contains(out, "crawler") || !strings.Contains(out, "pgkit") {
		t.Errorf("category filter not applied:\n%s", out)
	}
}

func TestAnalyze_EmptyCatalogue(t *testing.T) {
	setupCatalogue(t)

	_, err := run(t, analyzeCmd, runAnalyze)
	ue, ok := toUserError(err).(*clierrors.UserError)
	if !ok || ue.ExitCode != clierrors.ExitNotFound {
		t.Fatalf("expected not-found UserError, got %v", err)
	}
}

func TestAnalyze_ComparesSharedCategories(t *testing.T) {
	dir := setupCatalogue(t)
	seedCatalogue(t, dir)
	analyzeNeeds = "crawl javascript sites"

	out, err := run(t, analyzeCmd, runAnalyze)
	if err != nil {
		t.Fatalf("runAnalyze() error: %v", err)
	}
	if !strings.Contains(out, "Comparison: web-scraping") {
		t.Errorf("expected a web-scraping comparison:\n%s", out)
	}
	if strings.Contains(out, "Comparison: database") {
		t.Errorf("single-member category must not be compared:\n%s", out)
	}

	out, err = run(t, categoriesCmd, runCategories)
	if err != nil {
		t.Fatalf("runCategories() error: %v", err)
	}
	if !strings.Contains(out, "web-scraping") || !strings.Contains(out, "database") {
		t.Errorf("categories not registered:\n%s", out)
	}

	out, err = run(t, categoryCmd, runCategory, "web-scraping")
	if err != nil {
		t.Fatalf("runCategory() error: %v", err)
	}
	for _, want := range []string{"Category: web-scraping (2 repositories", "crawlSite", "scrapeAll", "Comparisons (1 stored)"} {
		if !strings.Contains(out, want) {
			t.Errorf("category report missing %q:\n%s", want, out)
		}
	}
}

func TestCategory_Unknown(t *testing.T) {
	setupCatalogue(t)

	out, err := run(t, categoryCmd, runCategory, "quantum")
	if err != nil {
		t.Fatalf("unknown category should not error: %v", err)
	}
	if !strings.Contains(out, `No repositories in category "quantum"`) {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestTools(t *testing.T) {
	dir := setupCatalogue(t)
	seedCatalogue(t, dir)
	jsonOutput = true

	out, err := run(t, toolsCmd, runTools)
	if err != nil {
		t.Fatalf("runTools() error: %v", err)
	}
	var list struct {
		TotalTools   int `json:"totalTools"`
		Repositories []struct {
			Repository string `json:"repository"`
		} `json:"repositories"`
	}
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	// crawlSite, scrapeAll + parsePage, and the synthetic pgkit service entry
	if list.TotalTools != 4 {
		t.Errorf("TotalTools = %d, want 4", list.TotalTools)
	}
	if len(list.Repositories) != 3 {
		t.Errorf("expected 3 repository groups, got %d", len(list.Repositories))
	}
}

func TestStatus(t *testing.T) {
	dir := setupCatalogue(t)
	seedCatalogue(t, dir)
	jsonOutput = true

	out, err := run(t, statusCmd, runStatus)
	if err != nil {
		t.Fatalf("runStatus() error: %v", err)
	}
	var st statusOutput
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if st.AnalyzerMode != "deterministic" {
		t.Errorf("AnalyzerMode = %q, want deterministic", st.AnalyzerMode)
	}
	if st.Counts.Repositories != 3 || st.Counts.Processed != 3 {
		t.Errorf("unexpected counts: %+v", st.Counts)
	}
	if st.WatcherActive {
		t.Error("no watcher should be running")
	}
	if !strings.HasPrefix(st.Database, filepath.Join(dir, "data")) {
		t.Errorf("Database = %q, want under the data dir", st.Database)
	}
}

func TestSearch(t *testing.T) {
	dir := setupCatalogue(t)
	seedCatalogue(t, dir)

	out, err := run(t, searchCmd, runSearch, "puppeteer")
	if err != nil {
		t.Fatalf("runSearch() error: %v", err)
	}
	if !strings.Contains(out, "crawler") {
		t.Errorf("expected crawler hit:\n%s", out)
	}

	searchKind = "bogus"
	_, err = run(t, searchCmd, runSearch, "puppeteer")
	var ue *clierrors.UserError
	if !errors.As(err, &ue) || ue.ExitCode != clierrors.ExitInput {
		t.Errorf("expected input error for bad --kind, got %v", err)
	}
}

func TestMetricsFile(t *testing.T) {
	dir := setupCatalogue(t)
	metricsFile = filepath.Join(dir, "metrics.prom")

	if _, err := run(t, ingestCmd, runIngest, urlPG); err != nil {
		t.Fatalf("runIngest() error: %v", err)
	}

	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(data), `reposcope_ingest_results_total{outcome="success"} 1`) {
		t.Errorf("unexpected metrics:\n%s", data)
	}
}

func TestMetricsFile_UnwritablePathFailsCommand(t *testing.T) {
	dir := setupCatalogue(t)
	metricsFile = filepath.Join(dir, "no-such-dir", "metrics.prom")

	_, err := run(t, ingestCmd, runIngest, urlPG)
	var ue *clierrors.UserError
	if !errors.As(err, &ue) || ue.ExitCode != clierrors.ExitConfig {
		t.Fatalf("expected config UserError for unwritable metrics file, got %v", err)
	}
	if _, statErr := os.Stat(metricsFile); !os.IsNotExist(statErr) {
		t.Errorf("metrics file should not exist, stat error = %v", statErr)
	}

	// The ingestion itself still succeeded and was committed.
	metricsFile = ""
	jsonOutput = true
	out, err := run(t, statusCmd, runStatus)
	if err != nil {
		t.Fatalf("runStatus() error: %v", err)
	}
	var st statusOutput
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Counts.Repositories != 1 {
		t.Errorf("Repositories = %d, want 1", st.Counts.Repositories)
	}
}
