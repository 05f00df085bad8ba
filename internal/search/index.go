// Package search maintains a full-text index of the catalogue. Repositories
// and tools are both indexed; the index is rebuilt from the store by Sync.
package search

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/blackwell-systems/reposcope/internal/store"
)

// Document kinds.
const (
	KindRepository = "repository"
	KindTool       = "tool"
)

// Field names used in the mapping and in queries.
const (
	FieldKind        = "kind"
	FieldName        = "name"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldRepository  = "repository"
	FieldType        = "type"
	FieldURL         = "url"
	FieldContent     = "content"
)

// maxIndexedContent caps how much of a repository's content is indexed.
const maxIndexedContent = 20000

// truncateContent cuts s to at most n bytes without splitting a rune.
func truncateContent(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// DefaultLimit is used when Query.Limit is not positive.
const DefaultLimit = 20

// ErrEmptyQuery is returned by Search for a blank query string.
var ErrEmptyQuery = errors.New("empty search query")

// Document is one indexed entity.
type Document struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Repository  string `json:"repository"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Content     string `json:"content"`
}

// Index wraps a bleve index fed from a Store.
type Index struct {
	index bleve.Index
	store *store.Store
}

// NewMapping returns the index mapping for catalogue documents.
func NewMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	for _, f := range []string{FieldKind, FieldCategory, FieldRepository, FieldType} {
		m := bleve.NewTextFieldMapping()
		m.Analyzer = keyword.Name
		m.Store = true
		doc.AddFieldMappingsAt(f, m)
	}

	for _, f := range []string{FieldName, FieldDescription} {
		m := bleve.NewTextFieldMapping()
		m.Analyzer = standard.Name
		m.Store = true
		doc.AddFieldMappingsAt(f, m)
	}

	url := bleve.NewTextFieldMapping()
	url.Index = false
	url.Store = true
	doc.AddFieldMappingsAt(FieldURL, url)

	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = false
	doc.AddFieldMappingsAt(FieldContent, content)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = standard.Name
	return m
}

// Open opens the index at path, creating it if it does not exist.
func Open(path string, s *store.Store) (*Index, error) {
	idx, err := bleve.Open(path)
	if err != nil {
		idx, err = bleve.New(path, NewMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create search index: %w", err)
		}
	}
	return &Index{index: idx, store: s}, nil
}

// NewMemory creates an in-memory index.
func NewMemory(s *store.Store) (*Index, error) {
	idx, err := bleve.NewMemOnly(NewMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}
	return &Index{index: idx, store: s}, nil
}

// Close closes the underlying index.
func (i *Index) Close() error {
	return i.index.Close()
}

func repoDocID(id int64) string { return "repo:" + strconv.FormatInt(id, 10) }
func toolDocID(id int64) string { return "tool:" + strconv.FormatInt(id, 10) }

// Sync indexes every repository and tool in the store and removes documents
// whose source rows no longer exist. It returns the number of documents
// indexed.
func (i *Index) Sync() (int, error) {
	repos, err := i.store.ListRepositories()
	if err != nil {
		return 0, fmt.Errorf("failed to list repositories: %w", err)
	}
	tools, err := i.store.ListAllTools()
	if err != nil {
		return 0, fmt.Errorf("failed to list tools: %w", err)
	}

	live := make(map[string]bool, len(repos)+len(tools))
	categories := make(map[int64]string, len(repos))
	batch := i.index.NewBatch()

	for _, r := range repos {
		id := repoDocID(r.ID)
		live[id] = true
		categories[r.ID] = r.Category
		content := truncateContent(r.RawContent, maxIndexedContent)
		doc := Document{
			Kind:        KindRepository,
			Name:        r.Name,
			Description: r.Description,
			Category:    r.Category,
			Repository:  r.Name,
			URL:         r.URL,
			Content:     content,
		}
		if err := batch.Index(id, doc); err != nil {
			return 0, fmt.Errorf("failed to index %s: %w", id, err)
		}
	}

	for _, t := range tools {
		id := toolDocID(t.ID)
		live[id] = true
		doc := Document{
			Kind:        KindTool,
			Name:        t.Name,
			Description: t.Description,
			Category:    categories[t.RepositoryID],
			Repository:  t.RepositoryName,
			Type:        t.Type,
			URL:         t.RepositoryURL,
		}
		if err := batch.Index(id, doc); err != nil {
			return 0, fmt.Errorf("failed to index %s: %w", id, err)
		}
	}

	stale, err := i.staleIDs(live)
	if err != nil {
		return 0, err
	}
	for _, id := range stale {
		batch.Delete(id)
	}

	if err := i.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("failed to write search index: %w", err)
	}
	return len(live), nil
}

// staleIDs returns indexed document ids that are not in live.
func (i *Index) staleIDs(live map[string]bool) ([]string, error) {
	count, err := i.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed documents: %w", err)
	}

	var stale []string
	for _, hit := range res.Hits {
		if !live[hit.ID] {
			stale = append(stale, hit.ID)
		}
	}
	return stale, nil
}

// Query describes a catalogue search.
type Query struct {
	Text     string
	Kind     string // KindRepository, KindTool or empty for both
	Category string
	Limit    int
}

// Hit is one search result.
type Hit struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Repository  string  `json:"repository"`
	Type        string  `json:"type,omitempty"`
	URL         string  `json:"url"`
	Score       float64 `json:"score"`
}

// Results is a page of hits plus the total match count.
type Results struct {
	Total uint64 `json:"total"`
	Hits  []Hit  `json:"hits"`
}

// Search runs q against the index. Call Sync first to pick up store changes.
func (i *Index) Search(q Query) (*Results, error) {
	if q.Text == "" {
		return nil, ErrEmptyQuery
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	req := bleve.NewSearchRequest(buildQuery(q))
	req.Size = limit
	req.Fields = []string{FieldKind, FieldName, FieldDescription, FieldCategory, FieldRepository, FieldType, FieldURL}

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := &Results{Total: res.Total, Hits: make([]Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		out.Hits = append(out.Hits, Hit{
			ID:          h.ID,
			Kind:        stringField(h.Fields, FieldKind),
			Name:        stringField(h.Fields, FieldName),
			Description: stringField(h.Fields, FieldDescription),
			Category:    stringField(h.Fields, FieldCategory),
			Repository:  stringField(h.Fields, FieldRepository),
			Type:        stringField(h.Fields, FieldType),
			URL:         stringField(h.Fields, FieldURL),
			Score:       h.Score,
		})
	}
	return out, nil
}

func buildQuery(q Query) query.Query {
	name := bleve.NewMatchQuery(q.Text)
	name.SetField(FieldName)
	name.SetBoost(3.0)

	desc := bleve.NewMatchQuery(q.Text)
	desc.SetField(FieldDescription)
	desc.SetBoost(2.0)

	content := bleve.NewMatchQuery(q.Text)
	content.SetField(FieldContent)

	text := bleve.NewDisjunctionQuery(name, desc, content)
	if q.Kind == "" && q.Category == "" {
		return text
	}

	must := []query.Query{text}
	if q.Kind != "" {
		kind := bleve.NewTermQuery(q.Kind)
		kind.SetField(FieldKind)
		must = append(must, kind)
	}
	if q.Category != "" {
		cat := bleve.NewTermQuery(q.Category)
		cat.SetField(FieldCategory)
		must = append(must, cat)
	}
	return bleve.NewConjunctionQuery(must...)
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
