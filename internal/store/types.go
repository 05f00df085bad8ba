package store

import "time"

// Repository is a tracked source repository.
type Repository struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	URL         string         `json:"url"`
	Description string         `json:"description"`
	RawContent  string         `json:"-"`            // empty until fetched
	Category    string         `json:"category"`     // empty until classified
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
}

// HasContent reports whether the repository's content blob has been fetched.
func (r *Repository) HasContent() bool {
	return r.ProcessedAt != nil
}

// Tool is a capability extracted from one repository.
type Tool struct {
	ID           int64          `json:"id"`
	RepositoryID int64          `json:"repository_id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Type         string         `json:"type"` // "function", "api", "service", "utility", ...
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ToolWithRepository is a Tool joined with its owning repository.
type ToolWithRepository struct {
	Tool
	RepositoryName string `json:"repository_name"`
	RepositoryURL  string `json:"repository_url"`
}

// Category is a label bucket.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// AnalysisResult is an audit record of one analyzer invocation.
type AnalysisResult struct {
	ID           int64     `json:"id"`
	RepositoryID int64     `json:"repository_id"`
	AnalysisType string    `json:"analysis_type"` // "categorization" or "tool_extraction"
	Result       string    `json:"result"`
	Score        *float64  `json:"score,omitempty"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
}

// Analysis types recorded by the ingestion pipeline.
const (
	AnalysisCategorization = "categorization"
	AnalysisToolExtraction = "tool_extraction"
)

// Comparison is the output of comparing all repositories within a category.
type Comparison struct {
	ID              int64     `json:"id"`
	Category        string    `json:"category"`
	RepositoryIDs   []int64   `json:"repository_ids"`
	Result          string    `json:"comparison_result"`
	Recommendations string    `json:"recommendations"`
	ComparedAt      time.Time `json:"compared_at"`
}
