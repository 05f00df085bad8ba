package analyzer

// Classification is the structured result of Classify.
type Classification struct {
	Label     string   // one of the taxonomy names
	Rationale string   // free-text explanation, may be empty
	Score     *float64 // keyword coverage in offline mode, nil when remote
	Mode      string   // mode of the analyzer that produced it
}

// Text renders the classification the way it is stored as an analysis result.
func (c Classification) Text() string {
	if c.Rationale == "" {
		return c.Label
	}
	return c.Label + "\n\n" + c.Rationale
}

// ExtractedTool is one tool or function found in a repository.
type ExtractedTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Mode        string `json:"-"` // mode of the analyzer that produced it
}

// CategoryNarrative pairs a category with its comparison text.
type CategoryNarrative struct {
	Category  string `json:"category"`
	Narrative string `json:"narrative"`
}

// AggregateStats is the corpus summary handed to Recommend.
type AggregateStats struct {
	Categories      []string            `json:"categories"`
	RepositoryCount int                 `json:"totalRepositories"`
	ToolCount       int                 `json:"totalTools"`
	Comparisons     []CategoryNarrative `json:"comparisons"`
}
