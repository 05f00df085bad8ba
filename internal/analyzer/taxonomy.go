package analyzer

// CategoryOther is the catch-all category.
const CategoryOther = "other"

// Category is a taxonomy entry with the keywords used for offline scoring.
type Category struct {
	Name     string
	Keywords []string
}

// taxonomy order matters: ties are broken by the first-declared category.
var taxonomy = []Category{
	{"web-scraping", []string{"scrape", "crawler", "puppeteer", "cheerio", "playwright"}},
	{"data-processing", []string{"data", "process", "transform", "etl", "pipeline"}},
	{"api-integration", []string{"api", "rest", "graphql", "endpoint", "fetch"}},
	{"database", []string{"database", "sql", "mongodb", "postgres", "sqlite"}},
	{"file-management", []string{"file", "fs", "storage", "upload", "download"}},
	{"cloud-services", []string{"aws", "azure", "gcp", "cloud", "s3"}},
	{"ai-ml", []string{"ai", "ml", "machine learning", "tensorflow", "openai"}},
	{"developer-tools", []string{"dev", "tool", "utility", "helper", "mcp"}},
	{"communication", []string{"chat", "message", "email", "notification", "slack"}},
	{CategoryOther, nil},
}

// Categories returns the taxonomy names in declaration order.
func Categories() []string {
	names := make([]string, len(taxonomy))
	for i, c := range taxonomy {
		names[i] = c.Name
	}
	return names
}

// IsCategory reports whether name belongs to the taxonomy.
func IsCategory(name string) bool {
	for _, c := range taxonomy {
		if c.Name == name {
			return true
		}
	}
	return false
}
