package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformedBatchInput is returned when a batch file cannot be decoded
// into a list of requests.
var ErrMalformedBatchInput = errors.New("malformed batch input")

// LoadBatch reads a batch file. Files ending in .json are decoded as JSON;
// anything else is decoded as YAML, which also accepts JSON documents.
func LoadBatch(path string) ([]Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return ParseBatch(data, format)
}

// ParseBatch decodes a list of {url, name, description} entries. Every
// entry must carry a url.
func ParseBatch(data []byte, format string) ([]Request, error) {
	var reqs []Request
	var err error
	switch format {
	case "json":
		err = json.Unmarshal(data, &reqs)
	case "yaml":
		err = yaml.Unmarshal(data, &reqs)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrMalformedBatchInput, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBatchInput, err)
	}

	for i, r := range reqs {
		if strings.TrimSpace(r.URL) == "" {
			return nil, fmt.Errorf("%w: entry %d has no url", ErrMalformedBatchInput, i)
		}
	}
	return reqs, nil
}
