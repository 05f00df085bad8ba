// Package extractor turns a repository URL into one flattened text blob.
//
// The repository is shallow-cloned into a temporary directory and handed to
// an external flattening command (repomix by default). When that command is
// missing or fails, a minimal blob is synthesised from the file listing,
// well-known manifests and the README.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultFlattenCommand is used when Options.FlattenCommand is empty.
const DefaultFlattenCommand = "npx repomix"

// ErrExtraction is returned when no content could be produced for a URL.
var ErrExtraction = errors.New("content extraction failed")

// manifestFiles are copied into the synthesised blob when present.
var manifestFiles = []string{"package.json", "go.mod", "pyproject.toml", "Cargo.toml", "README.md"}

var skippedDirs = map[string]bool{".git": true, "node_modules": true}

const maxListedFiles = 500

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Options configures an Extractor.
type Options struct {
	FlattenCommand string          // command line, split on whitespace
	OutputDir      string          // flattened output is kept here as <name>.txt
	Executor       CommandExecutor // nil means DefaultExecutor
	Logger         *slog.Logger
}

// Extractor fetches flattened repository content.
type Extractor struct {
	executor  CommandExecutor
	git       *GitClient
	flatten   []string
	outputDir string
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	executor := opts.Executor
	if executor == nil {
		executor = &DefaultExecutor{}
	}
	command := opts.FlattenCommand
	if strings.TrimSpace(command) == "" {
		command = DefaultFlattenCommand
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(os.TempDir(), "reposcope-outputs")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{
		executor:  executor,
		git:       NewGitClient(executor),
		flatten:   strings.Fields(command),
		outputDir: outputDir,
		logger:    logger,
		now:       time.Now,
	}
}

// OutputPath returns where the flattened output for name is written.
func (e *Extractor) OutputPath(name string) string {
	return filepath.Join(e.outputDir, outputFileName(name))
}

// Fetch clones url and returns its flattened content. Clone failures and
// empty results are reported as ErrExtraction.
func (e *Extractor) Fetch(ctx context.Context, url, name string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("%w: empty repository url", ErrExtraction)
	}

	tmp, err := os.MkdirTemp("", "reposcope-clone-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	repoDir := filepath.Join(tmp, "repo")
	e.logger.Info("cloning repository", "url", url)
	if err := e.git.Clone(ctx, url, repoDir); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtraction, url, err)
	}
	if sha, err := e.git.HeadCommit(ctx, repoDir); err == nil {
		e.logger.Debug("cloned repository", "url", url, "commit", sha)
	}

	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputFile := e.OutputPath(name)

	args := append(append([]string{}, e.flatten[1:]...), repoDir, "-o", outputFile)
	if _, err := e.executor.Run(ctx, "", e.flatten[0], args...); err != nil {
		e.logger.Warn("flattening command failed, writing basic output",
			"command", strings.Join(e.flatten, " "), "error", err)
		if err := e.writeBasicOutput(repoDir, outputFile); err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtraction, err)
		}
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read output: %v", ErrExtraction, err)
	}
	content := strings.ToValidUTF8(string(data), "\uFFFD")
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: %s produced no content", ErrExtraction, url)
	}
	return content, nil
}

// writeBasicOutput synthesises a blob from the checkout in repoDir.
func (e *Extractor) writeBasicOutput(repoDir, outputFile string) error {
	blob, err := BasicOutput(repoDir, e.now())
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputFile, []byte(blob), 0o644); err != nil {
		return fmt.Errorf("failed to write basic output: %w", err)
	}
	return nil
}

// BasicOutput builds the minimal blob for a checkout: a header, the file
// listing and the contents of any manifest files.
func BasicOutput(repoDir string, generated time.Time) (string, error) {
	var files []string
	err := filepath.WalkDir(repoDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(repoDir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to list files: %w", err)
	}

	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 80)

	var b strings.Builder
	b.WriteString("Repository Analysis Output\n")
	fmt.Fprintf(&b, "Generated at: %s\n", generated.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "\n%s\n\n", rule)
	fmt.Fprintf(&b, "Total files: %d\n\n", len(files))

	for i, f := range files {
		if i == maxListedFiles {
			fmt.Fprintf(&b, "... and %d more\n", len(files)-maxListedFiles)
			break
		}
		fmt.Fprintf(&b, "%s\n", f)
	}

	for _, name := range manifestFiles {
		data, err := os.ReadFile(filepath.Join(repoDir, name))
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n%s\n", name, thin)
		b.Write(data)
		fmt.Fprintf(&b, "\n%s\n\n", rule)
	}

	return b.String(), nil
}

func outputFileName(name string) string {
	safe := strings.Trim(unsafeName.ReplaceAllString(name, "-"), "-.")
	if safe == "" {
		safe = "repository"
	}
	return safe + ".txt"
}
