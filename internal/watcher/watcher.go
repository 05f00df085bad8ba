package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blackwell-systems/reposcope/internal/pipeline"
)

// DefaultDebounce is how long the file must be quiet before it is reloaded.
const DefaultDebounce = 500 * time.Millisecond

// Ingester runs a batch of requests. *pipeline.Pipeline satisfies it.
type Ingester interface {
	Batch(ctx context.Context, reqs []pipeline.Request) []pipeline.Result
}

// Options tunes a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger

	// OnBatch, if set, receives the results of every reload that ingested
	// at least one entry.
	OnBatch func([]pipeline.Result)
}

// Watcher reloads a batch file whenever it changes.
type Watcher struct {
	path     string
	ingester Ingester
	debounce time.Duration
	logger   *slog.Logger
	onBatch  func([]pipeline.Result)

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	done map[string]bool // trimmed urls ingested successfully this session
}

// New creates a Watcher for the batch file at path.
func New(path string, ing Ingester, opts Options) (*Watcher, error) {
	if ing == nil {
		return nil, errors.New("ingester cannot be nil")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve batch file path: %w", err)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     abs,
		ingester: ing,
		debounce: debounce,
		logger:   logger,
		onBatch:  opts.OnBatch,
		done:     make(map[string]bool),
	}, nil
}

// Process reloads the batch file and ingests entries not yet ingested
// successfully by this watcher. A malformed file is reported and left for
// the next change.
func (w *Watcher) Process(ctx context.Context) ([]pipeline.Result, error) {
	reqs, err := pipeline.LoadBatch(w.path)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	var pending []pipeline.Request
	for _, r := range reqs {
		if !w.done[strings.TrimSpace(r.URL)] {
			pending = append(pending, r)
		}
	}
	w.mu.Unlock()

	if len(pending) == 0 {
		return nil, nil
	}
	w.logger.Info("ingesting batch entries", "file", w.path, "pending", len(pending))

	results := w.ingester.Batch(ctx, pending)

	w.mu.Lock()
	for _, r := range results {
		if r.Success {
			w.done[r.URL] = true
		}
	}
	w.mu.Unlock()

	if w.onBatch != nil {
		w.onBatch(results)
	}
	return results, nil
}

// Start processes the file once and then watches it until Stop is called or
// ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.fsw = fsw

	ctx, w.cancel = context.WithCancel(ctx)

	if _, err := w.Process(ctx); err != nil {
		w.logger.Warn("initial batch load failed", "file", w.path, "error", err)
	}

	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	var settle <-chan time.Time
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				settle = time.After(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		case <-settle:
			settle = nil
			if _, err := w.Process(ctx); err != nil {
				w.logger.Warn("batch reload failed", "file", w.path, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the watcher and waits for an in-flight reload to finish.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	var err error
	if w.fsw != nil {
		err = w.fsw.Close()
	}
	w.wg.Wait()
	return err
}
