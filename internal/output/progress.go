package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY returns true if the given writer exposes an Fd() method
// (e.g. *os.File) and that fd is a terminal. Falls back to false for
// plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// ProgressBar tracks a batch of repositories.
// Example: [=========>          ]  4/9 owner/repo
type ProgressBar struct {
	mu      sync.Mutex
	w       io.Writer
	total   int
	current int
	label   string
	width   int
	tty     bool
}

// NewProgress creates a progress bar for total items writing to w.
// On a non-terminal writer each step is printed on its own line.
func NewProgress(w io.Writer, total int) *ProgressBar {
	return &ProgressBar{
		w:     w,
		total: total,
		width: 30,
		tty:   writerIsTTY(w),
	}
}

// Step records one finished item and redraws the bar with label.
func (p *ProgressBar) Step(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current < p.total {
		p.current++
	}
	p.label = label
	p.render()
}

// Current returns the number of finished items.
func (p *ProgressBar) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Finish ends the bar's line on a terminal.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty {
		fmt.Fprintln(p.w)
	}
}

// render draws the bar (must be called with lock held).
func (p *ProgressBar) render() {
	filled := 0
	if p.total > 0 {
		filled = p.current * p.width / p.total
	}

	var bar strings.Builder
	bar.WriteString("[")
	for i := 0; i < p.width; i++ {
		switch {
		case i < filled-1:
			bar.WriteString("=")
		case i == filled-1:
			bar.WriteString(">")
		default:
			bar.WriteString(" ")
		}
	}
	bar.WriteString("]")

	digits := len(fmt.Sprint(p.total))
	line := fmt.Sprintf("%s %*d/%d %s", bar.String(), digits, p.current, p.total, p.label)
	if p.tty {
		// Pad so a shorter label fully overwrites the previous one.
		fmt.Fprintf(p.w, "\r%-*s", p.width+digits*2+40, line)
		return
	}
	fmt.Fprintln(p.w, line)
}

// Spinner shows elapsed time while a slow step (an analyzer call) runs.
// Example: |  Comparing repositories (5s elapsed)
type Spinner struct {
	mu      sync.Mutex
	w       io.Writer
	message string
	running bool
	done    chan struct{}
	started time.Time
}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{w: w, message: message}
}

// Start begins the animation. On a non-TTY writer the message is printed
// once and no goroutine is started.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.started = time.Now()
	s.done = make(chan struct{})

	if !writerIsTTY(s.w) {
		fmt.Fprintf(s.w, "%s...\n", s.message)
		return
	}

	go s.spin(s.done)
}

func (s *Spinner) spin(done <-chan struct{}) {
	chars := []string{"|", "/", "-", "\\"}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for idx := 0; ; idx = (idx + 1) % len(chars) {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%s  %s (%ds elapsed)", chars[idx], s.message, int(time.Since(s.started).Seconds()))
			s.mu.Unlock()
		}
	}
}

// Stop ends the animation and clears the line. Calling Stop twice is safe.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.done)

	if writerIsTTY(s.w) {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len(s.message)+24))
	}
}
