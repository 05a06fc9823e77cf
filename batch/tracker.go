package batch

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Tracker prints a single-line progress counter for terminal output.
type Tracker struct {
	writer         io.Writer
	label          string
	total          int
	current        int
	failed         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewTracker creates a tracker.
// writer: where to write progress output (typically os.Stderr)
// total: total number of items to process
// reportInterval: report progress every N items
func NewTracker(writer io.Writer, label string, total, reportInterval int) *Tracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &Tracker{
		writer:         writer,
		label:          label,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = time.Now()
	t.started = true
	t.current = 0
	t.failed = 0
	t.lastReported = 0
}

// Update sets the number of finished items and how many of them failed.
func (t *Tracker) Update(current, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return
	}

	t.current = min(current, t.total)
	t.failed = failed

	if t.current-t.lastReported >= t.reportInterval {
		t.report()
		t.lastReported = t.current
	}
}

// Finish marks the run as complete and prints the final line.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return
	}

	t.current = t.total
	t.report()
	fmt.Fprintln(t.writer)
	t.started = false
}

// Elapsed returns the time elapsed since Start was called.
func (t *Tracker) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return 0
	}
	return time.Since(t.startTime)
}

// report prints the current progress. Must be called with lock held.
func (t *Tracker) report() {
	elapsed := time.Since(t.startTime)
	rate := float64(t.current) / max(elapsed.Seconds(), 1e-9)

	percentage := 0.0
	if t.total > 0 {
		percentage = float64(t.current) / float64(t.total) * 100.0
	}

	fmt.Fprintf(t.writer, "\r%s: %d/%d (%.1f%%, %d failed) - %.1f items/s",
		t.label, t.current, t.total, percentage, t.failed, rate)
}
