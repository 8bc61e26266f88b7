package reindex

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress redraws a single status line as a run moves through its batches.
// A nil *Progress discards every update.
type Progress struct {
	mu       sync.Mutex
	w        io.Writer
	total    int
	batches  int
	batch    int
	handled  int
	failures int
	start    time.Time
}

// NewProgress starts reporting a run of total documents split into batches.
func NewProgress(w io.Writer, total, batches int) *Progress {
	return &Progress{
		w:       w,
		total:   total,
		batches: max(batches, 1),
		start:   time.Now(),
	}
}

// StartBatch moves to the n-th batch, counting from 1.
func (p *Progress) StartBatch(n int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batch = min(n, p.batches)
	p.draw()
}

// Done records one handled document. A non-nil err counts as a failure.
func (p *Progress) Done(err error) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handled = min(p.handled+1, p.total)
	if err != nil {
		p.failures++
	}
	p.draw()
}

// Finish redraws the last line, terminates it with the elapsed time and
// returns that duration.
func (p *Progress) Finish() time.Duration {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	elapsed := time.Since(p.start)
	p.draw()
	fmt.Fprintf(p.w, " in %s\n", elapsed.Round(time.Millisecond))
	return elapsed
}

// draw must be called with mu held.
func (p *Progress) draw() {
	pct := 100.0
	if p.total > 0 {
		pct = float64(p.handled) / float64(p.total) * 100
	}
	fmt.Fprintf(p.w, "\rRe-indexing batch %d/%d: %d/%d documents (%.1f%%), %d failed",
		p.batch, p.batches, p.handled, p.total, pct, p.failures)
}
