package progress

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mrz1836/go-sanitize"
	"github.com/schollz/progressbar/v3"
)

// Counter advances a bar one unit of work at a time.
type Counter interface {
	Inc()
	Finish()
}

// Tracker is a Counter drawing done/total through a Renderer.
// A nil *Tracker is valid; all methods are no-ops, which keeps callers free
// of checks when output is disabled.
type Tracker struct {
	rend     *Renderer
	total    int64
	done     atomic.Int64
	finished atomic.Bool

	// mu orders counting with drawing so frames never go backwards.
	mu sync.Mutex
}

// NewTracker returns a Tracker for total units and draws the empty bar.
func NewTracker(rend *Renderer, total int) *Tracker {
	t := &Tracker{rend: rend, total: int64(total)}
	if t.total > 0 {
		_ = rend.Render(0)
	}
	return t
}

// Done returns the number of completed units.
func (t *Tracker) Done() int {
	if t == nil {
		return 0
	}
	return int(t.done.Load())
}

// Inc records one completed unit and redraws.
func (t *Tracker) Inc() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.done.Add(1)
	if t.total <= 0 || t.finished.Load() {
		return
	}
	if n > t.total {
		n = t.total
	}
	_ = t.rend.Render(float64(n) / float64(t.total))
}

// Finish draws the completed bar and ends the line. Only the first call
// has any effect.
func (t *Tracker) Finish() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.finished.CompareAndSwap(false, true) {
		return
	}
	_ = t.rend.Render(1)
	_ = t.rend.Newline()
}

// Fancy is a colour Counter backed by progressbar.
type Fancy struct {
	bar *progressbar.ProgressBar
}

// NewFancy creates a colour bar counting finished commands on w. Redraws
// are limited to one per throttle when throttle is positive.
func NewFancy(w io.Writer, total int, description string, throttle time.Duration) *Fancy {
	opts := []progressbar.Option{
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription("[green]" + sanitize.SingleLine(description) + "[reset]"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("cmd"),
		progressbar.OptionSetWidth(DefaultSize),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			_, _ = io.WriteString(w, "\n")
		}),
	}
	if throttle > 0 {
		opts = append(opts, progressbar.OptionThrottle(throttle))
	}
	return &Fancy{bar: progressbar.NewOptions(total, opts...)}
}

// Inc advances the bar by one unit.
func (f *Fancy) Inc() {
	if f == nil {
		return
	}
	_ = f.bar.Add(1)
}

// Finish completes the bar and moves to a new line.
func (f *Fancy) Finish() {
	if f == nil {
		return
	}
	_ = f.bar.Finish()
}
