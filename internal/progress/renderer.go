package progress

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mrz1836/go-sanitize"
	"golang.org/x/time/rate"
)

// ClearFunc erases the previously rendered frame on w. wait asks the display
// to hold the clear until the next frame arrives.
type ClearFunc func(w io.Writer, wait bool) error

// ClearLine erases the current line and returns the cursor to column 0.
// The erase is emitted right before the next frame, so wait needs no
// special handling.
func ClearLine(w io.Writer, _ bool) error {
	_, err := io.WriteString(w, "\x1b[2K\r")
	return err
}

// Renderer draws frames of one progress bar onto a writer. It is safe for
// concurrent use; frames are written whole.
type Renderer struct {
	mu     sync.Mutex
	w      io.Writer
	size   int
	mode   Mode
	clear  ClearFunc
	label  string
	clamp  bool
	cr     bool
	lim    *rate.Limiter
	lookup func(string) (string, bool)

	pending    float64
	hasPending bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSize sets the bar width. Zero and negative widths are accepted.
func WithSize(size int) Option {
	return func(r *Renderer) { r.size = size }
}

// WithMode pins the output surface instead of detecting it.
func WithMode(m Mode) Option {
	return func(r *Renderer) { r.mode = m }
}

// WithClearer replaces the notebook clear primitive.
func WithClearer(fn ClearFunc) Option {
	return func(r *Renderer) {
		if fn != nil {
			r.clear = fn
		}
	}
}

// WithLabel prints label, flattened to one line, in front of the bar.
func WithLabel(label string) Option {
	return func(r *Renderer) {
		r.label = strings.TrimSpace(sanitize.SingleLine(label))
	}
}

// WithClamp limits progress to [0,1] before drawing.
func WithClamp(on bool) Option {
	return func(r *Renderer) { r.clamp = on }
}

// WithCarriageReturn starts every terminal frame with '\r' so successive
// frames overwrite one line. Notebook frames rely on the clear instead.
func WithCarriageReturn(on bool) Option {
	return func(r *Renderer) { r.cr = on }
}

// WithThrottle holds back frames arriving less than d after the previous
// one. Completed frames (progress >= 1) are always drawn, and the last held
// frame is drawn by Flush or Newline.
func WithThrottle(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.lim = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// withLookup overrides the environment lookup used by ModeAuto.
func withLookup(fn func(string) (string, bool)) Option {
	return func(r *Renderer) { r.lookup = fn }
}

// New returns a Renderer writing to w.
func New(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{
		w:      w,
		size:   DefaultSize,
		clear:  ClearLine,
		lookup: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Size returns the configured bar width.
func (r *Renderer) Size() int {
	return r.size
}

// Notebook reports whether the next frame will be drawn in notebook mode.
func (r *Renderer) Notebook() bool {
	m := r.mode
	if m == ModeAuto {
		m = DetectMode(r.lookup)
	}
	return m == ModeNotebook
}

// Render draws one frame for progress. The only error source is the writer.
func (r *Renderer) Render(progress float64) error {
	_, err := r.Draw(progress)
	return err
}

// Draw is Render reporting whether the frame reached the writer. A frame
// suppressed by the throttle is kept as pending and drawn by Flush or
// Newline unless a later frame replaces it.
func (r *Renderer) Draw(progress float64) (bool, error) {
	if r.clamp {
		progress = Clamp(progress)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lim != nil && progress < 1 && !r.lim.Allow() {
		r.pending, r.hasPending = progress, true
		return false, nil
	}
	return true, r.draw(progress)
}

// Flush draws the pending throttled frame, if any, and reports whether it
// did.
func (r *Renderer) Flush() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasPending {
		return false, nil
	}
	return true, r.draw(r.pending)
}

// Newline draws any pending frame and ends the current bar line.
func (r *Renderer) Newline() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasPending {
		if err := r.draw(r.pending); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(r.w, "\n"); err != nil {
		return err
	}
	return flushWriter(r.w)
}

// draw writes one frame. r.mu must be held.
func (r *Renderer) draw(progress float64) error {
	r.hasPending = false

	line := Format(progress, r.size)
	if r.label != "" {
		line = r.label + " " + line
	}
	if r.Notebook() {
		if err := r.clear(r.w, true); err != nil {
			return err
		}
	} else if r.cr {
		line = "\r" + line
	}
	if _, err := io.WriteString(r.w, line); err != nil {
		return err
	}
	return flushWriter(r.w)
}

// flushWriter pushes buffered output (e.g. a *bufio.Writer) through.
// os.File is unbuffered and needs nothing. Sync is not used: it fails on
// terminals and pipes.
func flushWriter(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
