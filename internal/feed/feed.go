// Package feed turns a stream of textual progress reports into bar frames.
package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sigman78/cmdbar/internal/progress"
)

// ErrInvalidValue is wrapped by every Parse failure.
var ErrInvalidValue = errors.New("invalid progress value")

// Parse reads one progress report. Accepted forms are a fraction ("0.42"),
// a percentage ("42%") and a done/total ratio ("21/50").
func Parse(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidValue)
	}

	if pct, ok := strings.CutSuffix(s, "%"); ok {
		v, err := parseFinite(pct)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidValue, s)
		}
		return v / 100, nil
	}

	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := parseFinite(num)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidValue, s)
		}
		d, err := parseFinite(den)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidValue, s)
		}
		if d == 0 {
			return 0, fmt.Errorf("%w: zero total in %q", ErrInvalidValue, s)
		}
		return n / d, nil
	}

	v, err := parseFinite(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidValue, s)
	}
	return v, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrRange
	}
	return v, nil
}

// Follow renders every parseable line of r until EOF and returns the number
// of frames drawn. Bad lines are logged and skipped. Cancellation is checked
// between lines. A frame held back by the renderer's throttle is drawn
// before returning, and when at least one frame was drawn the bar line is
// ended with a newline.
func Follow(ctx context.Context, r io.Reader, rend *progress.Renderer, log logrus.FieldLogger) (int, error) {
	frames := 0
	sc := bufio.NewScanner(r)
	var err error
	writeFailed := false
	for sc.Scan() {
		if err = ctx.Err(); err != nil {
			break
		}
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		v, perr := Parse(line)
		if perr != nil {
			log.WithError(perr).Debug("skipping line")
			continue
		}
		drawn, rerr := rend.Draw(v)
		if rerr != nil {
			err = fmt.Errorf("render: %w", rerr)
			writeFailed = true
			break
		}
		if drawn {
			frames++
		}
	}
	if err == nil {
		if serr := sc.Err(); serr != nil {
			err = fmt.Errorf("read: %w", serr)
		}
	}
	if writeFailed {
		return frames, err
	}

	drawn, ferr := rend.Flush()
	if ferr != nil {
		return frames, fmt.Errorf("render: %w", ferr)
	}
	if drawn {
		frames++
	}
	if frames > 0 {
		if nerr := rend.Newline(); nerr != nil && err == nil {
			err = fmt.Errorf("render: %w", nerr)
		}
	}
	return frames, err
}
