// Package progress renders single-line textual progress bars and decides
// whether the output surface is a notebook cell or a plain terminal.
//
// The bar format is fixed:
//
//	[=====>     ] 50%
//
// The filled run is round(progress*size) '=' characters, followed by the '>'
// marker and size-filled spaces. Nothing is validated: progress outside
// [0,1] renders whatever the arithmetic yields, with each run of the bar
// capped at MaxRun characters.
package progress

import (
	"fmt"
	"math"
	"os"
	"strings"
)

// DefaultSize is the bar width used when none is given.
const DefaultSize = 30

// MaxRun caps the length of the fill and padding runs, so wildly out of
// range progress or width values cannot exhaust memory.
const MaxRun = 1 << 12

const (
	fillChar = "="
	markChar = ">"
	padChar  = " "
)

// Filled returns the number of fill characters for progress over size
// columns. Halves round to even. NaN and infinite products yield 0, and
// the result is bounded to [-MaxRun, MaxRun].
func Filled(progress float64, size int) int {
	v := math.RoundToEven(progress * float64(size))
	switch {
	case math.IsNaN(v), math.IsInf(v, 0):
		return 0
	case v > MaxRun:
		return MaxRun
	case v < -MaxRun:
		return -MaxRun
	}
	return int(v)
}

// Format returns the exact bytes Render writes for progress and size,
// without any notebook clear sequence or label.
func Format(progress float64, size int) string {
	filled := Filled(progress, size)

	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(repeat(fillChar, filled))
	b.WriteString(markChar)
	b.WriteString(repeat(padChar, size-filled))
	fmt.Fprintf(&b, "] %.0f%%", progress*100)
	return b.String()
}

// Render writes the bar for progress to stdout, clearing the previous frame
// first when running under a notebook. No newline is written, so callers
// driving a terminal position the cursor themselves.
func Render(progress float64, size int) {
	_ = New(os.Stdout, WithSize(size)).Render(progress)
}

// repeat is strings.Repeat with non-positive counts mapped to "" and
// counts above MaxRun truncated.
func repeat(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(s, min(n, MaxRun))
}

// Clamp limits progress to [0,1]. NaN becomes 0.
func Clamp(progress float64) float64 {
	switch {
	case math.IsNaN(progress), progress < 0:
		return 0
	case progress > 1:
		return 1
	}
	return progress
}
