package progress

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// Mode selects how the renderer treats its output surface.
type Mode int

const (
	// ModeAuto resolves the surface from the environment on every render.
	ModeAuto Mode = iota
	// ModeTerminal relies on carriage-return overwrite; nothing is cleared.
	ModeTerminal
	// ModeNotebook clears the previous frame before each write.
	ModeNotebook
)

// Environment variables consulted by DetectMode.
const (
	EnvRenderMode    = "RENDER_MODE"
	// EnvJupyterParent is exported by Jupyter to every kernel it launches.
	EnvJupyterParent = "JPY_PARENT_PID"
)

// ErrUnknownMode is returned by ParseMode for unrecognised spellings.
var ErrUnknownMode = errors.New("unknown render mode")

func (m Mode) String() string {
	switch m {
	case ModeTerminal:
		return "terminal"
	case ModeNotebook:
		return "notebook"
	default:
		return "auto"
	}
}

// ParseMode parses auto|terminal|notebook (case-insensitive; "term" and
// "ipynb" are accepted aliases). The empty string is auto.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "terminal", "term":
		return ModeTerminal, nil
	case "notebook", "ipynb":
		return ModeNotebook, nil
	}
	return ModeAuto, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// DetectMode resolves the output surface using lookup (normally
// os.LookupEnv). It always returns ModeTerminal or ModeNotebook.
//
// An explicit RENDER_MODE wins; otherwise a Jupyter parent process marks the
// surface as a notebook. Anything missing or unreadable means terminal.
func DetectMode(lookup func(string) (string, bool)) Mode {
	if lookup == nil {
		return ModeTerminal
	}
	if v, ok := lookup(EnvRenderMode); ok {
		if m, err := ParseMode(v); err == nil && m != ModeAuto {
			return m
		}
	}
	if v, ok := lookup(EnvJupyterParent); ok && strings.TrimSpace(v) != "" {
		return ModeNotebook
	}
	return ModeTerminal
}

// InNotebook reports whether the current process writes to a notebook cell.
func InNotebook() bool {
	return DetectMode(os.LookupEnv) == ModeNotebook
}

// IsTerminal reports whether fd is a native or Cygwin/MSYS terminal.
func IsTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd)) || isatty.IsCygwinTerminal(fd)
}
