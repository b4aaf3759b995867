// Package runner executes a batch of command lines on a bounded worker pool
// and reports completion through a progress counter.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync/atomic"

	"github.com/kballard/go-shellquote"
	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sigman78/cmdbar/internal/progress"
)

var (
	ErrInvalidThreads = errors.New("threads must be greater than 0")
	ErrEmptyCommand   = errors.New("empty command")
)

// Config holds the runtime configuration for Run.
type Config struct {
	Threads     int
	StopOnError bool

	// Shell, when set, runs each line as `Shell -c line` instead of
	// splitting it into argv.
	Shell string

	// Stdout and Stderr receive command output. nil discards it. Writers
	// other than *os.File must be safe for concurrent use.
	Stdout io.Writer
	Stderr io.Writer

	Log logrus.FieldLogger // if nil, the logrus standard logger is used
}

// Result summarises a finished batch.
type Result struct {
	Total  int
	Failed int
}

// CommandError reports a command line that could not be started or exited
// unsuccessfully.
type CommandError struct {
	Line string
	Err  error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q: %v", e.Line, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ReadCommands reads one command per line. Blank lines and lines starting
// with '#' are skipped.
func ReadCommands(r io.Reader) ([]string, error) {
	var cmds []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmds = append(cmds, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read commands: %w", err)
	}
	return cmds, nil
}

// Run executes commands concurrently, at most cfg.Threads at a time, and
// calls c.Inc as each one finishes. Failures are counted unless
// cfg.StopOnError is set, in which case the first failure cancels the
// remaining commands and is returned.
func Run(ctx context.Context, cfg *Config, commands []string, c progress.Counter) (Result, error) {
	res := Result{Total: len(commands)}
	if cfg.Threads <= 0 {
		return res, ErrInvalidThreads
	}
	if c == nil {
		c = (*progress.Tracker)(nil)
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	pool, err := ants.NewPool(cfg.Threads)
	if err != nil {
		return res, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	g, ctx := errgroup.WithContext(ctx)
	var failed atomic.Int32

	for _, line := range commands {
		line := line
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errCh := make(chan error, 1)
			if err := pool.Submit(func() {
				errCh <- runOne(ctx, cfg, line)
			}); err != nil {
				return fmt.Errorf("submit task: %w", err)
			}
			if err := <-errCh; err != nil {
				failed.Add(1)
				if cfg.StopOnError {
					return err
				}
				log.WithError(err).Debug("command failed")
			} else {
				log.WithField("command", line).Debug("command done")
			}
			c.Inc()
			return nil
		})
	}

	err = g.Wait()
	res.Failed = int(failed.Load())
	if err != nil {
		return res, err
	}
	c.Finish()
	return res, nil
}

func runOne(ctx context.Context, cfg *Config, line string) error {
	argv, err := commandArgs(cfg.Shell, line)
	if err != nil {
		return &CommandError{Line: line, Err: err}
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = cfg.Stdout
	cmd.Stderr = cfg.Stderr
	if err := cmd.Run(); err != nil {
		return &CommandError{Line: line, Err: err}
	}
	return nil
}

// commandArgs builds argv for line, either through shell or by splitting
// with POSIX shell quoting rules.
func commandArgs(shell, line string) ([]string, error) {
	if shell != "" {
		return []string{shell, "-c", line}, nil
	}
	argv, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	return argv, nil
}
