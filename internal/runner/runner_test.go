package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"testing"

	"github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigman78/cmdbar/internal/progress"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
}

func newConfig(threads int) *Config {
	log, _ := test.NewNullLogger()
	return &Config{Threads: threads, Log: log}
}

func TestReadCommands(t *testing.T) {
	in := strings.NewReader("echo a\n\n  # comment\n  sleep 0  \nls\n")
	cmds, err := ReadCommands(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"echo a", "sleep 0", "ls"}, cmds)
}

func TestCommandArgs(t *testing.T) {
	argv, err := commandArgs("", `printf '%s\n' "a b" c`)
	require.NoError(t, err)
	assert.Equal(t, []string{"printf", `%s\n`, "a b", "c"}, argv)

	argv, err = commandArgs("sh", "a | b")
	require.NoError(t, err)
	assert.Equal(t, []string{"sh", "-c", "a | b"}, argv)

	_, err = commandArgs("", `echo "open`)
	assert.ErrorIs(t, err, shellquote.UnterminatedDoubleQuoteError)

	_, err = commandArgs("", "   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestRunAllSucceed(t *testing.T) {
	requireUnix(t)
	var buf bytes.Buffer
	tr := progress.NewTracker(progress.New(&buf, progress.WithSize(3), progress.WithMode(progress.ModeTerminal)), 3)

	res, err := Run(context.Background(), newConfig(2), []string{"true", "true", "true"}, tr)
	require.NoError(t, err)
	assert.Equal(t, Result{Total: 3, Failed: 0}, res)
	assert.Equal(t, 3, tr.Done())
	assert.True(t, strings.HasSuffix(buf.String(), "[===>] 100%\n"))
}

func TestRunCountsFailures(t *testing.T) {
	requireUnix(t)
	tr := progress.NewTracker(progress.New(&bytes.Buffer{}, progress.WithMode(progress.ModeTerminal)), 3)

	res, err := Run(context.Background(), newConfig(3), []string{"true", "false", `echo "open`}, tr)
	require.NoError(t, err)
	assert.Equal(t, Result{Total: 3, Failed: 2}, res)
	assert.Equal(t, 3, tr.Done())
}

func TestRunStopOnError(t *testing.T) {
	requireUnix(t)
	cfg := newConfig(1)
	cfg.StopOnError = true

	res, err := Run(context.Background(), cfg, []string{"false"}, nil)
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "false", cmdErr.Line)
	var exitErr *exec.ExitError
	assert.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, res.Failed)
}

func TestRunThroughShell(t *testing.T) {
	requireUnix(t)
	var out bytes.Buffer
	cfg := newConfig(1)
	cfg.Shell = "sh"
	cfg.Stdout = &out

	res, err := Run(context.Background(), cfg, []string{"echo one && echo two", "test 1 -eq 2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, "one\ntwo\n", out.String())
}

func TestRunInvalidThreads(t *testing.T) {
	_, err := Run(context.Background(), newConfig(0), []string{"true"}, nil)
	assert.ErrorIs(t, err, ErrInvalidThreads)
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, newConfig(1), []string{"true"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunEmptyBatch(t *testing.T) {
	var buf bytes.Buffer
	tr := progress.NewTracker(progress.New(&buf, progress.WithSize(1), progress.WithMode(progress.ModeTerminal)), 0)

	res, err := Run(context.Background(), newConfig(1), nil, tr)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Equal(t, "[=>] 100%\n", buf.String())
}
