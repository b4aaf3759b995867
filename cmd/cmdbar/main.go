package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sigman78/cmdbar/internal/feed"
	"github.com/sigman78/cmdbar/internal/progress"
	"github.com/sigman78/cmdbar/internal/runner"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: cmdbar [fraction] [options]

Arguments:
  fraction                Progress to draw once: 0.42, 42%% or 21/50

Options:
  -size int               Bar width in characters (default: 30)
  -mode string            Output surface: auto|terminal|notebook (default: auto)
  -label string           Text printed in front of the bar
  -clamp                  Clamp progress into [0,1]
  -follow                 Read progress values from stdin, one per line
  -run                    Read command lines from stdin and run them
  -threads int            Concurrent commands for -run (default: 3)
  -stop-on-error          Stop -run on the first failing command
  -shell string           Run each -run line through "<shell> -c"
  -fancy                  Use the colour bar for -run
  -throttle duration      Minimum interval between frames (default: 0)
  -debug                  Enable verbose debug logging
  -version                Print version and exit
  -h / -help              Show this help and exit

Environment:
  RENDER_MODE             auto|terminal|notebook, used when -mode is auto
`)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(argv []string, stdin io.Reader, stdout io.Writer) int {
	// ContinueOnError lets us map ErrHelp and unknown flags to exit codes.
	fs := flag.NewFlagSet("cmdbar", flag.ContinueOnError)
	fs.Usage = usage

	var (
		sizeFlag    int
		modeFlag    string
		labelFlag   string
		clamp       bool
		follow      bool
		runCmds     bool
		threads     int
		stopOnError bool
		shell       string
		fancy       bool
		throttle    time.Duration
		debug       bool
	)

	fs.IntVar(&sizeFlag, "size", progress.DefaultSize, "Bar width in characters")
	fs.StringVar(&modeFlag, "mode", "auto", "Output surface: auto|terminal|notebook")
	fs.StringVar(&labelFlag, "label", "", "Text printed in front of the bar")
	fs.BoolVar(&clamp, "clamp", false, "Clamp progress into [0,1]")
	fs.BoolVar(&follow, "follow", false, "Read progress values from stdin")
	fs.BoolVar(&runCmds, "run", false, "Read command lines from stdin and run them")
	fs.IntVar(&threads, "threads", 3, "Concurrent commands for -run")
	fs.BoolVar(&stopOnError, "stop-on-error", false, "Stop -run on the first failing command")
	fs.StringVar(&shell, "shell", "", "Run each -run line through <shell> -c")
	fs.BoolVar(&fancy, "fancy", false, "Use the colour bar for -run")
	fs.DurationVar(&throttle, "throttle", 0, "Minimum interval between frames")
	fs.BoolVar(&debug, "debug", false, "Enable verbose debug logging")

	// Handle -version / -h / -help before the flag parser so we control the exit code.
	for _, a := range argv {
		if a == "-version" || a == "--version" {
			fmt.Fprintln(stdout, versionString())
			return 0
		}
		if a == "-h" || a == "-help" || a == "--help" {
			usage()
			return 0
		}
	}

	// A leading positional fraction is taken before flag parsing; the stdlib
	// flag package stops at the first non-flag argument. Negative fractions
	// must come after "--".
	var positional string
	if len(argv) > 0 && argv[0] != "" && !strings.HasPrefix(argv[0], "-") {
		positional = argv[0]
		argv = argv[1:]
	}

	if err := fs.Parse(argv); err != nil {
		// fs already printed the error message
		return 2
	}
	if positional == "" && fs.NArg() > 0 {
		positional = fs.Arg(0)
	}

	log := newLogger(debug)

	mode, err := progress.ParseMode(modeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: -mode: %v\n", err)
		return 1
	}
	if follow && runCmds {
		fmt.Fprintln(os.Stderr, "error: -follow and -run are mutually exclusive")
		return 1
	}
	if runCmds && threads <= 0 {
		fmt.Fprintln(os.Stderr, "error: -threads must be greater than 0")
		return 1
	}
	if !follow && !runCmds && positional == "" {
		fmt.Fprintln(os.Stderr, "error: a fraction, -follow or -run is required")
		usage()
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []progress.Option{
		progress.WithSize(sizeFlag),
		progress.WithMode(mode),
		progress.WithLabel(labelFlag),
		progress.WithClamp(clamp),
		progress.WithThrottle(throttle),
	}

	switch {
	case follow:
		rend := progress.New(stdout, append(opts, progress.WithCarriageReturn(true))...)
		n, err := feed.Follow(ctx, stdin, rend, log)
		log.WithField("frames", n).Debug("follow finished")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0

	case runCmds:
		cmds, err := runner.ReadCommands(stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		var counter progress.Counter
		if fancy {
			counter = progress.NewFancy(stdout, len(cmds), labelOr(labelFlag, "Running"), throttle)
		} else {
			rend := progress.New(stdout, append(opts, progress.WithCarriageReturn(true))...)
			counter = progress.NewTracker(rend, len(cmds))
		}
		cfg := &runner.Config{
			Threads:     threads,
			StopOnError: stopOnError,
			Shell:       shell,
			Log:         log,
		}
		res, err := runner.Run(ctx, cfg, cmds, counter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nerror: %v\n", err)
			return 1
		}
		if res.Failed > 0 {
			fmt.Fprintf(os.Stderr, "%d of %d command(s) failed.\n", res.Failed, res.Total)
			return 1
		}
		return 0
	}

	v, err := feed.Parse(positional)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if err := progress.New(stdout, opts...).Render(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if f, ok := stdout.(*os.File); ok && progress.IsTerminal(f.Fd()) {
		fmt.Fprintln(stdout)
	}
	return 0
}

func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}
	return fallback
}

func newLogger(debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
