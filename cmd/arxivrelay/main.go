package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"arxivrelay/internal/app"
	"arxivrelay/internal/config"
	logx "arxivrelay/pkg/logx"
)

const (
	exitOK     = 0
	exitConfig = 1
	exitUsage  = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], config.EnvLookup(), logx.Stderr())
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, lookup config.Lookup, stderr io.Writer) int {
	fs := flag.NewFlagSet("arxivrelay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	once := fs.Bool("once", false, "run once even if SCHEDULE is set")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: arxivrelay [-once] <topics.yml>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}

	settings, err := config.LoadSettings(lookup)
	if err != nil {
		fmt.Fprintln(stderr, "fatal:", err)
		return exitConfig
	}
	a, err := app.New(ctx, fs.Arg(0), settings, lookup)
	if err != nil {
		fmt.Fprintln(stderr, "fatal:", err)
		return exitConfig
	}
	defer a.Close()

	if a.Daemon() && !*once {
		if err := a.Serve(ctx); err != nil {
			a.Logger().Error("serve stopped", logx.Err(err))
			return exitConfig
		}
		return exitOK
	}

	// Per-topic failures are logged; they do not change the exit status.
	a.RunOnce(ctx)
	return exitOK
}
