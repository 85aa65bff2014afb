package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/cohort/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override cohort config path (optional)")
	prefsPath := flag.String("prefs", "", "override UI prefs path (optional)")
	pollSeconds := flag.Int("poll", 0, "trainee roster refresh in seconds (optional, defaults to 15s)")
	demo := flag.Bool("demo", false, "run against a seeded in-memory backend")
	debug := flag.Bool("debug", false, "write debug lines to the log file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
		Demo:       *demo,
		Debug:      *debug,
	}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "cohort: %v\n", err)
		return 1
	}
	return 0
}
