// Command cohort-docserver serves an in-memory document store over HTTP and
// WebSocket for local development and demos.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/cohort/internal/docstore/docserver"
	"github.com/five82/cohort/internal/docstore/memstore"
	"github.com/five82/cohort/internal/training"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:7490", "listen address")
	seed := flag.Bool("seed", true, "load the demo cohort on start")
	compositeIndex := flag.Bool("require-index", false, "reject filtered+ordered queries like a backend without a composite index")
	debug := flag.Bool("debug", false, "log every request")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "docserver",
	})
	if *debug {
		logger.SetLevel(log.DebugLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var opts []memstore.Option
	if *compositeIndex {
		opts = append(opts, memstore.RequireCompositeIndex())
	}
	store := memstore.New(opts...)
	if *seed {
		if err := training.Seed(ctx, store, time.Now()); err != nil {
			logger.Error("seed failed", "err", err)
			return 1
		}
		logger.Info("seeded demo cohort", "admin", training.DemoAdminID, "trainee", training.DemoTraineeID)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           docserver.New(store, docserver.WithLogger(logger)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "err", err)
		return 1
	}
	return 0
}
