package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"clearing/internal/platform/config"
	"clearing/internal/platform/httpserver"
	"clearing/internal/platform/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// main wires dependencies, runs the ops server and background workers, and
// keeps the process lifecycle small. Business logic lives in internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srv := httpserver.New(cfg.Server.Addr, app.opsRouter())
		log.Info("starting clearing adapter", "addr", cfg.Server.Addr, "version", version)
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout)
	})
	for _, w := range app.workers {
		g.Go(func() error { return w.Run(gctx) })
	}

	err = g.Wait()
	log.Info("clearing adapter stopped", "error", err)
	return err
}
