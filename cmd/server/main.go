package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/openworld/internal/config"
	"github.com/zeusync/openworld/internal/core/observability/log"
	"github.com/zeusync/openworld/internal/injector"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "openworld:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = pflag.StringP("config", "c", "", "path to a YAML configuration file")
		listen     = pflag.String("listen", "", "override server.listen_addr")
		scenePath  = pflag.String("scene", "", "override scene.path")
		storePath  = pflag.String("db", "", "archive objects in this sqlite database")
		logLevel   = pflag.String("log-level", "", "override log.level")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Server.ListenAddr = *listen
	}
	if *scenePath != "" {
		cfg.Scene.Path = *scenePath
	}
	if *storePath != "" {
		cfg.Storage = config.Storage{Driver: config.StorageSQLite, Path: *storePath}
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err = cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := injector.InitializeApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	defer func() { _ = app.Logger.Sync() }()

	app.Logger.Info("Starting openworld server",
		log.String("addr", cfg.Server.ListenAddr),
		log.String("storage", cfg.Storage.Driver),
		log.Int("tick_rate", cfg.Server.TickRate),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.Server.ListenAndServe(gctx) })
	g.Go(func() error { return app.Server.Run(gctx) })

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error("Server stopped", log.Error(err))
		return err
	}
	app.Logger.Info("Server stopped")
	return nil
}
