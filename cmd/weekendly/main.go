package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexanderramin/weekendly/internal/cli"
	"github.com/alexanderramin/weekendly/internal/config"
	"github.com/alexanderramin/weekendly/internal/db"
	"github.com/alexanderramin/weekendly/internal/gateway"
	"github.com/alexanderramin/weekendly/internal/netstatus"
	"github.com/alexanderramin/weekendly/internal/repository"
	"github.com/alexanderramin/weekendly/internal/store"
	"github.com/alexanderramin/weekendly/internal/syncer"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("WEEKENDLY_CONFIG"))
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if cfg.LogEvents {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Open database
	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire repositories
	queue := repository.NewSQLiteActionQueue(database)
	local := repository.NewSQLiteLocalStateRepo(database)
	cache := repository.NewSQLitePlanCache(database)

	gw, err := gateway.NewClient(cfg.APIURL, cfg.RequestTimeout)
	if err != nil {
		return err
	}

	network := netstatus.NewMonitor(cfg.FlapThreshold, logger)
	if cfg.Offline {
		network.Force(false)
	}

	var observer store.Observer = store.NoopObserver{}
	if cfg.LogEvents {
		observer = store.NewLogObserver(os.Stderr)
	}

	// The store and the coordinator reference each other: the store kicks
	// the coordinator, the coordinator reports back to the store.
	planStore := store.New(gw, queue,
		store.WithUser(cfg.UserID),
		store.WithLocalState(local),
		store.WithNetwork(network),
		store.WithObserver(observer),
		store.WithContext(ctx))
	if err := planStore.Hydrate(ctx); err != nil {
		logger.Warn("restoring local snapshot", "error", err)
	}

	coord := syncer.New(gw, queue,
		syncer.WithReconciler(planStore),
		syncer.WithNetwork(network),
		syncer.WithLogger(logger),
		syncer.WithMaxAttempts(cfg.MaxAttempts))
	planStore.SetKicker(coord)

	app := &cli.App{
		Config:  cfg,
		Store:   planStore,
		Sync:    coord,
		Network: network,
		Gateway: gw,
		Queue:   queue,
		Cache:   cache,
		Logger:  logger,
	}

	// Forms are only offered on a terminal.
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	rootCmd := cli.NewRootCmd(app)
	err = rootCmd.ExecuteContext(ctx)
	planStore.Wait()
	return err
}
