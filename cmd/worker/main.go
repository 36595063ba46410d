// Package main is the entry point for the coffeetrace background worker.
// It runs the integrity audit on the configured cron schedule.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"coffeetrace/internal/app"
	"coffeetrace/internal/config"
	"coffeetrace/internal/scheduler"
	"coffeetrace/pkg/logger"
)

func main() {
	envFile := flag.String("env", "", "path to an env file")
	once := flag.Bool("once", false, "run the integrity audit once and exit")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting coffeetrace worker", "store", cfg.Store.Driver)
	if cfg.Store.Driver == config.DriverMemory {
		log.Warn("worker uses its own in-memory store; audits will see no data")
	}

	backend, err := app.OpenBackend(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open document store", "error", err)
	}
	defer func() { _ = backend.Close(context.Background()) }()

	services, err := app.NewServices(backend, app.Options{})
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	if *once {
		report, err := scheduler.RunIntegrity(ctx, services.Reports)
		if err != nil {
			log.Fatalw("integrity audit failed", "error", err)
		}
		if !report.OK() {
			os.Exit(2)
		}
		return
	}

	sched, err := scheduler.New(cfg.Reporting, services.Reports, log)
	if err != nil {
		log.Fatalw("failed to create scheduler", "error", err)
	}
	if err := sched.Start(); err != nil {
		log.Fatalw("failed to start scheduler", "error", err)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	sched.Stop()
	log.Info("worker stopped")
}
