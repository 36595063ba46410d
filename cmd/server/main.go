// Package main is the entry point for the coffeetrace API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coffeetrace/internal/app"
	"coffeetrace/internal/config"
	v1 "coffeetrace/internal/infrastructure/http/v1"
	"coffeetrace/internal/infrastructure/http/v1/middleware"
	"coffeetrace/pkg/logger"
)

func main() {
	envFile := flag.String("env", "", "path to an env file")
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
	log.Infow("starting coffeetrace server", "store", cfg.Store.Driver)

	// --- Document store ---
	backend, err := app.OpenBackend(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open document store", "error", err)
	}
	defer func() {
		if err := backend.Close(context.Background()); err != nil {
			log.Warnw("failed to close document store", "error", err)
		}
	}()

	// --- Services ---
	opts, err := app.OptionsFromConfig(cfg)
	if err != nil {
		log.Fatalw("invalid service options", "error", err)
	}
	services, err := app.NewServices(backend, opts)
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}
	log.Infow("services initialized",
		"missing_source_policy", opts.MissingSource,
		"renderer", cfg.Renderer.URL != "",
	)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:         log,
		StoreDriver:    backend.Driver,
		Ping:           backend.Ping,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit: middleware.RateLimitConfig{
			RPS:   cfg.Server.RateLimitRPS,
			Burst: cfg.Server.RateLimitBurst,
		},
		Receipts:   services.Receipts,
		Runs:       services.Runs,
		Lots:       services.Lots,
		Threshing:  services.Threshing,
		Blends:     services.Blends,
		Dispatches: services.Dispatches,
		Activity:   services.Activity,
		Reports:    services.Reports,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
