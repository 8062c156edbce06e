// Tally - AML compliance ROI calculator.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opensource-finance/tally/internal/api"
	"github.com/opensource-finance/tally/internal/bus"
	"github.com/opensource-finance/tally/internal/cache"
	"github.com/opensource-finance/tally/internal/config"
	"github.com/opensource-finance/tally/internal/domain"
	"github.com/opensource-finance/tally/internal/estimator"
	"github.com/opensource-finance/tally/internal/metrics"
	"github.com/opensource-finance/tally/internal/repository"
	"github.com/opensource-finance/tally/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tally: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(os.Stdout, cfg.Logging))

	slog.Info("starting tally",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	baselines := estimator.DefaultBaselines()
	if cfg.Calculator.BaselinesFile != "" {
		baselines, err = estimator.LoadBaselines(cfg.Calculator.BaselinesFile)
		if err != nil {
			slog.Error("failed to load baselines", "path", cfg.Calculator.BaselinesFile, "error", err)
			os.Exit(1)
		}
		slog.Info("baselines loaded", "path", cfg.Calculator.BaselinesFile)
	}

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	go metrics.StartDBStatsCollector(ctx, repo.DB(), 15*time.Second)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	var usageWorker *worker.Worker
	if cfg.Worker.Enabled {
		usageWorker = worker.NewWorker(busImpl, repo)
		if err := usageWorker.Start(worker.Config{Namespaces: cfg.Worker.Namespaces}); err != nil {
			slog.Error("failed to start usage worker", "error", err)
			usageWorker = nil
		} else {
			slog.Info("usage worker started", "namespaces", cfg.Worker.Namespaces)
		}
	}

	srv, err := api.NewServer(cfg.Server, api.Dependencies{
		Repo:        repo,
		Cache:       cacheImpl,
		Bus:         busImpl,
		Estimator:   estimator.New(baselines),
		Calculator:  cfg.Calculator,
		Version:     Version,
		ServiceName: cfg.Tracing.ServiceName,
		Worker:      usageWorker,
	})
	if err != nil {
		slog.Error("failed to initialize server", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("tally is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Drain usage events published by in-flight requests before closing the bus.
	if usageWorker != nil {
		if err := usageWorker.Stop(); err != nil {
			slog.Error("failed to stop usage worker", "error", err)
		}
	}

	slog.Info("tally shutdown complete")
}

func newLogger(w io.Writer, cfg domain.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  +-------------------------------------------+")
	fmt.Println("  |                  TALLY                    |")
	fmt.Println("  |      AML compliance ROI calculator        |")
	fmt.Println("  +-------------------------------------------+")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    GET    /                        - Calculator page")
	fmt.Println("    GET    /s/{id}                  - Follow a short share link")
	fmt.Println("    GET    /api/v1/estimate         - Estimate from query parameters")
	fmt.Println("    POST   /api/v1/estimate         - Estimate from a JSON body")
	fmt.Println("    POST   /api/v1/sessions         - Start a calculator session")
	fmt.Println("    PATCH  /api/v1/sessions/{id}    - Edit one assumption")
	fmt.Println("    POST   /api/v1/share            - Save and share a scenario")
	fmt.Println("    GET    /api/v1/scenarios        - List shared scenarios")
	fmt.Println("    GET    /api/v1/usage            - Usage summary")
	fmt.Println("    GET    /health                  - Health check")
	fmt.Println("    GET    /metrics                 - Prometheus metrics")
	fmt.Println()
}
