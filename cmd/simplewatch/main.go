package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/simplewatch/simplewatch/internal/checker"
	"github.com/simplewatch/simplewatch/internal/config"
	"github.com/simplewatch/simplewatch/internal/engine"
	"github.com/simplewatch/simplewatch/internal/incident"
	"github.com/simplewatch/simplewatch/internal/maintenance"
	"github.com/simplewatch/simplewatch/internal/notify"
	"github.com/simplewatch/simplewatch/internal/storage"
	"github.com/simplewatch/simplewatch/internal/uptime"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("simplewatch %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)
	logger.Info("starting simplewatch", "version", version)

	store, err := storage.NewSQLiteStore(cfg.Database.Path, cfg.Database.MaxReadConns)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("database opened", "path", cfg.Database.Path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := checker.DefaultRegistry()
	tracker := incident.NewTracker(store, logger)

	dispatcher := notify.NewDispatcher(store, logger, cfg.Notifications.ChannelTimeout)
	for _, wh := range cfg.Notifications.Webhooks {
		dispatcher.Register(&notify.WebhookNotifier{URL: wh.URL, Secret: wh.Secret})
	}

	recorder := engine.NewRecorder(store, tracker, dispatcher, logger)
	go recorder.Run(ctx)

	poller := engine.NewPoller(store, registry, recorder, engine.PollerConfig{
		Tick:         cfg.Poller.Tick,
		Workers:      cfg.Poller.Workers,
		CheckTimeout: cfg.Poller.CheckTimeout,
		ChecksPerSec: cfg.Poller.ChecksPerSec,
		InitWindow:   cfg.Poller.InitWindow,
	}, logger)
	go poller.Run(ctx)

	maintMgr := maintenance.NewManager(store, cfg.Maintenance.SweepInterval, logger)
	go maintMgr.Run(ctx)

	calc := uptime.NewCalculator(store, logger)
	refresher := uptime.NewRefresher(store, calc, cfg.Cache.RefreshInterval, logger)
	go refresher.Run(ctx)

	retentionWorker := storage.NewRetentionWorker(store, cfg.Database.RetentionDays, cfg.Database.RetentionPeriod, logger)
	go retentionWorker.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received signal, shutting down", "signal", sig)
	case <-ctx.Done():
	}

	cancel()
	logger.Info("shutdown complete")
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
