package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/stepdeck/internal/api"
	"github.com/dgallion1/stepdeck/internal/config"
	"github.com/dgallion1/stepdeck/internal/hub"
	"github.com/dgallion1/stepdeck/internal/pipeline"
	"github.com/dgallion1/stepdeck/internal/watch"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("loading configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sync relay.
	h := hub.New(log, hub.Options{
		PingInterval: cfg.PingInterval,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Deck build pipeline.
	builder := pipeline.NewBuilder(cfg.SourceDir, cfg.OutputDir, cfg.Locales, log)
	orch := pipeline.NewOrchestrator(builder, pipeline.Options{
		MaxQueue: cfg.MaxQueueSize,
		JobTTL:   cfg.JobTTL,
	}, log)
	orch.Start(ctx)

	if _, err := orch.Submit(pipeline.TriggerStartup); err != nil {
		log.Error("initial build not queued", "error", err)
	}

	var watcher *watch.Watcher
	if cfg.Watch {
		watcher, err = watch.New(cfg.SourceDir, log,
			watch.WithDebounce(cfg.WatchDebounce),
			watch.WithOnChange(func() {
				if _, err := orch.Submit(pipeline.TriggerWatch); err != nil {
					log.Warn("rebuild not queued", "error", err)
				}
			}),
			watch.WithOnError(func(err error) {
				log.Error("watch error", "error", err)
			}),
		)
		if err == nil {
			err = watcher.Start()
		}
		if err != nil {
			log.Error("source watch disabled", "dir", cfg.SourceDir, "error", err)
			watcher = nil
		}
	}

	srv := api.NewServer(orch, h, log, cfg)

	// No read or write timeouts: sync connections are long-lived and keep
	// their own deadlines.
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		if watcher != nil {
			watcher.Stop()
		}
		h.Shutdown()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
	}()

	log.Info("starting stepdeck", "port", cfg.Port, "source", cfg.SourceDir, "output", cfg.OutputDir, "sync_path", cfg.SyncPath)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
