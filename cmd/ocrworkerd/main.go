package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"ocrworker/internal/async"
	"ocrworker/internal/common"
	"ocrworker/internal/export"
	"ocrworker/internal/handler"
	"ocrworker/internal/server"
	"ocrworker/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	journal, err := store.Open(ctx, cfg.Journal, logger)
	if err != nil {
		logger.Error("open journal", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := journal.Close(); cerr != nil {
			logger.Error("close journal", "error", cerr)
		}
	}()

	hub := server.NewHub(logger)
	hub.Start()
	defer hub.Stop()

	h := handler.New(cfg.Pipeline, nil, logger)
	queue := async.NewProcessorQueue(h, journal, hub.BroadcastJobUpdate, logger,
		async.WithWorkers(cfg.Worker.Workers),
		async.WithQueueSize(cfg.Worker.QueueSize),
		async.WithJobTimeout(cfg.Worker.JobTimeout),
	)

	exporter := export.NewService(journal, logger)
	srv := server.New(queue, journal, exporter, hub, logger)

	httpSrv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
