package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/hosp-data-etl/internal/adapter/healthdata"
	httpadapter "github.com/couchcryptid/hosp-data-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hosp-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/hosp-data-etl/internal/archive"
	"github.com/couchcryptid/hosp-data-etl/internal/config"
	"github.com/couchcryptid/hosp-data-etl/internal/observability"
	"github.com/couchcryptid/hosp-data-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store, err := archive.Open(cfg.ArchivePath)
	if err != nil {
		logger.Error("failed to open archive", "path", cfg.ArchivePath, "error", err)
		os.Exit(1)
	}
	logger.Info("archive opened", "path", cfg.ArchivePath)

	client := healthdata.NewClient(cfg.HealthDataBaseURL, cfg.FetchTimeout, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	reconstructor := pipeline.NewReconstructor(store, logger)

	p := pipeline.New(client, store, reconstructor, writer, logger, metrics, cfg)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("archive close error", "error", err)
	}

	logger.Info("shutdown complete")
}
