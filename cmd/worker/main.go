package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/multi-strategy-rag/internal/bootstrap"
	"github.com/kirillkom/multi-strategy-rag/internal/config"
	"github.com/kirillkom/multi-strategy-rag/internal/observability/logging"
	"github.com/kirillkom/multi-strategy-rag/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Hooks{
		OnQueueLag: func(lag time.Duration) {
			workerMetrics.ObserveQueueLag(serviceName, lag)
		},
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "metrics_port", cfg.WorkerMetricsPort)
	err = app.Queue.SubscribeSourceQueued(ctx, func(handlerCtx context.Context, sourceID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Minute)
		defer cancel()

		workerMetrics.StartSource()
		start := time.Now()
		report, err := app.ProcessUC.ProcessByID(processCtx, sourceID)
		workerMetrics.FinishSource(serviceName, time.Since(start), err)
		if report != nil {
			workerMetrics.RecordReport(serviceName, report.TotalChunks, report.UploadedChunks, report.FailedBatches)
			logger.Info("source_processed",
				"source_id", sourceID,
				"total_chunks", report.TotalChunks,
				"uploaded_chunks", report.UploadedChunks,
				"failed_batches", report.FailedBatches,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
