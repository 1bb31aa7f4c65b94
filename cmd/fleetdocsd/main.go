package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/transmeralda/fleetdocs/internal/common"
	"github.com/transmeralda/fleetdocs/internal/export"
	"github.com/transmeralda/fleetdocs/internal/extract"
	"github.com/transmeralda/fleetdocs/internal/intake"
	"github.com/transmeralda/fleetdocs/internal/notify"
	"github.com/transmeralda/fleetdocs/internal/ocr"
	"github.com/transmeralda/fleetdocs/internal/pipeline"
	"github.com/transmeralda/fleetdocs/internal/queue"
	"github.com/transmeralda/fleetdocs/internal/repository"
	"github.com/transmeralda/fleetdocs/internal/server"
	"github.com/transmeralda/fleetdocs/internal/session"
	"github.com/transmeralda/fleetdocs/internal/staging"
	"github.com/transmeralda/fleetdocs/internal/storage"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)
	if err := repository.HealthCheck(ctx, pool, 5*time.Second, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("redis ping failed", "error", err)
		os.Exit(1)
	}
	sessions := session.NewRedisStore(redisClient, logger)

	objects, err := storage.NewMinioStore(cfg.ObjectStore, logger)
	if err != nil {
		logger.Error("failed to create object store client", "error", err)
		os.Exit(1)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		logger.Error("object store bucket check failed", "error", err)
		os.Exit(1)
	}

	stage, err := staging.New(cfg.Staging.Dir, logger)
	if err != nil {
		logger.Error("failed to create staging area", "error", err)
		os.Exit(1)
	}

	ocrClient := ocr.NewAzureClient(cfg.OCR.Endpoint, cfg.OCR.APIKey, cfg.OCR.SubmitTimeout, logger)
	recognizer := ocr.NewPoller(ocrClient, cfg.OCR.PollInterval, uint(cfg.OCR.PollAttempts), logger)

	extractor := extract.NewClient(extract.ClientConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: float64(cfg.LLM.Temperature),
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	drivers := repository.NewDriverRepository(pool, logger)
	artifacts := repository.NewArtifactRepository(pool, logger)
	hub := notify.NewHub(logger)

	processor := pipeline.NewProcessor(
		sessions, recognizer, extractor, drivers, artifacts, objects,
		stage, hub, cfg.Redis.SessionTTL, logger,
	)

	jobs := queue.New(logger,
		queue.WithWorkers(cfg.Queue.Workers),
		queue.WithQueueSize(cfg.Queue.Size),
		queue.WithProcessTimeout(cfg.Queue.ProcessTimeout),
		queue.WithStallDetection(cfg.Queue.StallThreshold, cfg.Queue.StallInterval),
	)
	jobs.OnEvent(processor.HandleJobEvent)
	jobs.Register(intake.KindCreateDriver, func(ctx context.Context, job queue.Job) error {
		req, ok := job.Payload.(pipeline.CreateRequest)
		if !ok {
			return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
		}
		return processor.ProcessCreate(ctx, req)
	}, queue.WithAttempts(1))
	jobs.Register(intake.KindUpdateDriver, func(ctx context.Context, job queue.Job) error {
		req, ok := job.Payload.(pipeline.UpdateRequest)
		if !ok {
			return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
		}
		return processor.ProcessUpdate(ctx, req)
	}, queue.WithAttempts(1))

	intakeSvc := intake.NewService(sessions, stage, jobs, logger)
	exportSvc := export.NewService(drivers, logger)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.New(intakeSvc, exportSvc, hub, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	jobs.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
