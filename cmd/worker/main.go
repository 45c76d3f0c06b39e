// The worker process drains the job queue: it segments clicked objects,
// uploads artifacts, searches for matching products and generates
// descriptions. Run as many worker processes as you want throughput.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/seeclickbuy/backend/config"
	"github.com/seeclickbuy/backend/describe"
	"github.com/seeclickbuy/backend/logger"
	"github.com/seeclickbuy/backend/pipeline"
	"github.com/seeclickbuy/backend/queue"
	"github.com/seeclickbuy/backend/search"
	"github.com/seeclickbuy/backend/segment"
	"github.com/seeclickbuy/backend/storage"
	"github.com/seeclickbuy/backend/store"
)

func main() {
	config.LoadConfig()

	lg, err := logger.New(config.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerID := uuid.New().String()
	lg = lg.With("worker_id", workerID)

	db, err := store.Connect(ctx, config.MongoURI, config.DBName)
	if err != nil {
		lg.Fatal("failed to connect to MongoDB", "error", err)
	}

	jobs, err := queue.NewRedis(config.RedisAddr, workerID, lg)
	if err != nil {
		lg.Fatal("failed to connect to Redis", "error", err)
	}

	uploader, err := storage.NewS3(ctx, config.AWSRegion, config.AWSBucketName)
	if err != nil {
		lg.Fatal("failed to build S3 client", "error", err)
	}

	gemini, err := describe.NewGemini(ctx, config.GeminiAPIKey, config.GeminiModel)
	if err != nil {
		lg.Fatal("failed to build Gemini client", "error", err)
	}

	orch := pipeline.NewOrchestrator(
		db,
		uploader,
		segment.NewClient(config.SegmenterURL),
		search.New(config.SerpAPIKey, db, lg),
		describe.NewService(gemini, lg),
		lg,
	)

	lg.Info("worker starting")
	if err := pipeline.NewWorker(jobs, orch, lg).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		lg.Fatal("worker stopped", "error", err)
	}
	lg.Info("worker shut down")
}
