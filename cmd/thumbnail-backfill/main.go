package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mosaicmedia/media-service/internal/blobstore"
	"github.com/mosaicmedia/media-service/internal/config"
	"github.com/mosaicmedia/media-service/internal/events"
	"github.com/mosaicmedia/media-service/internal/services/thumbnails"
	"github.com/mosaicmedia/media-service/internal/storage/postgres"
)

const batchSize = 50

type BackfillWorker struct {
	storage  *postgres.Postgres
	pool     *thumbnails.Pool
	interval time.Duration
	logger   *slog.Logger
}

func NewBackfillWorker(storage *postgres.Postgres, pool *thumbnails.Pool, interval time.Duration) *BackfillWorker {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &BackfillWorker{
		storage:  storage,
		pool:     pool,
		interval: interval,
		logger:   logger,
	}
}

func (bw *BackfillWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(bw.interval)
	defer ticker.Stop()

	bw.logger.Info("Thumbnail backfill worker started",
		"interval", bw.interval.String())

	// Run once immediately on startup
	bw.processBatch(ctx)

	for {
		select {
		case <-ctx.Done():
			bw.logger.Info("Thumbnail backfill worker shutting down")
			return
		case <-ticker.C:
			bw.processBatch(ctx)
		}
	}
}

// processBatch reprocesses image uploads whose thumbnail is still missing,
// whether the original job was dropped or failed.
func (bw *BackfillWorker) processBatch(ctx context.Context) {
	startTime := time.Now()

	records, err := bw.storage.ListMissingThumbnails(ctx, batchSize)
	if err != nil {
		bw.logger.Error("Failed to list uploads missing thumbnails",
			"error", err.Error())
		return
	}

	if len(records) == 0 {
		return
	}

	bw.logger.Info("Starting thumbnail backfill", "candidates", len(records))

	var generated int
	for _, rec := range records {
		if ctx.Err() != nil {
			return
		}

		_, err := bw.pool.Generate(ctx, thumbnails.Job{
			UploadID:  rec.ID,
			ObjectKey: rec.ObjectKey,
			UserID:    rec.UserID,
		})
		if err != nil {
			bw.logger.Error("Backfill failed for upload",
				"upload_id", rec.ID,
				"object_key", rec.ObjectKey,
				"error", err.Error())
			continue
		}
		generated++
	}

	duration := time.Since(startTime)

	bw.logger.Info("Completed thumbnail backfill",
		"thumbnails_generated", generated,
		"duration_ms", duration.Milliseconds(),
		"duration", duration.String())
}

func main() {
	// Load config
	cfg := config.MustLoad()

	// Initialize database connection
	storage, err := postgres.NewPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	slog.Info("Connected to Postgres database")

	store, err := blobstore.NewMinioStore(&cfg.MinIO)
	if err != nil {
		log.Fatal("Failed to initialize object store:", err)
	}

	// No hub here; thumbnail events are dropped.
	pool := thumbnails.NewPool(store, storage, events.NopPublisher{}, &cfg.Thumbnail)

	// Create worker with 5-minute interval
	worker := NewBackfillWorker(storage, pool, 5*time.Minute)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		slog.Info("Received shutdown signal")
		cancel()
	}()

	// Start the worker
	worker.Start(ctx)

	slog.Info("Thumbnail backfill worker stopped")
}
