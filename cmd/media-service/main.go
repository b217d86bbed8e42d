package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/mosaicmedia/media-service/internal/blobstore"
	"github.com/mosaicmedia/media-service/internal/cache"
	"github.com/mosaicmedia/media-service/internal/config"
	"github.com/mosaicmedia/media-service/internal/events"
	mediaHandlers "github.com/mosaicmedia/media-service/internal/http/handlers/media"
	uploadHandlers "github.com/mosaicmedia/media-service/internal/http/handlers/uploads"
	"github.com/mosaicmedia/media-service/internal/http/handlers/ws"
	"github.com/mosaicmedia/media-service/internal/http/middleware"
	"github.com/mosaicmedia/media-service/internal/policy"
	"github.com/mosaicmedia/media-service/internal/services/thumbnails"
	"github.com/mosaicmedia/media-service/internal/services/transcode"
	"github.com/mosaicmedia/media-service/internal/services/uploads"
	"github.com/mosaicmedia/media-service/internal/storage/postgres"
	"github.com/mosaicmedia/media-service/internal/websocket"
)

func main() {
	// load config
	cfg := config.MustLoad()

	// database setup
	storage, err := postgres.NewPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	slog.Info("Connected to Postgres database")

	// object store setup
	store, err := blobstore.NewMinioStore(&cfg.MinIO)
	if err != nil {
		log.Fatal("Failed to initialize object store:", err)
	}
	slog.Info("Connected to object store", slog.String("endpoint", cfg.MinIO.Endpoint))

	// redis setup (rate limiting + download URL cache)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to redis:", err)
	}

	presignExpiry := time.Duration(cfg.Policy.PresignExpiryMinutes) * time.Minute

	// websocket hub for upload lifecycle events
	hub := websocket.NewHub()
	go hub.Run()
	publisher := events.NewEventPublisher(hub)

	// core pipeline
	policyEngine := policy.NewEngine(&cfg.Policy, storage)
	thumbPool := thumbnails.NewPool(store, storage, publisher, &cfg.Thumbnail)
	thumbPool.Start()
	transcoder := transcode.New(&cfg.Transcode, nil)

	uploadService := uploads.NewService(store, storage, storage, policyEngine, publisher, thumbPool, transcoder, presignExpiry)

	// handlers
	urlCache := cache.NewURLCache(redisClient, time.Hour)
	uh := uploadHandlers.NewUploadHandlers(uploadService)
	mh := mediaHandlers.NewMediaHandlers(store, storage, urlCache)

	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	rateLimits := middleware.NewRateLimitConfig(redisClient)

	// setup server
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	router.Handle("POST /uploads/presign", auth(rateLimits.RateLimitedHandler("presign", uh.Presign())))
	router.Handle("POST /uploads/complete", auth(rateLimits.RateLimitedHandler("complete", uh.Complete())))
	router.Handle("POST /uploads/direct", auth(rateLimits.RateLimitedHandler("ingest", uh.Ingest())))

	router.Handle("GET /media/info/{key...}", auth(mh.Info()))
	router.Handle("GET /media/download-url/{key...}", auth(mh.DownloadURL()))
	router.Handle("DELETE /media/{key...}", auth(mh.Delete()))

	router.HandleFunc("GET /ws", ws.Handler(hub, cfg.JWTSecret))

	server := http.Server{
		Addr:    cfg.HTTPServer.Address,
		Handler: router,
	}

	log.Println("server started on", cfg.HTTPServer.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-done

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = server.Shutdown(ctx)
	if err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
		return
	}

	// Let in-flight thumbnail jobs finish before exit.
	thumbPool.Stop()

	slog.Info("Server stopped")
}
