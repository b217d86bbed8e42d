// Package thumbnails derives bounded-size JPEG thumbnails from uploaded
// images. Jobs run on a fixed worker pool behind a bounded queue; every
// failure is logged and swallowed; a missing thumbnail is a valid state
// repaired later by the backfill worker.
package thumbnails

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"strings"
	"sync"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/mosaicmedia/media-service/internal/blobstore"
	"github.com/mosaicmedia/media-service/internal/config"
	"github.com/mosaicmedia/media-service/internal/events"
	"github.com/mosaicmedia/media-service/internal/storage"
)

const thumbnailPrefix = "thumbnails/"

// Job identifies one thumbnail derivation.
type Job struct {
	UploadID  string
	ObjectKey string
	UserID    string
}

type Pool struct {
	store     blobstore.ObjectStore
	storage   storage.Storage
	publisher events.Publisher
	cfg       *config.Thumbnail

	jobs chan Job
	wg   sync.WaitGroup
}

// NewPool creates a thumbnail worker pool. Call Start before submitting.
func NewPool(store blobstore.ObjectStore, st storage.Storage, publisher events.Publisher, cfg *config.Thumbnail) *Pool {
	return &Pool{
		store:     store,
		storage:   st,
		publisher: publisher,
		cfg:       cfg,
		jobs:      make(chan Job, cfg.QueueSize),
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop drains the queue and waits for in-flight jobs.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

// Submit enqueues a job without blocking. It reports false when the queue
// is full and the job was dropped.
func (p *Pool) Submit(uploadID, objectKey, userID string) bool {
	select {
	case p.jobs <- Job{UploadID: uploadID, ObjectKey: objectKey, UserID: userID}:
		return true
	default:
		return false
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobs {
		if _, err := p.Generate(context.Background(), job); err != nil {
			slog.Error("Thumbnail generation failed",
				slog.String("upload_id", job.UploadID),
				slog.String("object_key", job.ObjectKey),
				slog.String("error", err.Error()))
		}
	}
}

// DerivedKey maps a source object key to its thumbnail key by swapping the
// folder prefix and keeping the basename, so reprocessing the same source
// always lands on the same thumbnail key.
func DerivedKey(objectKey string) string {
	if i := strings.Index(objectKey, "/"); i >= 0 {
		return thumbnailPrefix + objectKey[i+1:]
	}
	return thumbnailPrefix + objectKey
}

// Generate derives, stores and records one thumbnail. It is exported so the
// backfill worker can run jobs synchronously.
func (p *Pool) Generate(ctx context.Context, job Job) (string, error) {
	src, err := p.store.Get(ctx, job.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("download original: %w", err)
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	thumb := p.resize(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: p.cfg.Quality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}

	thumbKey := DerivedKey(job.ObjectKey)
	if err := p.store.Put(ctx, thumbKey, &buf, int64(buf.Len()), "image/jpeg"); err != nil {
		return "", fmt.Errorf("upload thumbnail: %w", err)
	}

	if err := p.storage.SetThumbnailKey(ctx, job.UploadID, thumbKey); err != nil {
		return "", fmt.Errorf("update upload record: %w", err)
	}

	if err := p.publisher.PublishThumbnailReady(job.UserID, job.UploadID, thumbKey); err != nil {
		slog.Error("Failed to publish thumbnail ready event",
			slog.String("upload_id", job.UploadID),
			slog.String("error", err.Error()))
	}

	return thumbKey, nil
}

// resize fits the image into the configured box, preserving aspect ratio.
// Images already inside the box are re-encoded at their original size.
func (p *Pool) resize(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w <= p.cfg.MaxWidth && h <= p.cfg.MaxHeight {
		return img
	}

	scaleW := float64(p.cfg.MaxWidth) / float64(w)
	scaleH := float64(p.cfg.MaxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	dstW := int(float64(w) * scale)
	dstH := int(float64(h) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
