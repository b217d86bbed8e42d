// Package transcode re-encodes proxied video uploads. The path is
// synchronous: the caller blocks for the lifetime of the probe and encode
// subprocesses, bounded by an admission semaphore. All temp files are
// removed on every exit path; only the returned output file survives, and
// its deletion belongs to the caller.
package transcode

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mosaicmedia/media-service/internal/config"
)

// Runner abstracts the external prober and encoder so tests can substitute
// fakes for the ffmpeg binaries.
type Runner interface {
	// ProbeDuration returns the media duration of the file in seconds.
	ProbeDuration(ctx context.Context, path string) (float64, error)

	// Encode re-encodes inPath into outPath with the target codec.
	Encode(ctx context.Context, inPath, outPath string) error
}

// FFmpegRunner shells out to ffprobe and ffmpeg.
type FFmpegRunner struct {
	FFprobePath string
	FFmpegPath  string
}

func (r *FFmpegRunner) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, r.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)

	out, err := cmd.Output()
	if err != nil {
		return 0, &ProcessingError{Detail: "ffprobe invocation failed", Err: err}
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, &ProcessingError{Detail: fmt.Sprintf("unparsable ffprobe output %q", strings.TrimSpace(string(out))), Err: err}
	}

	return duration, nil
}

func (r *FFmpegRunner) Encode(ctx context.Context, inPath, outPath string) error {
	cmd := exec.CommandContext(ctx, r.FFmpegPath,
		"-i", inPath,
		"-c:v", "libx264",
		"-preset", "fast",
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-y", outPath)

	if err := cmd.Run(); err != nil {
		return &ProcessingError{Detail: "ffmpeg invocation failed", Err: err}
	}
	return nil
}

type Transcoder struct {
	runner      Runner
	maxDuration float64
	maxSeconds  int
	sem         *semaphore.Weighted
	tempDir     string
}

// New creates a transcoder gated by a weighted semaphore of
// cfg.MaxConcurrent slots. A nil runner gets the ffmpeg default.
func New(cfg *config.Transcode, runner Runner) *Transcoder {
	if runner == nil {
		runner = &FFmpegRunner{
			FFprobePath: cfg.FFprobePath,
			FFmpegPath:  cfg.FFmpegPath,
		}
	}

	return &Transcoder{
		runner:      runner,
		maxDuration: float64(cfg.MaxDurationSeconds),
		maxSeconds:  cfg.MaxDurationSeconds,
		sem:         semaphore.NewWeighted(cfg.MaxConcurrent),
		tempDir:     os.TempDir(),
	}
}

// Transcode spills in to a temp file, probes its duration, rejects
// over-length input and re-encodes the rest to H.264/AAC MP4. On success
// it returns the output file path; the caller deletes it after the bytes
// reach the store. The input temp file is always removed before return.
func (t *Transcoder) Transcode(ctx context.Context, in io.Reader) (string, error) {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("transcode admission: %w", err)
	}
	defer t.sem.Release(1)

	inFile, err := os.CreateTemp(t.tempDir, "ingest-*.video")
	if err != nil {
		return "", fmt.Errorf("failed to create temp input: %w", err)
	}
	inPath := inFile.Name()
	defer os.Remove(inPath)

	_, err = io.Copy(inFile, in)
	inFile.Close()
	if err != nil {
		return "", fmt.Errorf("failed to spool input: %w", err)
	}

	duration, err := t.runner.ProbeDuration(ctx, inPath)
	if err != nil {
		return "", err
	}

	if duration > t.maxDuration {
		return "", &VideoTooLongError{MaxSeconds: t.maxSeconds, DurationSeconds: duration}
	}

	outFile, err := os.CreateTemp(t.tempDir, "transcoded-*.mp4")
	if err != nil {
		return "", fmt.Errorf("failed to create temp output: %w", err)
	}
	outPath := outFile.Name()
	outFile.Close()

	if err := t.runner.Encode(ctx, inPath, outPath); err != nil {
		os.Remove(outPath)
		return "", err
	}

	return outPath, nil
}

// MaxDuration reports the configured duration ceiling.
func (t *Transcoder) MaxDuration() time.Duration {
	return time.Duration(t.maxSeconds) * time.Second
}
