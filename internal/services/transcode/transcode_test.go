package transcode

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/mosaicmedia/media-service/internal/config"
)

type fakeRunner struct {
	duration  float64
	probeErr  error
	encodeErr error
	probed    []string
	encoded   []string
}

func (f *fakeRunner) ProbeDuration(ctx context.Context, path string) (float64, error) {
	f.probed = append(f.probed, path)
	if f.probeErr != nil {
		return 0, f.probeErr
	}
	return f.duration, nil
}

func (f *fakeRunner) Encode(ctx context.Context, inPath, outPath string) error {
	f.encoded = append(f.encoded, inPath)
	if f.encodeErr != nil {
		return f.encodeErr
	}
	return os.WriteFile(outPath, []byte("encoded"), 0o644)
}

func testTranscoder(t *testing.T, runner Runner) (*Transcoder, string) {
	t.Helper()
	tr := New(&config.Transcode{
		MaxDurationSeconds: 180,
		MaxConcurrent:      2,
	}, runner)
	dir := t.TempDir()
	tr.tempDir = dir
	return tr, dir
}

func filesIn(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read temp dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestTranscode_Success(t *testing.T) {
	runner := &fakeRunner{duration: 90}
	tr, dir := testTranscoder(t, runner)

	outPath, err := tr.Transcode(context.Background(), strings.NewReader("raw video"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer os.Remove(outPath)

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("Output file missing: %v", err)
	}
	if string(data) != "encoded" {
		t.Fatalf("Unexpected output contents %q", data)
	}

	// Only the returned output file may remain; the input temp is gone.
	remaining := filesIn(t, dir)
	if len(remaining) != 1 || !strings.HasPrefix(remaining[0], "transcoded-") {
		t.Fatalf("Expected only the output file to remain, got %v", remaining)
	}
}

func TestTranscode_VideoTooLong(t *testing.T) {
	runner := &fakeRunner{duration: 185}
	tr, dir := testTranscoder(t, runner)

	_, err := tr.Transcode(context.Background(), strings.NewReader("raw video"))

	var tooLong *VideoTooLongError
	if !errors.As(err, &tooLong) {
		t.Fatalf("Expected VideoTooLongError, got %v", err)
	}
	if tooLong.MaxSeconds != 180 {
		t.Fatalf("Expected max 180s in rejection, got %d", tooLong.MaxSeconds)
	}

	if len(runner.encoded) != 0 {
		t.Fatal("No encode may be attempted for over-length input")
	}
	if remaining := filesIn(t, dir); len(remaining) != 0 {
		t.Fatalf("Expected no temp files after rejection, got %v", remaining)
	}
}

func TestTranscode_ProbeFailure(t *testing.T) {
	runner := &fakeRunner{probeErr: &ProcessingError{Detail: "ffprobe invocation failed"}}
	tr, dir := testTranscoder(t, runner)

	_, err := tr.Transcode(context.Background(), strings.NewReader("raw video"))

	var processing *ProcessingError
	if !errors.As(err, &processing) {
		t.Fatalf("Expected ProcessingError, got %v", err)
	}
	if remaining := filesIn(t, dir); len(remaining) != 0 {
		t.Fatalf("Expected no temp files after probe failure, got %v", remaining)
	}
}

func TestTranscode_EncodeFailure(t *testing.T) {
	runner := &fakeRunner{duration: 90, encodeErr: &ProcessingError{Detail: "ffmpeg invocation failed"}}
	tr, dir := testTranscoder(t, runner)

	_, err := tr.Transcode(context.Background(), strings.NewReader("raw video"))

	var processing *ProcessingError
	if !errors.As(err, &processing) {
		t.Fatalf("Expected ProcessingError, got %v", err)
	}
	if remaining := filesIn(t, dir); len(remaining) != 0 {
		t.Fatalf("Expected no temp files after encode failure, got %v", remaining)
	}
}

func TestTranscode_AdmissionRespectsCancelledContext(t *testing.T) {
	runner := &fakeRunner{duration: 90}
	tr, dir := testTranscoder(t, runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Transcode(ctx, strings.NewReader("raw video"))
	if err == nil {
		t.Fatal("Expected admission failure on cancelled context")
	}
	if len(runner.probed) != 0 {
		t.Fatal("Cancelled request must not reach the prober")
	}
	if remaining := filesIn(t, dir); len(remaining) != 0 {
		t.Fatalf("Expected no temp files, got %v", remaining)
	}
}
