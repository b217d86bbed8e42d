package transcode

import "fmt"

// VideoTooLongError rejects input whose probed duration exceeds the
// configured maximum. No encode is attempted.
type VideoTooLongError struct {
	MaxSeconds      int
	DurationSeconds float64
}

func (e *VideoTooLongError) Error() string {
	return fmt.Sprintf("video duration %.1fs exceeds maximum of %ds", e.DurationSeconds, e.MaxSeconds)
}

// ProcessingError wraps a failed prober or encoder invocation. It is fatal
// to the transcoding call and never silently swallowed.
type ProcessingError struct {
	Detail string
	Err    error
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("processing failed: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("processing failed: %s", e.Detail)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
