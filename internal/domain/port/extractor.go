package port

import (
	"context"
	"errors"
)

// ErrFrameExtraction marks run-level failures of the frame source: missing input,
// ffmpeg failure, or a video that yields no frames.
var ErrFrameExtraction = errors.New("frame extraction failed")

type FrameExtractionResult struct {
	FramePaths    []string
	FrameCount    int
	VideoDuration float64
}

// FrameExtractor samples a video into numbered image files. FramePaths is ordered by frame index.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, videoPath string, outputDir string) (*FrameExtractionResult, error)
	FrameRate() float64
}
