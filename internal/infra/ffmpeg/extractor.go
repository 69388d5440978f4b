package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/oenmin/affect-analyzer/internal/domain/port"
	"go.uber.org/zap"
)

const framePrefix = "frame-"

type Extractor struct {
	fps    float64
	format string
	logger *zap.Logger
}

func NewExtractor(fps float64, format string, logger *zap.Logger) *Extractor {
	return &Extractor{fps: fps, format: format, logger: logger}
}

func (e *Extractor) FrameRate() float64 {
	return e.fps
}

func (e *Extractor) ExtractFrames(ctx context.Context, videoPath string, outputDir string) (*port.FrameExtractionResult, error) {
	info, err := os.Stat(videoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: input video: %v", port.ErrFrameExtraction, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: input video %s is a directory", port.ErrFrameExtraction, videoPath)
	}
	if e.fps <= 0 {
		return nil, fmt.Errorf("%w: invalid frame rate %v", port.ErrFrameExtraction, e.fps)
	}

	duration, err := e.getVideoDuration(ctx, videoPath)
	if err != nil {
		e.logger.Warn("could not get video duration", zap.Error(err))
	}

	framePattern := filepath.Join(outputDir, fmt.Sprintf("%s%%04d.%s", framePrefix, e.format))
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vf", "fps="+strconv.FormatFloat(e.fps, 'f', -1, 64),
		"-y",
		framePattern,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v, output: %s", port.ErrFrameExtraction, err, strings.TrimSpace(string(output)))
	}

	frames, err := listFrames(outputDir, e.format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrFrameExtraction, err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no frames extracted from video", port.ErrFrameExtraction)
	}

	e.logger.Info("frames extracted",
		zap.Int("count", len(frames)),
		zap.Float64("fps", e.fps),
		zap.Float64("video_duration", duration),
	)

	return &port.FrameExtractionResult{
		FramePaths:    frames,
		FrameCount:    len(frames),
		VideoDuration: duration,
	}, nil
}

// listFrames returns the extracted frames of dir ordered by their numeric index.
// Lexical order breaks once ffmpeg passes frame-9999.
func listFrames(dir, format string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, framePrefix+"*."+format))
	if err != nil {
		return nil, fmt.Errorf("glob frames: %w", err)
	}

	type numbered struct {
		path  string
		index int
	}
	frames := make([]numbered, 0, len(paths))
	for _, p := range paths {
		idx, err := frameIndex(filepath.Base(p), format)
		if err != nil {
			continue
		}
		frames = append(frames, numbered{path: p, index: idx})
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].index < frames[j].index })

	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.path
	}
	return out, nil
}

func frameIndex(name, format string) (int, error) {
	digits := strings.TrimSuffix(strings.TrimPrefix(name, framePrefix), "."+format)
	if digits == "" {
		return 0, errors.New("missing frame number")
	}
	return strconv.Atoi(digits)
}

func (e *Extractor) getVideoDuration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}
