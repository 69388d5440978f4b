package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/oenmin/affect-analyzer/internal/domain/entity"
	"go.uber.org/zap"
)

var ErrInvalidSamplingRate = errors.New("sampling rate must be positive and finite")

// ProgressFunc is told after each frame how many of total frames are done.
type ProgressFunc func(done, total int)

// Analyzer analyzes a single frame image.
type Analyzer interface {
	Analyze(ctx context.Context, imagePath string) entity.FrameResult
}

type BatchRunner struct {
	analyzer Analyzer
	logger   *zap.Logger
}

func NewBatchRunner(analyzer Analyzer, logger *zap.Logger) *BatchRunner {
	return &BatchRunner{analyzer: analyzer, logger: logger}
}

// Run analyzes framePaths in order, one at a time. Frame i is stamped with
// i/samplingRate seconds. Frame failures are recorded in place; an error is
// returned only for an unusable sampling rate or a cancelled ctx.
func (b *BatchRunner) Run(ctx context.Context, framePaths []string, samplingRate float64, progress ProgressFunc) (entity.AnalysisRun, error) {
	if samplingRate <= 0 || math.IsNaN(samplingRate) || math.IsInf(samplingRate, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSamplingRate, samplingRate)
	}

	total := len(framePaths)
	run := make(entity.AnalysisRun, 0, total)
	for i, path := range framePaths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analysis interrupted after %d of %d frames: %w", i, total, err)
		}

		result := b.analyzer.Analyze(ctx, path)
		result.Time = float64(i) / samplingRate
		run = append(run, result)

		if progress != nil {
			progress(i+1, total)
		}
	}

	b.logger.Debug("batch finished", zap.Int("frames", total))
	return run, nil
}

// LogProgress returns a ProgressFunc that logs frames 1, 1+n, 1+2n, ... and the
// last one. n <= 0 logs every frame.
func LogProgress(logger *zap.Logger, every int) ProgressFunc {
	if every <= 0 {
		every = 1
	}
	return func(done, total int) {
		if (done-1)%every == 0 || done == total {
			logger.Info("analysis progress", zap.Int("done", done), zap.Int("total", total))
		}
	}
}
