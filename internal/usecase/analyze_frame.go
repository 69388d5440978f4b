package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/oenmin/affect-analyzer/internal/domain/affect"
	"github.com/oenmin/affect-analyzer/internal/domain/entity"
	"github.com/oenmin/affect-analyzer/internal/domain/port"
	"github.com/oenmin/affect-analyzer/internal/infra/metrics"
	"go.uber.org/zap"
)

// FrameAnalyzer turns one frame image into a FrameResult. It never fails:
// every problem with the frame is reported inside the result.
type FrameAnalyzer struct {
	decoder  port.ImageDecoder
	detector port.FaceDetector
	logger   *zap.Logger
}

func NewFrameAnalyzer(decoder port.ImageDecoder, detector port.FaceDetector, logger *zap.Logger) *FrameAnalyzer {
	return &FrameAnalyzer{decoder: decoder, detector: detector, logger: logger}
}

// Analyze returns metrics for the first detected face, or an error result.
// The Time field is left for the caller to fill in.
func (a *FrameAnalyzer) Analyze(ctx context.Context, imagePath string) (result entity.FrameResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic while analyzing frame",
				zap.String("frame", imagePath),
				zap.Any("panic", r),
			)
			result = entity.ErrorResult(fmt.Sprintf("panic: %v", r))
		}
		metrics.FrameAnalysisDuration.Observe(time.Since(start).Seconds())
		metrics.FramesAnalyzedTotal.WithLabelValues(outcome(result)).Inc()
	}()

	img, err := a.decoder.Decode(ctx, imagePath)
	if err != nil {
		a.logger.Debug("frame decode failed", zap.String("frame", imagePath), zap.Error(err))
		return entity.ErrorResult(err.Error())
	}

	faces, err := a.detector.Detect(ctx, img)
	if err != nil {
		a.logger.Debug("face detection failed", zap.String("frame", imagePath), zap.Error(err))
		return entity.ErrorResult(err.Error())
	}
	if len(faces) == 0 {
		return entity.ErrorResult(entity.MsgNoFace)
	}

	return entity.MetricsResult(affect.Derive(faces[0].Blendshapes))
}

func outcome(r entity.FrameResult) string {
	switch {
	case r.OK():
		return metrics.OutcomeMetrics
	case r.Error == entity.MsgNoFace:
		return metrics.OutcomeNoFace
	default:
		return metrics.OutcomeError
	}
}
