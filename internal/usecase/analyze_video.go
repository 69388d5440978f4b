package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/oenmin/affect-analyzer/internal/domain/entity"
	"github.com/oenmin/affect-analyzer/internal/domain/port"
	"github.com/oenmin/affect-analyzer/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type VideoAnalysis struct {
	Run           entity.AnalysisRun
	Summary       entity.Summary
	FramePaths    []string
	VideoDuration float64
}

// AnalyzeVideoUseCase samples a video into frames and analyzes all of them.
type AnalyzeVideoUseCase struct {
	extractor port.FrameExtractor
	runner    *BatchRunner
	logger    *zap.Logger
}

func NewAnalyzeVideoUseCase(extractor port.FrameExtractor, runner *BatchRunner, logger *zap.Logger) *AnalyzeVideoUseCase {
	return &AnalyzeVideoUseCase{extractor: extractor, runner: runner, logger: logger}
}

// Execute extracts frames of videoPath into framesDir, which must exist, and
// runs the batch over them. Extraction failures wrap port.ErrFrameExtraction.
func (uc *AnalyzeVideoUseCase) Execute(ctx context.Context, videoPath, framesDir string, progress ProgressFunc) (*VideoAnalysis, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "AnalyzeVideoUseCase.Execute")
	defer span.End()

	rate := uc.extractor.FrameRate()
	span.SetAttributes(
		attribute.String("video.path", videoPath),
		attribute.Float64("video.sampling_rate", rate),
	)

	exStart := time.Now()
	exCtx, spanEx := tracer.Start(ctx, "extract_frames")
	extracted, err := uc.extractor.ExtractFrames(exCtx, videoPath, framesDir)
	spanEx.End()
	if err != nil {
		uc.fail(span, err)
		return nil, fmt.Errorf("extract frames: %w", err)
	}
	if extracted.FrameCount == 0 || len(extracted.FramePaths) == 0 {
		err := fmt.Errorf("%w: no frames extracted from video", port.ErrFrameExtraction)
		uc.fail(span, err)
		return nil, err
	}
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())
	metrics.FramesExtractedTotal.Add(float64(len(extracted.FramePaths)))

	uc.logger.Info("analyzing frames",
		zap.String("video", videoPath),
		zap.Int("frames", len(extracted.FramePaths)),
	)

	anStart := time.Now()
	anCtx, spanAn := tracer.Start(ctx, "analyze_frames")
	run, err := uc.runner.Run(anCtx, extracted.FramePaths, rate, progress)
	spanAn.End()
	if err != nil {
		uc.fail(span, err)
		return nil, fmt.Errorf("analyze frames: %w", err)
	}
	metrics.StageDuration.WithLabelValues("analyze").Observe(time.Since(anStart).Seconds())

	summary := run.Summarize(rate)
	span.SetAttributes(
		attribute.Int("analysis.frames", summary.TotalFrames),
		attribute.Int("analysis.face_frames", summary.FaceFrames),
	)
	metrics.RunsTotal.WithLabelValues("completed").Inc()

	uc.logger.Info("video analysis finished",
		zap.Int("frames", summary.TotalFrames),
		zap.Int("face_frames", summary.FaceFrames),
		zap.Float64("duration_analyzed_sec", summary.DurationSec),
	)

	return &VideoAnalysis{
		Run:           run,
		Summary:       summary,
		FramePaths:    extracted.FramePaths,
		VideoDuration: extracted.VideoDuration,
	}, nil
}

func (uc *AnalyzeVideoUseCase) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.RunsTotal.WithLabelValues("failed").Inc()
}
