// Package app wires the frame analysis pipeline shared by every binary.
package app

import (
	"context"
	"fmt"

	"github.com/oenmin/affect-analyzer/internal/infra/config"
	"github.com/oenmin/affect-analyzer/internal/infra/ffmpeg"
	"github.com/oenmin/affect-analyzer/internal/infra/imaging"
	"github.com/oenmin/affect-analyzer/internal/infra/landmarker"
	"github.com/oenmin/affect-analyzer/internal/infra/metrics"
	"github.com/oenmin/affect-analyzer/internal/usecase"
	"go.uber.org/zap"
)

type Pipeline struct {
	Landmarker *landmarker.Landmarker
	Video      *usecase.AnalyzeVideoUseCase
}

// NewPipeline builds the pipeline. The landmarker is created but not loaded.
func NewPipeline(cfg *config.Config, log *zap.Logger) *Pipeline {
	lm := landmarker.New(landmarker.Config{
		Command:   cfg.LandmarkerCommand,
		Script:    cfg.LandmarkerScript,
		ModelPath: cfg.LandmarkerModelPath,
		NumFaces:  cfg.LandmarkerNumFaces,
	}, log.Named("landmarker"))

	extractor := ffmpeg.NewExtractor(cfg.FrameRate, cfg.FrameFormat, log.Named("ffmpeg"))
	analyzer := usecase.NewFrameAnalyzer(imaging.NewDecoder(cfg.MaxImageSide), lm, log)
	runner := usecase.NewBatchRunner(analyzer, log)

	return &Pipeline{
		Landmarker: lm,
		Video:      usecase.NewAnalyzeVideoUseCase(extractor, runner, log),
	}
}

// LoadModel starts the landmarker worker and records readiness in metrics.
func (p *Pipeline) LoadModel(ctx context.Context, log *zap.Logger) error {
	log.Info("loading face landmarker model")
	if err := p.Landmarker.Load(ctx); err != nil {
		return fmt.Errorf("load face landmarker: %w", err)
	}
	metrics.ModelLoaded.Set(1)
	return nil
}

func (p *Pipeline) Close(log *zap.Logger) {
	metrics.ModelLoaded.Set(0)
	if err := p.Landmarker.Close(); err != nil {
		log.Warn("failed to stop landmarker", zap.Error(err))
	}
}
