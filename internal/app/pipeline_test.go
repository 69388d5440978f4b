package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/oenmin/affect-analyzer/internal/domain/port"
	"github.com/oenmin/affect-analyzer/internal/infra/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewPipeline(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	p := NewPipeline(cfg, zap.NewNop())
	assert.False(t, p.Landmarker.Ready())

	var _ port.ModelReadiness = p.Landmarker
}

func TestPipelineLoadModelFailure(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.LandmarkerCommand = filepath.Join(t.TempDir(), "missing-python")

	p := NewPipeline(cfg, zap.NewNop())
	defer p.Close(zap.NewNop())

	err = p.LoadModel(context.Background(), zap.NewNop())
	assert.ErrorContains(t, err, "load face landmarker")
	assert.False(t, p.Landmarker.Ready())
}

func TestPipelineRejectsMissingVideo(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	p := NewPipeline(cfg, zap.NewNop())

	_, err = p.Video.Execute(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), t.TempDir(), nil)
	assert.ErrorIs(t, err, port.ErrFrameExtraction)
}
