package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/oenmin/affect-analyzer/internal/domain/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
	return p
}

func TestListFramesNumericOrder(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []int{10000, 2, 9999, 1, 10} {
		touch(t, dir, fmt.Sprintf("frame-%04d.jpg", n))
	}
	touch(t, dir, "frame-.jpg")
	touch(t, dir, "frame-0003.png")
	touch(t, dir, "audio.wav")

	frames, err := listFrames(dir, "jpg")
	require.NoError(t, err)

	var names []string
	for _, f := range frames {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{
		"frame-0001.jpg",
		"frame-0002.jpg",
		"frame-0010.jpg",
		"frame-9999.jpg",
		"frame-10000.jpg",
	}, names)
}

func TestExtractFramesMissingInput(t *testing.T) {
	e := NewExtractor(5, "jpg", zap.NewNop())

	_, err := e.ExtractFrames(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, port.ErrFrameExtraction))
}

func TestExtractFramesRejectsDirectory(t *testing.T) {
	e := NewExtractor(5, "jpg", zap.NewNop())

	_, err := e.ExtractFrames(context.Background(), t.TempDir(), t.TempDir())
	assert.ErrorIs(t, err, port.ErrFrameExtraction)
}

func TestExtractFramesInvalidRate(t *testing.T) {
	dir := t.TempDir()
	video := touch(t, dir, "input.mp4")
	e := NewExtractor(0, "jpg", zap.NewNop())

	_, err := e.ExtractFrames(context.Background(), video, dir)
	assert.ErrorIs(t, err, port.ErrFrameExtraction)
	assert.Equal(t, 0.0, e.FrameRate())
}
