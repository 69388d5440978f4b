package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/oenmin/affect-analyzer/internal/domain/entity"
	"github.com/oenmin/affect-analyzer/internal/infra/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteResults(t *testing.T) {
	out := filepath.Join(t.TempDir(), "analysis_results.json")
	run := entity.AnalysisRun{
		{Metrics: &entity.Metrics{Smile: 0.7}, Time: 0},
		{Error: entity.MsgNoFace, Time: 0.2},
	}

	require.NoError(t, writeResults(out, run))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, 0.7, records[0]["smile"])
	assert.Equal(t, "no face detected", records[1]["error"])

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestWriteResultsEmptyRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "analysis_results.json")
	require.NoError(t, writeResults(out, nil))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.TempDir = t.TempDir()
	cfg.OutputPath = filepath.Join(t.TempDir(), "analysis_results.json")
	return cfg
}

func TestRootCmdMissingInput(t *testing.T) {
	cfg := testConfig(t)
	cmd := newRootCmd(cfg)
	cmd.SetArgs([]string{})

	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "no input video")
}

func TestRootCmdNonexistentInputWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	cmd := newRootCmd(cfg)
	cmd.SetArgs([]string{"--no-progress", filepath.Join(t.TempDir(), "missing.mp4")})

	require.Error(t, cmd.ExecuteContext(context.Background()))
	_, err := os.Stat(cfg.OutputPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRootCmdRejectsBadFrameRate(t *testing.T) {
	cfg := testConfig(t)
	cmd := newRootCmd(cfg)
	cmd.SetArgs([]string{"--fps", "0", "video.mp4"})

	assert.ErrorContains(t, cmd.ExecuteContext(context.Background()), "FRAME_RATE")
}
