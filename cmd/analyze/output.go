package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oenmin/affect-analyzer/internal/domain/entity"
)

// writeResults writes run as one indented JSON array. The file is renamed into
// place so a failed write never leaves a truncated result behind.
func writeResults(path string, run entity.AnalysisRun) error {
	if run == nil {
		run = entity.AnalysisRun{}
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".analysis-*.json")
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close results: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move results into place: %w", err)
	}
	return nil
}
