// Package localstorage lays out run artifacts on the local filesystem.
package localstorage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tagsync/internal/core/domain"
)

// LocalStorage implements ports.Storage. Each run gets its own directory
// under {BaseDir}/runs/{runID} holding the downloaded media and a summary
// artifact. Files are retained after upload and across crashes; run IDs
// keep directories from colliding.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

// InitRun creates the run directory.
func (s *LocalStorage) InitRun(ctx context.Context, runID string) error {
	path := s.RunPath(runID)
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create run directory %s: %w", path, err)
	}
	return nil
}

// MediaPath returns the destination path for a descriptor's media file,
// named {tag}_{id}_{kind} with an extension matching the media type.
func (s *LocalStorage) MediaPath(runID string, desc domain.VideoDescriptor) string {
	ext := ".mp4"
	if desc.Kind == domain.KindImage {
		ext = ".jpg"
	}
	filename := fmt.Sprintf("%s_%s_%s%s", desc.Hashtag, desc.ID, desc.Kind, ext)
	return filepath.Join(s.RunPath(runID), filename)
}

// SaveSummary writes the run summary artifact. The write goes through a
// temp file and rename so a crash never leaves a truncated summary.
func (s *LocalStorage) SaveSummary(ctx context.Context, runID string, summary *domain.RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	path := filepath.Join(s.RunPath(runID), "summary.json")
	tmp, err := os.CreateTemp(s.RunPath(runID), ".summary-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create summary temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close summary: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save summary.json: %w", err)
	}
	return nil
}

// RunPath returns the path for a run directory.
func (s *LocalStorage) RunPath(runID string) string {
	return filepath.Join(s.BaseDir, "runs", runID)
}
