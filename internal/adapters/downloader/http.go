// Package downloader fetches media bytes over plain HTTP.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"tagsync/internal/core/domain"
)

const (
	attemptTimeout = 30 * time.Second
	maxAttempts    = 3
	retryDelay     = 2 * time.Second
)

// HTTPDownloader implements ports.Downloader using standard HTTP with a
// small fixed retry budget. Bytes are written to a temp file and renamed
// into place, so the destination path never holds a partial download.
type HTTPDownloader struct {
	client     *http.Client
	logger     *zap.Logger
	retryDelay time.Duration
}

// NewHTTPDownloader creates a new HTTPDownloader.
func NewHTTPDownloader(logger *zap.Logger) *HTTPDownloader {
	return &HTTPDownloader{
		client:     &http.Client{},
		logger:     logger,
		retryDelay: retryDelay,
	}
}

// Download fetches the descriptor's media to destPath.
func (d *HTTPDownloader) Download(ctx context.Context, desc domain.VideoDescriptor, destPath string) (*domain.DownloadedVideo, error) {
	var size int64
	attempt := 0

	operation := func() error {
		attempt++
		n, err := d.fetch(ctx, desc.SourceURL, destPath)
		if err != nil {
			d.logger.Warn("download attempt failed",
				zap.String("id", desc.ID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		size = n
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(d.retryDelay), maxAttempts-1),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, &domain.DownloadError{ID: desc.ID, URL: desc.SourceURL, Err: err}
	}

	d.logger.Info("download completed",
		zap.String("id", desc.ID),
		zap.String("path", destPath),
		zap.Int64("bytes", size))

	return &domain.DownloadedVideo{
		Descriptor: desc,
		LocalPath:  destPath,
		SizeBytes:  size,
	}, nil
}

// fetch performs a single download attempt. The destination file appears
// only after the full body has been written and synced.
func (d *HTTPDownloader) fetch(ctx context.Context, sourceURL, destPath string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, backoff.Permanent(fmt.Errorf("failed to create directory %s: %w", dir, err))
	}

	tmp, err := os.CreateTemp(dir, ".tagsync-*.tmp")
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("failed to create temp file: %w", err))
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to write media: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to sync media file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to close media file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to move media into place: %w", err)
	}
	return n, nil
}
