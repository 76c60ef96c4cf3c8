// Package socialverse implements the upload port against the Socialverse
// posts API. Publishing is a three-leg sequence: request a pre-signed
// upload URL, PUT the media bytes, then create the post referencing the
// returned hash.
package socialverse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"tagsync/internal/config"
	"tagsync/internal/core/domain"
)

const (
	defaultBaseURL = "https://api.socialverseapp.com"

	// 1 initial attempt + 3 retries on transient failure.
	maxAttempts = 4

	requestTimeout = 30 * time.Second
	// The media PUT can move hundreds of megabytes.
	putTimeout = 5 * time.Minute
)

// Uploader implements ports.Uploader using the Socialverse REST API.
type Uploader struct {
	baseURL        string
	token          string
	categoryID     int
	client         *http.Client
	putClient      *http.Client
	logger         *zap.Logger
	initialBackoff time.Duration
}

// NewUploader creates an uploader from the Flic token in cfg.
func NewUploader(cfg *config.Config, logger *zap.Logger) *Uploader {
	return &Uploader{
		baseURL:        defaultBaseURL,
		token:          cfg.FlicToken,
		categoryID:     cfg.CategoryID,
		client:         &http.Client{Timeout: requestTimeout},
		putClient:      &http.Client{Timeout: putTimeout},
		logger:         logger,
		initialBackoff: time.Second,
	}
}

// Upload runs the three-leg sequence for one downloaded video. Transient
// failures (5xx, network errors) restart the sequence with exponential
// backoff up to the attempt ceiling; permanent failures (4xx) stop
// immediately. A successful result means the video is publicly visible on
// the platform, so the sequence runs at most once past success.
func (u *Uploader) Upload(ctx context.Context, video *domain.DownloadedVideo) domain.UploadResult {
	result := domain.UploadResult{Descriptor: video.Descriptor}

	operation := func() error {
		result.Attempts++
		err := u.uploadOnce(ctx, video)
		if err == nil {
			return nil
		}
		u.logger.Warn("upload attempt failed",
			zap.String("id", video.Descriptor.ID),
			zap.Int("attempt", result.Attempts),
			zap.Error(err))
		if !domain.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = u.initialBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, maxAttempts-1), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		result.ErrorMessage = errorMessage(err)
		return result
	}

	result.Success = true
	u.logger.Info("upload completed",
		zap.String("id", video.Descriptor.ID),
		zap.Int("attempts", result.Attempts))
	return result
}

// uploadOnce executes one full pass through the three legs.
func (u *Uploader) uploadOnce(ctx context.Context, video *domain.DownloadedVideo) error {
	id := video.Descriptor.ID

	uploadURL, hash, err := u.generateUploadURL(ctx, id, video.SizeBytes)
	if err != nil {
		return err
	}

	if err := u.putFile(ctx, id, uploadURL, video.LocalPath, video.SizeBytes); err != nil {
		return err
	}

	return u.createPost(ctx, id, video.LocalPath, hash)
}

// generateUploadURL asks the platform for a pre-signed URL and a content
// hash to reference when creating the post.
func (u *Uploader) generateUploadURL(ctx context.Context, id string, fileSize int64) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body, _ := json.Marshal(map[string]int64{"file_size": fileSize})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		u.baseURL+"/posts/generate-upload-url", bytes.NewReader(body))
	if err != nil {
		return "", "", &domain.UploadError{ID: id, Err: err}
	}
	req.Header.Set("Flic-Token", u.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", "", &domain.UploadError{ID: id, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(id, resp.StatusCode); err != nil {
		return "", "", err
	}

	var payload struct {
		Status string `json:"status"`
		URL    string `json:"url"`
		Hash   string `json:"hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", &domain.UploadError{ID: id, Transient: true, Err: fmt.Errorf("malformed upload-url response: %w", err)}
	}
	if payload.Status != "success" || payload.URL == "" {
		return "", "", &domain.UploadError{ID: id, Err: fmt.Errorf("upload URL not granted: status %q", payload.Status)}
	}
	return payload.URL, payload.Hash, nil
}

// putFile streams the media bytes to the pre-signed URL, showing byte
// progress on the terminal.
func (u *Uploader) putFile(ctx context.Context, id, uploadURL, path string, size int64) error {
	ctx, cancel := context.WithTimeout(ctx, putTimeout)
	defer cancel()

	f, err := os.Open(path)
	if err != nil {
		return &domain.UploadError{ID: id, Err: fmt.Errorf("failed to open media file: %w", err)}
	}
	defer f.Close()

	bar := progressbar.DefaultBytes(size, filepath.Base(path))
	reader := progressbar.NewReader(f, bar)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, &reader)
	if err != nil {
		return &domain.UploadError{ID: id, Err: err}
	}
	req.Header.Set("Content-Type", "video/mp4")
	req.ContentLength = size

	resp, err := u.putClient.Do(req)
	if err != nil {
		return &domain.UploadError{ID: id, Transient: true, Err: fmt.Errorf("media upload failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return classifyStatus(id, resp.StatusCode)
	}
	return nil
}

// createPost publishes the uploaded media as a post.
func (u *Uploader) createPost(ctx context.Context, id, path, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "_upload"
	body, _ := json.Marshal(map[string]interface{}{
		"title":                       title,
		"hash":                        hash,
		"is_available_in_public_feed": false,
		"category_id":                 u.categoryID,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/posts", bytes.NewReader(body))
	if err != nil {
		return &domain.UploadError{ID: id, Err: err}
	}
	req.Header.Set("Flic-Token", u.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return &domain.UploadError{ID: id, Transient: true, Err: fmt.Errorf("post creation failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return classifyStatus(id, resp.StatusCode)
	}
	return nil
}

// classifyStatus maps a non-success HTTP status to the retry taxonomy:
// 5xx is transient, 4xx is permanent.
func classifyStatus(id string, code int) error {
	switch {
	case code >= 200 && code <= 299:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &domain.UploadError{ID: id, StatusCode: code, Err: fmt.Errorf("auth error")}
	case code >= 400 && code < 500:
		return &domain.UploadError{ID: id, StatusCode: code, Err: fmt.Errorf("request rejected")}
	default:
		return &domain.UploadError{ID: id, StatusCode: code, Transient: true, Err: fmt.Errorf("server error")}
	}
}

// errorMessage flattens the final error into the UploadResult message,
// unwrapping the backoff sentinel if present.
func errorMessage(err error) string {
	var ue *domain.UploadError
	if errors.As(err, &ue) {
		if ue.StatusCode != 0 {
			return fmt.Sprintf("%v (status %d)", ue.Err, ue.StatusCode)
		}
		return ue.Err.Error()
	}
	return err.Error()
}
