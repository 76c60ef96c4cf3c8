package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tagsync/internal/core/domain"
)

func testDownloader() *HTTPDownloader {
	d := NewHTTPDownloader(zap.NewNop())
	d.retryDelay = time.Millisecond
	return d
}

func descriptorFor(url string) domain.VideoDescriptor {
	return domain.VideoDescriptor{
		ID:        "101",
		SourceURL: url,
		Hashtag:   "sunset",
		Kind:      domain.KindVideo,
	}
}

func TestDownloadSuccess(t *testing.T) {
	content := []byte("fake mp4 bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "sunset_101_video.mp4")
	video, err := testDownloader().Download(context.Background(), descriptorFor(srv.URL), dest)
	require.NoError(t, err)

	assert.Equal(t, dest, video.LocalPath)
	assert.Equal(t, int64(len(content)), video.SizeBytes)

	written, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, written)
}

func TestDownloadRetriesTransientFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "video.mp4")
	video, err := testDownloader().Download(context.Background(), descriptorFor(srv.URL), dest)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, int64(2), video.SizeBytes)
}

func TestDownloadExhaustsRetries(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "no", http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "video.mp4")
	_, err := testDownloader().Download(context.Background(), descriptorFor(srv.URL), dest)

	require.Error(t, err)
	var dlErr *domain.DownloadError
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, "101", dlErr.ID)
	assert.Equal(t, 3, attempts)

	// The destination must not exist after failure.
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadNeverLeavesPartialFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Claim more bytes than are sent, then cut the connection so the
		// body read fails mid-stream.
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte("partial"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "video.mp4")
	_, err := testDownloader().Download(context.Background(), descriptorFor(srv.URL), dest)
	require.Error(t, err)

	// Neither the final file nor any temp file remains.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestDownloadCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(t.TempDir(), "video.mp4")
	_, err := testDownloader().Download(ctx, descriptorFor(srv.URL), dest)
	assert.Error(t, err)
}
