package ports

import (
	"context"

	"tagsync/internal/core/domain"
)

// Searcher defines the contract for querying the hashtag search API.
type Searcher interface {
	// Search returns up to limit descriptors of the given kind matching
	// the hashtag, each with a non-empty ID and SourceURL. A single
	// attempt is made; failures are not retried here.
	Search(ctx context.Context, hashtag string, kind domain.MediaKind, limit int) ([]domain.VideoDescriptor, error)
}

// Downloader defines the contract for fetching media bytes to disk.
type Downloader interface {
	// Download fetches the descriptor's source URL and writes it to
	// destPath. On failure destPath does not exist; partial files are
	// never left behind.
	Download(ctx context.Context, desc domain.VideoDescriptor, destPath string) (*domain.DownloadedVideo, error)
}

// Uploader defines the contract for publishing a downloaded video to the
// destination platform.
type Uploader interface {
	// Upload submits the video and returns a terminal result recording
	// the attempt count and outcome. It does not return an error; all
	// failures are captured in the result.
	Upload(ctx context.Context, video *domain.DownloadedVideo) domain.UploadResult
}

// Storage defines the contract for laying out run artifacts on disk.
type Storage interface {
	// InitRun creates the run directory structure.
	InitRun(ctx context.Context, runID string) error

	// MediaPath returns the destination path for a descriptor's media file.
	MediaPath(runID string, desc domain.VideoDescriptor) string

	// SaveSummary persists the run summary artifact.
	SaveSummary(ctx context.Context, runID string, summary *domain.RunSummary) error

	// RunPath returns the filesystem path for a given run ID.
	RunPath(runID string) string
}
