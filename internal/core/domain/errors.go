package domain

import (
	"errors"
	"fmt"
)

// SearchError indicates a hashtag search failed. The caller skips to the
// next hashtag; searches are never retried.
type SearchError struct {
	Hashtag string
	Err     error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %q failed: %v", e.Hashtag, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// DownloadError indicates a media download failed after exhausting its
// retry budget.
type DownloadError struct {
	ID  string
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s failed: %v", e.ID, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// UploadError indicates an upload leg failed. Transient errors (5xx,
// network) are eligible for retry; permanent errors (4xx) are not.
type UploadError struct {
	ID         string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload %s failed: status %d: %v", e.ID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upload %s failed: %v", e.ID, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried. Network-level and
// unclassified errors count as transient; only an explicitly permanent
// UploadError does not.
func IsTransient(err error) bool {
	var ue *UploadError
	if errors.As(err, &ue) {
		return ue.Transient
	}
	return true
}
