package domain

import "time"

// MediaKind distinguishes the two media types the search API returns.
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindImage MediaKind = "image"
)

// VideoDescriptor identifies a remote media item found by a hashtag search.
// Descriptors are immutable once produced; ID is unique within one search
// response.
type VideoDescriptor struct {
	ID        string            `json:"id"`
	SourceURL string            `json:"source_url"`
	Hashtag   string            `json:"hashtag"`
	Kind      MediaKind         `json:"kind"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// DownloadedVideo is a descriptor whose bytes have been fully written to
// LocalPath. It exists only for the lifetime of the run.
type DownloadedVideo struct {
	Descriptor VideoDescriptor `json:"descriptor"`
	LocalPath  string          `json:"local_path"`
	SizeBytes  int64           `json:"size_bytes"`
}

// UploadResult is the terminal record for one upload attempt sequence.
type UploadResult struct {
	Descriptor   VideoDescriptor `json:"descriptor"`
	Success      bool            `json:"success"`
	Attempts     int             `json:"attempts"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// TagReport aggregates the outcome of one hashtag's processing.
type TagReport struct {
	Hashtag    string `json:"hashtag"`
	Searched   int    `json:"searched"`
	Downloaded int    `json:"downloaded"`
	Uploaded   int    `json:"uploaded"`
	Failed     int    `json:"failed"`
}

// RunSummary holds the outcome of a complete run across all hashtags.
type RunSummary struct {
	RunID       string      `json:"run_id"`
	Reports     []TagReport `json:"reports"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt time.Time   `json:"completed_at"`
}

// Totals sums the per-tag reports.
func (s *RunSummary) Totals() TagReport {
	var t TagReport
	for _, r := range s.Reports {
		t.Searched += r.Searched
		t.Downloaded += r.Downloaded
		t.Uploaded += r.Uploaded
		t.Failed += r.Failed
	}
	return t
}
