// Package service coordinates the search, download and upload steps of a run.
package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"tagsync/internal/core/domain"
	"tagsync/internal/core/ports"
)

// Orchestrator drives the pipeline: for each hashtag it searches, then
// downloads and uploads each result in order. A failure in one hashtag
// never aborts the others; nothing below the orchestrator terminates the
// process.
type Orchestrator struct {
	searcher   ports.Searcher
	downloader ports.Downloader
	uploader   ports.Uploader
	storage    ports.Storage
	logger     *zap.Logger

	// pause runs between downloads to avoid hammering the source CDN.
	pause func(ctx context.Context) error
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	searcher ports.Searcher,
	downloader ports.Downloader,
	uploader ports.Uploader,
	storage ports.Storage,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		searcher:   searcher,
		downloader: downloader,
		uploader:   uploader,
		storage:    storage,
		logger:     logger,
		pause:      jitterPause,
	}
}

// Run executes one complete pass over the given hashtags, fetching and
// re-uploading up to perTag videos for each. The returned summary covers
// every hashtag, including those that failed; the error is non-nil only
// for failures that prevent the run itself (storage init, cancellation).
func (o *Orchestrator) Run(ctx context.Context, tags []string, perTag int) (*domain.RunSummary, error) {
	runID := uuid.New().String()
	summary := &domain.RunSummary{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
	}

	o.logger.Info("starting run",
		zap.String("run_id", runID),
		zap.Strings("hashtags", tags),
		zap.Int("per_tag", perTag))

	if err := o.storage.InitRun(ctx, runID); err != nil {
		return nil, fmt.Errorf("failed to init run: %w", err)
	}

	var runErrs error
	for _, tag := range tags {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report, err := o.processTag(ctx, runID, tag, perTag)
		summary.Reports = append(summary.Reports, report)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			runErrs = multierror.Append(runErrs, multierror.Prefix(err, fmt.Sprintf("[%s]", tag)))
		}
	}
	summary.CompletedAt = time.Now().UTC()

	if runErrs != nil {
		o.logger.Warn("run completed with errors", zap.String("run_id", runID), zap.Error(runErrs))
	}
	if err := o.storage.SaveSummary(ctx, runID, summary); err != nil {
		o.logger.Warn("failed to save run summary", zap.String("run_id", runID), zap.Error(err))
	}

	totals := summary.Totals()
	o.logger.Info("run completed",
		zap.String("run_id", runID),
		zap.Int("searched", totals.Searched),
		zap.Int("downloaded", totals.Downloaded),
		zap.Int("uploaded", totals.Uploaded),
		zap.Int("failed", totals.Failed))
	return summary, nil
}

// processTag handles one hashtag end to end. Per-item failures are counted
// in the report and collected into the returned error; they never stop the
// remaining items.
func (o *Orchestrator) processTag(ctx context.Context, runID, tag string, perTag int) (domain.TagReport, error) {
	report := domain.TagReport{Hashtag: tag}

	descriptors, err := o.searcher.Search(ctx, tag, domain.KindVideo, perTag)
	if err != nil {
		o.logger.Error("search failed, skipping hashtag",
			zap.String("hashtag", tag), zap.Error(err))
		return report, err
	}
	report.Searched = len(descriptors)
	if len(descriptors) == 0 {
		o.logger.Info("no results for hashtag", zap.String("hashtag", tag))
		return report, nil
	}

	var tagErrs error
	for _, desc := range descriptors {
		if err := o.pause(ctx); err != nil {
			return report, err
		}

		video, err := o.downloader.Download(ctx, desc, o.storage.MediaPath(runID, desc))
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			o.logger.Error("download failed, skipping video",
				zap.String("id", desc.ID), zap.Error(err))
			report.Failed++
			tagErrs = multierror.Append(tagErrs, err)
			continue
		}
		report.Downloaded++

		result := o.uploader.Upload(ctx, video)
		if result.Success {
			report.Uploaded++
		} else {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed++
			tagErrs = multierror.Append(tagErrs,
				fmt.Errorf("upload %s failed after %d attempts: %s",
					desc.ID, result.Attempts, result.ErrorMessage))
		}
	}
	return report, tagErrs
}

// jitterPause sleeps for a random 0.5-1.5s, returning early if the context
// is cancelled.
func jitterPause(ctx context.Context) error {
	delay := 500*time.Millisecond + time.Duration(rand.Int63n(int64(time.Second)))
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
