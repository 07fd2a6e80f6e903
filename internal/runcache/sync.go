package runcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cideploy/internal/workflow"
)

// Feed fetches pages of workflow runs
type Feed interface {
	// Runs returns one page of runs and the URL of the next page,
	// or "" when there are no more pages.
	Runs(ctx context.Context, url string) ([]workflow.Run, string, error)
}

// Syncer refreshes a cache from a remote workflow run feed
type Syncer struct {
	feed   Feed
	logger *slog.Logger
}

// NewSyncer creates a syncer for the given feed
func NewSyncer(feed Feed, logger *slog.Logger) *Syncer {
	return &Syncer{feed: feed, logger: logger}
}

// Sync merges runs from the feed at feedURL into cache. Pagination stops
// early once a page contains a run that is already cached in completed
// state: completed runs never change, so all older pages are known.
//
// A non-success feed response halts pagination but is not an error;
// the tool proceeds with whatever is cached. Persisting the cache is
// the caller's responsibility and must happen even when Sync fails,
// so partial progress is never lost.
func (s *Syncer) Sync(ctx context.Context, cache *Cache, feedURL string) error {
	var updated int
	url := feedURL
	synced := false

	for !synced {
		s.logger.Info("fetching workflow runs", "url", url)

		runs, next, err := s.feed.Runs(ctx, url)
		if err != nil {
			var statusErr *workflow.StatusError
			if errors.As(err, &statusErr) {
				s.logger.Warn("feed returned unexpected status, continuing with cached runs",
					"status", statusErr.Code,
					"body", statusErr.Body)
				break
			}
			return fmt.Errorf("failed to fetch workflow runs: %w", err)
		}

		for _, run := range runs {
			if prev, ok := cache.Get(run.ID); ok && prev.Completed() {
				synced = true
			} else {
				updated++
			}
			run.Workflow = feedURL
			cache.Put(run)
		}

		if next == "" {
			break
		}
		url = next
	}

	s.logger.Info("workflow run cache updated", "runs", updated, "total", cache.Len())
	return nil
}
