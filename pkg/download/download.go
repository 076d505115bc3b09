// Package download implements Downloader: bounded-concurrency fetch of
// queued wallpapers into the on-disk cache (spec §4.10).
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/dixieflatline76/spicetaste/pkg/cachefs"
	"github.com/dixieflatline76/spicetaste/pkg/errs"
	"github.com/dixieflatline76/spicetaste/pkg/queue"
)

// DefaultConcurrency caps in-flight fetches (spec §4.10: "default 3").
const DefaultConcurrency = 3

// Fetcher retrieves a wallpaper's raw bytes from its source URL. The
// default production implementation wraps net/http; tests supply a fake.
type Fetcher func(ctx context.Context, url string) (io.ReadCloser, error)

// Progress is the foreground progress surface Scheduler's batch-download
// duty streams to the UI layer (spec §4.10).
type Progress struct {
	DownloadedCount int
	FailedCount     int
	Total           int
}

// Target is one item Downloader needs to fetch: its queue id and source
// URL.
type Target struct {
	ID  string
	URL string
}

// Downloader bounds concurrent fetches with a semaphore and rate-limits
// outbound requests, writing each result through a temp-file-then-rename
// sequence so a reader never observes a partially-written cache file.
type Downloader struct {
	fetch   Fetcher
	cache   *cachefs.Manager
	queue   *queue.Queue
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// New returns a Downloader bounded to concurrency in-flight fetches, rate
// limited to ratePerSecond requests/sec (0 disables rate limiting).
func New(fetch Fetcher, cache *cachefs.Manager, q *queue.Queue, concurrency int, ratePerSecond float64) *Downloader {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), concurrency)
	}
	return &Downloader{
		fetch:   fetch,
		cache:   cache,
		queue:   q,
		sem:     semaphore.NewWeighted(int64(concurrency)),
		limiter: limiter,
	}
}

// RunBatch fetches every target concurrently (bounded by the Downloader's
// semaphore), reporting progress on progressCh after each completion.
// progressCh, if non-nil, receives one Progress per completed (success or
// failure) target and is closed when the batch finishes.
//
// Cancellation is honored at every suspension point: a target whose
// context is cancelled before or during its fetch counts as neither a
// success nor a retryable failure and its retry_count is left untouched
// (spec §5 cancellation rules).
func (d *Downloader) RunBatch(ctx context.Context, targets []Target, progressCh chan<- Progress) error {
	if progressCh != nil {
		defer close(progressCh)
	}

	total := len(targets)
	var downloaded, failed int
	report := func() {
		if progressCh != nil {
			progressCh <- Progress{DownloadedCount: downloaded, FailedCount: failed, Total: total}
		}
	}

	type result struct {
		ok        bool
		cancelled bool
	}
	results := make(chan result, total)

	for _, target := range targets {
		target := target
		if err := d.sem.Acquire(ctx, 1); err != nil {
			results <- result{cancelled: true}
			continue
		}
		go func() {
			defer d.sem.Release(1)
			err := d.fetchOne(ctx, target)
			switch {
			case err == nil:
				results <- result{ok: true}
			case errors.Is(err, context.Canceled), errors.Is(err, errs.ErrCancelled):
				results <- result{cancelled: true}
			default:
				results <- result{ok: false}
			}
		}()
	}

	for i := 0; i < total; i++ {
		r := <-results
		switch {
		case r.ok:
			downloaded++
		case r.cancelled:
			// neither downloaded nor failed; retry_count untouched
		default:
			failed++
		}
		report()
	}
	return nil
}

// fetchOne downloads a single target, handling queue retry bookkeeping and
// atomic rename into the cache on success.
func (d *Downloader) fetchOne(ctx context.Context, target Target) error {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return errs.ErrCancelled
		}
	}

	body, err := d.fetch(ctx, target.URL)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errs.ErrCancelled
		}
		d.queue.IncrementRetry(target.ID)
		return fmt.Errorf("download: fetch %s: %w", target.ID, err)
	}
	defer body.Close()

	destPath := d.cache.SourcePath(target.ID)
	if err := writeAtomic(destPath, body); err != nil {
		if errors.Is(err, context.Canceled) {
			return errs.ErrCancelled
		}
		d.queue.IncrementRetry(target.ID)
		return fmt.Errorf("download: write %s: %w", target.ID, err)
	}

	d.queue.MarkDownloaded(target.ID)
	d.queue.ResetRetry(target.ID)
	return d.cache.AfterInsert()
}

// writeAtomic writes body to a temp file alongside destPath, fsyncs it,
// then renames it into place, so a concurrent reader never sees a
// partially-written file (spec §4.10: "write temp, fsync, rename").
func writeAtomic(destPath string, body io.Reader) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".download-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, destPath)
}
