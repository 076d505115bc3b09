// Package errs holds the sentinel errors referenced by spec §7's error
// disposition table, so callers across the engine can use errors.Is
// against a single shared set rather than re-declaring the same sentinels
// per package.
package errs

import "errors"

var (
	// ErrNoCandidates is returned by the exploration policy when there is
	// nothing to choose from. Per spec §7, this is not a failure: the
	// orchestrator turns it into a nil result and apply-next succeeds as a
	// no-op.
	ErrNoCandidates = errors.New("spicetaste: no candidates available")

	// ErrLiveWallpaperBlocking is returned when the apply-next sequence is
	// refused because a live-wallpaper guard reports true. No state is
	// mutated when this error surfaces.
	ErrLiveWallpaperBlocking = errors.New("spicetaste: live wallpaper is active, refusing apply")

	// ErrPreferenceWriteSkew is returned when a learner update would leave
	// UserPreferences in a state that violates its unit-taste-vector or
	// clipped-velocity postconditions. The update is dropped rather than
	// persisted.
	ErrPreferenceWriteSkew = errors.New("spicetaste: preference update failed postcondition check")

	// ErrManifestParse is returned for structurally invalid manifest JSON.
	// Per spec §7 this is a terminal failure (no retry).
	ErrManifestParse = errors.New("spicetaste: manifest parse failed")

	// ErrManifestHTTP4xx is a terminal manifest-fetch failure (no retry).
	ErrManifestHTTP4xx = errors.New("spicetaste: manifest fetch returned a client error")

	// ErrManifestNetwork and ErrManifestHTTP5xx are retryable manifest-
	// fetch failures (exponential backoff, up to 3 attempts).
	ErrManifestNetwork = errors.New("spicetaste: manifest fetch network error")
	ErrManifestHTTP5xx = errors.New("spicetaste: manifest fetch returned a server error")

	// ErrDownloadFailed marks a download that exhausted its retry budget
	// (retry_count == 3). The queue item is kept for visibility, not
	// deleted.
	ErrDownloadFailed = errors.New("spicetaste: download permanently failed")

	// ErrCacheIO marks a cache file-system failure. The caller should
	// evict-and-retry once before failing the current apply-next.
	ErrCacheIO = errors.New("spicetaste: cache I/O failure")

	// ErrQueueFull is returned when an insert would exceed the download
	// queue's bounded size and no lower-priority item can be evicted to
	// make room.
	ErrQueueFull = errors.New("spicetaste: download queue is full")

	// ErrCancelled marks an operation that ended because its context was
	// cancelled. A cancelled download must not increment retry_count.
	ErrCancelled = errors.New("spicetaste: operation cancelled")
)
