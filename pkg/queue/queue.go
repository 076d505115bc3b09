// Package queue implements DownloadQueue: the bounded, priority-ordered
// worklist of wallpapers waiting to be cached locally (spec §4.8).
package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/dixieflatline76/spicetaste/pkg/errs"
)

// MaxSize is the hard cap on queue length (spec §8 invariant 6).
const MaxSize = 50

// MaxRetries is the retry ceiling after which an item is considered
// permanently failed but is kept for visibility (spec §4.10).
const MaxRetries = 3

// Item is one wallpaper's download bookkeeping row.
type Item struct {
	ID          string
	Priority    float32
	Downloaded  bool
	RetryCount  int
	InsertedAt  time.Time
}

// Queue is the mutex-guarded map worklist, styled after the
// teacher's ImageStore (RWMutex, id-set for O(1) existence checks).
type Queue struct {
	mu    sync.RWMutex
	items map[string]*Item
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{items: make(map[string]*Item)}
}

// InsertRanked inserts every id in rankedIDs (best-first) with
// priority = 1 - index/len(rankedIDs), rounded to float32, per spec §4.8.
// Existing items keep their Downloaded/RetryCount state; only Priority and
// InsertedAt (for new items) are set. The queue is truncated to MaxSize by
// priority-descending afterward.
func (q *Queue) InsertRanked(rankedIDs []string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(rankedIDs)
	for i, id := range rankedIDs {
		priority := float32(1) - float32(i)/float32(n)
		if existing, ok := q.items[id]; ok {
			existing.Priority = priority
			continue
		}
		q.items[id] = &Item{ID: id, Priority: priority, InsertedAt: timeNow()}
	}
	q.keepTopNLocked(MaxSize)
}

// GetTopUndownloaded returns up to n items with Downloaded=false and
// RetryCount<MaxRetries, priority-desc, id-asc tiebreak.
func (q *Queue) GetTopUndownloaded(n int) []Item {
	q.mu.RLock()
	defer q.mu.RUnlock()

	candidates := make([]Item, 0, len(q.items))
	for _, it := range q.items {
		if !it.Downloaded && it.RetryCount < MaxRetries {
			candidates = append(candidates, *it)
		}
	}
	sortByPriorityThenID(candidates)
	if n < len(candidates) {
		candidates = candidates[:n]
	}
	return candidates
}

// MarkDownloaded flips the downloaded flag for id, if present.
func (q *Queue) MarkDownloaded(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if it, ok := q.items[id]; ok {
		it.Downloaded = true
	}
}

// MarkUndownloaded flips the downloaded flag back off, used by
// CacheManager when it evicts a previously-downloaded file.
func (q *Queue) MarkUndownloaded(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if it, ok := q.items[id]; ok {
		it.Downloaded = false
	}
}

// IncrementRetry bumps an item's retry counter, capping it at MaxRetries
// (retry_count is monotone per id within a run, spec §8 invariant 6).
func (q *Queue) IncrementRetry(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if it, ok := q.items[id]; ok && it.RetryCount < MaxRetries {
		it.RetryCount++
	}
}

// ResetRetry clears an item's retry counter back to 0, used after a
// successful download so a re-queued item starts fresh.
func (q *Queue) ResetRetry(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if it, ok := q.items[id]; ok {
		it.RetryCount = 0
	}
}

// DeleteBelowThreshold removes every item whose priority is strictly below
// p.
func (q *Queue) DeleteBelowThreshold(p float32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, it := range q.items {
		if it.Priority < p {
			delete(q.items, id)
		}
	}
}

// KeepTopN truncates the queue to its n highest-priority items
// (priority-desc, id-asc tiebreak), discarding the rest.
func (q *Queue) KeepTopN(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.keepTopNLocked(n)
}

func (q *Queue) keepTopNLocked(n int) {
	if len(q.items) <= n {
		return
	}
	all := make([]Item, 0, len(q.items))
	for _, it := range q.items {
		all = append(all, *it)
	}
	sortByPriorityThenID(all)
	keep := make(map[string]*Item, n)
	for _, it := range all[:n] {
		keep[it.ID] = q.items[it.ID]
	}
	q.items = keep
}

// Len returns the number of items currently tracked.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

// Get returns a copy of the item for id, if tracked.
func (q *Queue) Get(id string) (Item, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	it, ok := q.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// RetryDelay returns the exponential backoff delay for an item currently
// at retryCount failed attempts: min(60s*2^retryCount, 30min) (spec §4.8).
func RetryDelay(retryCount int) time.Duration {
	base := 60 * time.Second
	capDelay := 30 * time.Minute
	if retryCount < 0 {
		retryCount = 0
	}
	delay := base
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= capDelay {
			return capDelay
		}
	}
	return delay
}

// ErrFull is returned by operations that would exceed MaxSize without any
// lower-priority item available to evict; InsertRanked never returns it
// since it always truncates rather than fails, but InsertSingle (used by
// incremental insert paths) does.
var ErrFull = errs.ErrQueueFull

// InsertSingle inserts or updates a single item's priority. If the queue
// is already at MaxSize and item's priority does not beat the current
// lowest-priority item, ErrFull is returned and the queue is left
// unchanged.
func (q *Queue) InsertSingle(id string, priority float32) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if existing, ok := q.items[id]; ok {
		existing.Priority = priority
		return nil
	}
	if len(q.items) < MaxSize {
		q.items[id] = &Item{ID: id, Priority: priority, InsertedAt: timeNow()}
		return nil
	}

	lowestID, lowestPriority := "", float32(2)
	for existingID, it := range q.items {
		if it.Priority < lowestPriority {
			lowestPriority, lowestID = it.Priority, existingID
		}
	}
	if priority <= lowestPriority {
		return ErrFull
	}
	delete(q.items, lowestID)
	q.items[id] = &Item{ID: id, Priority: priority, InsertedAt: timeNow()}
	return nil
}

func sortByPriorityThenID(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].ID < items[j].ID
	})
}

func timeNow() time.Time { return time.Now() }
