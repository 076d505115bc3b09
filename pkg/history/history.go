// Package history implements HistoryLog: the append-only record of every
// wallpaper applied, with exactly one active (un-sealed) row at a time
// (spec §4.13).
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxEntries is the cap HistoryLog trims to during cleanup (spec §6:
// "wallpaper_history (capped 100)").
const MaxEntries = 100

// Entry is one applied-wallpaper record. RemovedAt is nil while the entry
// is the active (currently-applied) wallpaper.
type Entry struct {
	ID                     string
	WallpaperID            string
	AppliedAt              time.Time
	RemovedAt              *time.Time
	Manual                 bool
	ImplicitFeedbackApplied bool
}

// Log is the mutex-guarded, append-only store, styled after the teacher's
// capped-table grooming idiom in pkg/wallpaper/store.go.
type Log struct {
	mu      sync.Mutex
	entries []Entry // newest last
}

// New returns an empty Log.
func New() *Log {
	return &Log{}
}

// Active returns the current un-sealed entry, if any.
func (l *Log) Active() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].RemovedAt == nil {
			return l.entries[i], true
		}
	}
	return Entry{}, false
}

// SealActive marks the current active entry removed at now, if one
// exists. A no-op if the log is empty or already fully sealed (spec §8
// invariant 5: "exactly one HistoryEntry has removed_at=null, or the
// table is empty").
func (l *Log) SealActive(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].RemovedAt == nil {
			t := now
			l.entries[i].RemovedAt = &t
			return
		}
	}
}

// Insert seals any currently-active entry (defensive; callers should
// already have called SealActive) and appends a fresh active entry for
// wallpaperID, returning its generated id.
func (l *Log) Insert(wallpaperID string, manual bool, now time.Time) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].RemovedAt == nil {
			t := now
			l.entries[i].RemovedAt = &t
		}
	}

	id := uuid.NewString()
	l.entries = append(l.entries, Entry{
		ID: id, WallpaperID: wallpaperID, AppliedAt: now, Manual: manual,
	})
	return id
}

// MarkImplicitFeedbackApplied flags entry id so FeedbackProcessor's
// implicit pass is idempotent across replays (spec §4.7, §8 invariant
// 10). No-op if id is not found or already flagged.
func (l *Log) MarkImplicitFeedbackApplied(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries[i].ImplicitFeedbackApplied = true
			return
		}
	}
}

// Recent returns up to limit entries sorted by AppliedAt descending.
func (l *Log) Recent(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	// entries is stored oldest-first (append-only); reverse for
	// applied_at-desc ordering per spec §4.13.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// Trim keeps only the most recent MaxEntries rows, dropping the oldest
// (spec §4.11 cleanup duty: "trims history to 100 rows").
func (l *Log) Trim() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) <= MaxEntries {
		return
	}
	l.entries = l.entries[len(l.entries)-MaxEntries:]
}

// Len returns the number of entries currently stored.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
