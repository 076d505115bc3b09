// Package cachefs implements CacheManager: the on-disk LRU-by-mtime cache
// of downloaded wallpaper bytes (spec §4.9), shared between Downloader
// (exclusive writer per id) and the eviction pass (exclusive over the
// whole directory for the eviction window).
package cachefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dixieflatline76/spicetaste/pkg/errs"
)

// DefaultBudgetBytes is the default on-disk cache budget (spec §4.9: "450
// MiB by default, configurable").
const DefaultBudgetBytes = 450 * 1024 * 1024

// evictionTargetFraction is how far eviction drains the cache once
// triggered: down to 80% of budget, not just under it, so a single insert
// does not immediately re-trigger eviction.
const evictionTargetFraction = 0.80

// Manager is the thread-safe on-disk cache, namespaced by rootDir. Files
// are named "{id}.img" (source) and optionally "{id}_cropped.img" (the
// pre-cropped variant, so the preview matches what gets applied).
type Manager struct {
	mu        sync.Mutex
	rootDir   string
	budget    int64
	onEvicted func(id string) // hook so DownloadQueue can flip downloaded=false
}

// New returns a Manager rooted at rootDir with the given byte budget.
// onEvicted, if non-nil, is called synchronously for every id evicted.
func New(rootDir string, budgetBytes int64, onEvicted func(id string)) *Manager {
	if budgetBytes <= 0 {
		budgetBytes = DefaultBudgetBytes
	}
	return &Manager{rootDir: rootDir, budget: budgetBytes, onEvicted: onEvicted}
}

// EnsureDir creates the cache root directory if absent.
func (m *Manager) EnsureDir() error {
	if err := os.MkdirAll(m.rootDir, 0o755); err != nil {
		return fmt.Errorf("cachefs: create root %s: %w", m.rootDir, err)
	}
	return nil
}

// SourcePath returns the path a wallpaper's source bytes live at.
func (m *Manager) SourcePath(id string) string {
	return filepath.Join(m.rootDir, id+".img")
}

// CroppedPath returns the path a wallpaper's precomputed crop lives at.
func (m *Manager) CroppedPath(id string) string {
	return filepath.Join(m.rootDir, id+"_cropped.img")
}

// Has reports whether the source file for id is present on disk.
func (m *Manager) Has(id string) bool {
	_, err := os.Stat(m.SourcePath(id))
	return err == nil
}

// HasCropped reports whether the precomputed crop for id is present.
func (m *Manager) HasCropped(id string) bool {
	_, err := os.Stat(m.CroppedPath(id))
	return err == nil
}

// entry is one tracked cache file's eviction bookkeeping.
type entry struct {
	id      string
	path    string
	size    int64
	modTime int64 // unix nanos
}

// AfterInsert is called by Downloader once a new file for id has been
// committed to disk (atomic rename already completed). It checks the
// total cache size and, if over budget, evicts oldest-mtime files first
// until usage is at or below evictionTargetFraction of the budget (spec
// §4.9, §8 invariant 7).
func (m *Manager) AfterInsert() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, total, err := m.scanLocked()
	if err != nil {
		return err
	}
	if total <= m.budget {
		return nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].modTime < entries[j].modTime })

	target := int64(float64(m.budget) * evictionTargetFraction)
	for _, e := range entries {
		if total <= target {
			break
		}
		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: remove %s: %v", errs.ErrCacheIO, e.path, err)
		}
		total -= e.size
		if m.onEvicted != nil {
			m.onEvicted(e.id)
		}
	}
	return nil
}

// Evict removes id's source and cropped files from disk unconditionally,
// used by Scheduler's cleanup duty for currently-disliked ids.
func (m *Manager) Evict(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range []string{m.SourcePath(id), m.CroppedPath(id)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: remove %s: %v", errs.ErrCacheIO, p, err)
		}
	}
	return nil
}

// TotalBytes returns the current total size of tracked cache files.
func (m *Manager) TotalBytes() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, total, err := m.scanLocked()
	return total, err
}

func (m *Manager) scanLocked() ([]entry, int64, error) {
	files, err := os.ReadDir(m.rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("%w: scan %s: %v", errs.ErrCacheIO, m.rootDir, err)
	}

	entries := make([]entry, 0, len(files))
	var total int64
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		id := idFromFilename(f.Name())
		e := entry{id: id, path: filepath.Join(m.rootDir, f.Name()), size: info.Size(), modTime: info.ModTime().UnixNano()}
		entries = append(entries, e)
		total += e.size
	}
	return entries, total, nil
}

func idFromFilename(name string) string {
	name = strings.TrimSuffix(name, ".img")
	name = strings.TrimSuffix(name, "_cropped")
	return name
}
