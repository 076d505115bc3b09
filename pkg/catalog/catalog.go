package catalog

import (
	"sync/atomic"
)

// snapshot is the immutable state a Catalog points to. Refreshing the
// catalog builds a brand new snapshot and atomically swaps the pointer;
// a SimilarityEngine ranking pass that grabbed a snapshot at call time
// never observes a torn update (spec §5: "Similarity ranking sees an
// immutable snapshot of (Catalog, taste_vector) taken at call time").
type snapshot struct {
	manifest Manifest
	byID     map[string]WallpaperMeta
}

// Catalog is the in-memory index over the wallpaper manifest. Catalog is
// read-only between refreshes; RefreshFromManifest replaces the whole index.
type Catalog struct {
	current atomic.Pointer[snapshot]
}

// New returns an empty Catalog. Callers must call RefreshFromManifest
// before ranking against it.
func New() *Catalog {
	c := &Catalog{}
	c.current.Store(&snapshot{byID: map[string]WallpaperMeta{}})
	return c
}

// RefreshFromManifest replaces the catalog's contents with m's wallpapers.
// This is catalog sync's "insert_all, replacing contents" per spec §3's
// WallpaperMeta lifecycle.
func (c *Catalog) RefreshFromManifest(m Manifest) {
	idx := make(map[string]WallpaperMeta, len(m.Wallpapers))
	for _, w := range m.Wallpapers {
		idx[w.ID] = w
	}
	c.current.Store(&snapshot{manifest: m, byID: idx})
}

// Snapshot is a point-in-time, read-only view of the catalog, safe to hold
// across a ranking pass without observing a concurrent refresh.
type Snapshot struct {
	snap *snapshot
}

// Snap captures the catalog's current snapshot.
func (c *Catalog) Snap() Snapshot {
	return Snapshot{snap: c.current.Load()}
}

// Get returns the wallpaper with the given id, if present in this
// snapshot.
func (s Snapshot) Get(id string) (WallpaperMeta, bool) {
	w, ok := s.snap.byID[id]
	return w, ok
}

// All returns every wallpaper in this snapshot. The returned slice is a
// fresh copy safe for the caller to mutate or sort.
func (s Snapshot) All() []WallpaperMeta {
	out := make([]WallpaperMeta, 0, len(s.snap.byID))
	for _, w := range s.snap.manifest.Wallpapers {
		out = append(out, w)
	}
	return out
}

// Len returns the number of wallpapers in this snapshot.
func (s Snapshot) Len() int {
	return len(s.snap.byID)
}

// Empty reports whether this snapshot has no wallpapers.
func (s Snapshot) Empty() bool {
	return s.Len() == 0
}

// ModelVersion returns the embedding model version this snapshot's
// wallpapers were embedded with.
func (s Snapshot) ModelVersion() string {
	return s.snap.manifest.ModelVersion
}

// EmbeddingDim returns the manifest's declared embedding dimension.
func (s Snapshot) EmbeddingDim() int {
	return s.snap.manifest.EmbeddingDim
}
