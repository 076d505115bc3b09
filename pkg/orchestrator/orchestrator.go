// Package orchestrator wires every other package into the apply-next
// sequence (spec §4.12): pick a wallpaper, make sure it is on disk, hand
// it to the external apply primitive, and refill the download queue
// against the updated taste vector. It is a plain struct owning its
// collaborators, styled after the teacher's Plugin struct in
// pkg/wallpaper/wallpaper.go rather than any dependency-injection
// container (spec §9 design notes).
package orchestrator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/dixieflatline76/spicetaste/pkg/cachefs"
	"github.com/dixieflatline76/spicetaste/pkg/catalog"
	"github.com/dixieflatline76/spicetaste/pkg/download"
	"github.com/dixieflatline76/spicetaste/pkg/errs"
	"github.com/dixieflatline76/spicetaste/pkg/exploration"
	"github.com/dixieflatline76/spicetaste/pkg/feedback"
	"github.com/dixieflatline76/spicetaste/pkg/history"
	"github.com/dixieflatline76/spicetaste/pkg/preference"
	"github.com/dixieflatline76/spicetaste/pkg/queue"
	"github.com/dixieflatline76/spicetaste/pkg/similarity"
)

// ApplyTarget selects which screen surface(s) the apply primitive should
// set (spec §6: "target∈{HOME, LOCK, BOTH}").
type ApplyTarget string

const (
	ApplyHome ApplyTarget = "HOME"
	ApplyLock ApplyTarget = "LOCK"
	ApplyBoth ApplyTarget = "BOTH"
)

// ApplyPrimitive and LiveWallpaperGuard are the external collaborators
// spec §6 calls out as "not implemented here": the platform-specific code
// that actually paints the desktop, and the guard that reports whether a
// live (animated) wallpaper is currently active and would be clobbered.
type ApplyPrimitive func(ctx context.Context, filePath string, target ApplyTarget) error
type LiveWallpaperGuard func() bool

// refillTopN is how many wallpapers the queue is refilled with after
// every apply-next (spec §4.12 step 8).
const refillTopN = 50

// preferenceLoadRetries and preferenceLoadPause mirror spec §4.12 step 1
// ("retry up to 5x with 500ms pauses to defeat write-skew"); they are a
// defensive loop rather than a load-bearing one because Store.Get reads
// an atomic.Pointer snapshot and therefore never observes a torn value
// in this implementation (see DESIGN.md).
const (
	preferenceLoadRetries = 5
	preferenceLoadPause   = 500 * time.Millisecond
)

// Orchestrator owns every collaborator the apply-next sequence needs.
type Orchestrator struct {
	Catalog    *catalog.Catalog
	Store      *preference.Store
	Learner    *preference.Learner
	Queue      *queue.Queue
	Cache      *cachefs.Manager
	Downloader *download.Downloader
	History    *history.Log
	Feedback   *feedback.Processor
	Policy     *exploration.Policy

	Apply          ApplyPrimitive
	LiveWallpaper  LiveWallpaperGuard
	ApplyTimeout   time.Duration
	Rng            *rand.Rand
	Now            func() time.Time

	// Sleep is injected so tests can avoid the real preferenceLoadPause.
	Sleep func(time.Duration)
}

// New returns an Orchestrator with sensible defaults for Now/Sleep/ApplyTimeout.
func New() *Orchestrator {
	return &Orchestrator{
		ApplyTimeout: 10 * time.Second,
		Rng:          rand.New(rand.NewPCG(0, 0)),
		Now:          time.Now,
		Sleep:        time.Sleep,
	}
}

// ApplyNext runs one full apply-next sequence. manual distinguishes a
// user-initiated wallpaper change from a scheduled rotation: only a
// manual change feeds the sealed-off previous entry to FeedbackProcessor
// as implicit feedback (spec §4.12 step 6 — a scheduled rotation seals the
// row but the rotation itself is not a user signal worth learning from).
func (o *Orchestrator) ApplyNext(ctx context.Context, manual bool, target ApplyTarget) error {
	if o.LiveWallpaper != nil && o.LiveWallpaper() {
		return errs.ErrLiveWallpaperBlocking
	}

	prefs := o.loadPreferencesWithRetry()

	snap := o.Catalog.Snap()
	candidateIDs := o.buildCandidateIDs(snap)
	if len(candidateIDs) == 0 {
		return nil // NoCandidates succeeds as a no-op, spec §7
	}

	candidates := make([]similarity.Candidate, 0, len(candidateIDs))
	categoryOf := make(map[string]string, len(candidateIDs))
	for _, id := range candidateIDs {
		wp, ok := snap.Get(id)
		if !ok {
			continue
		}
		candidates = append(candidates, similarity.Candidate{
			ID: wp.ID, Embedding: wp.Embedding, Palette: wp.Palette,
			Category: wp.Category, Brightness: wp.Brightness, Contrast: wp.Contrast,
		})
		categoryOf[id] = wp.Category
	}
	if len(candidates) == 0 {
		return nil
	}

	ranked := similarity.Rank(candidates, similarity.Target{Taste: prefs.TasteVector})

	categoryStats, err := o.categoryStats()
	if err != nil {
		return err
	}
	choice, err := o.Policy.Select(ranked, categoryOf, categoryStats, prefs.FeedbackCount, o.Rng)
	if err != nil {
		if err == errs.ErrNoCandidates {
			return nil
		}
		return err
	}

	if err := o.ensureOnDisk(ctx, choice.WallpaperID); err != nil {
		return err
	}

	if prev, ok := o.History.Active(); ok {
		o.History.SealActive(o.Now())
		if manual {
			if wp, ok := snap.Get(prev.WallpaperID); ok {
				_ = o.Feedback.Implicit(sealedCopy(prev, o.Now()), feedback.WallpaperContext{
					ID: wp.ID, Embedding: wp.Embedding, Palette: wp.Palette, Category: wp.Category,
				})
				o.History.MarkImplicitFeedbackApplied(prev.ID)
			}
		}
	}

	applyCtx, cancel := context.WithTimeout(ctx, o.ApplyTimeout)
	defer cancel()
	if err := o.Apply(applyCtx, o.Cache.SourcePath(choice.WallpaperID), target); err != nil {
		return fmt.Errorf("orchestrator: apply primitive: %w", err)
	}

	o.History.Insert(choice.WallpaperID, manual, o.Now())

	return o.refillQueue(snap)
}

func sealedCopy(e history.Entry, now time.Time) history.Entry {
	if e.RemovedAt == nil {
		t := now
		e.RemovedAt = &t
	}
	return e
}

// buildCandidateIDs prefers already-downloaded wallpapers; if none are
// downloaded and the queue is empty, it falls back to the entire catalog
// (spec §4.12 step 2).
func (o *Orchestrator) buildCandidateIDs(snap catalog.Snapshot) []string {
	downloaded := make([]string, 0)
	for _, wp := range snap.All() {
		if o.Cache.Has(wp.ID) {
			downloaded = append(downloaded, wp.ID)
		}
	}
	if len(downloaded) > 0 {
		return downloaded
	}
	if o.Queue.Len() > 0 {
		return nil
	}
	all := make([]string, 0, snap.Len())
	for _, wp := range snap.All() {
		all = append(all, wp.ID)
	}
	return all
}

func (o *Orchestrator) ensureOnDisk(ctx context.Context, id string) error {
	if o.Cache.Has(id) {
		return nil
	}
	snap := o.Catalog.Snap()
	wp, ok := snap.Get(id)
	if !ok {
		return fmt.Errorf("orchestrator: wallpaper %s not in catalog", id)
	}
	return o.Downloader.RunBatch(ctx, []download.Target{{ID: wp.ID, URL: wp.URL}}, nil)
}

func (o *Orchestrator) categoryStats() (map[string]exploration.CategoryStats, error) {
	all, err := o.Store.AllCategoryPreferences()
	if err != nil {
		return nil, err
	}
	out := make(map[string]exploration.CategoryStats, len(all))
	for cat, pref := range all {
		out[cat] = exploration.CategoryStats{Likes: pref.Likes, Dislikes: pref.Dislikes, Views: pref.Views}
	}
	return out, nil
}

// refillQueue recomputes similarity against the (possibly just-updated)
// taste vector and writes the top refillTopN ids into the queue (spec
// §4.12 step 8).
func (o *Orchestrator) refillQueue(snap catalog.Snapshot) error {
	prefs := o.Store.Get()
	candidates := make([]similarity.Candidate, 0, snap.Len())
	for _, wp := range snap.All() {
		candidates = append(candidates, similarity.Candidate{
			ID: wp.ID, Embedding: wp.Embedding, Palette: wp.Palette,
			Category: wp.Category, Brightness: wp.Brightness, Contrast: wp.Contrast,
		})
	}
	ranked := similarity.Rank(candidates, similarity.Target{Taste: prefs.TasteVector})
	if len(ranked) > refillTopN {
		ranked = ranked[:refillTopN]
	}
	ids := make([]string, len(ranked))
	for i, s := range ranked {
		ids[i] = s.ID
	}
	o.Queue.InsertRanked(ids)
	return nil
}

func (o *Orchestrator) loadPreferencesWithRetry() preference.UserPreferences {
	var prefs preference.UserPreferences
	for i := 0; i < preferenceLoadRetries; i++ {
		prefs = o.Store.Get()
		if len(prefs.TasteVector) > 0 {
			return prefs
		}
		o.Sleep(preferenceLoadPause)
	}
	return prefs
}
