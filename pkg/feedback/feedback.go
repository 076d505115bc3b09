// Package feedback implements FeedbackProcessor: routing explicit ratings
// and implicit signals (inferred from how long a wallpaper stayed applied)
// into PreferenceLearner (spec §4.7).
package feedback

import (
	"time"

	"github.com/dixieflatline76/spicetaste/pkg/composition"
	"github.com/dixieflatline76/spicetaste/pkg/history"
	"github.com/dixieflatline76/spicetaste/pkg/preference"
)

// Kind is an explicit rating.
type Kind string

const (
	KindLike    Kind = "LIKE"
	KindDislike Kind = "DISLIKE"
)

// implicitStrength is the weight applied to a learner update inferred
// from dwell time rather than an explicit rating (spec §4.7: "30%
// strength").
const implicitStrength = 0.3

// implicitDislikeThreshold and implicitLikeThreshold bound the dwell-time
// windows that trigger an inferred rating; anything between them produces
// no update at all (spec §4.7).
const (
	implicitDislikeThreshold = 5 * time.Minute
	implicitLikeThreshold    = 24 * time.Hour
)

// WallpaperContext is everything FeedbackProcessor needs about the
// wallpaper a feedback event concerns, so this package does not need to
// import pkg/catalog directly.
type WallpaperContext struct {
	ID          string
	Embedding   []float32
	Palette     []string // first 3 entries used per spec §4.5
	Category    string
	Composition *composition.Metrics
}

// Processor routes feedback events into a PreferenceLearner.
type Processor struct {
	learner *preference.Learner
	store   *preference.Store
}

// New returns a Processor wired to learner/store.
func New(learner *preference.Learner, store *preference.Store) *Processor {
	return &Processor{learner: learner, store: store}
}

// Explicit applies a LIKE or DISLIKE rating against wp at full (adaptive)
// learning rate, plus the auxiliary category and palette updates on every
// like/dislike. The composition preference is blended on a like only; a
// dislike leaves it unchanged.
func (p *Processor) Explicit(kind Kind, wp WallpaperContext) error {
	comp := compositionMetrics(wp.Composition)
	palette3 := top3(wp.Palette)

	switch kind {
	case KindLike:
		if err := p.learner.RecordLike(wp.Embedding, wp.ID, palette3, comp); err != nil {
			return err
		}
		return p.store.RecordCategoryLike(wp.Category)
	case KindDislike:
		if err := p.learner.RecordDislike(wp.Embedding, wp.ID, palette3, comp); err != nil {
			return err
		}
		return p.store.RecordCategoryDislike(wp.Category)
	default:
		return nil
	}
}

// Implicit infers a weak rating from how long entry stayed applied before
// being removed, and applies it at implicitStrength. It is a no-op for
// dwell times strictly between the dislike/like thresholds, and it is
// exactly-once per entry: callers must check entry.ImplicitFeedbackApplied
// before calling Implicit and mark the entry afterward via
// history.Log.MarkImplicitFeedbackApplied (spec §4.7, §8 invariant 10).
func (p *Processor) Implicit(entry history.Entry, wp WallpaperContext) error {
	if entry.ImplicitFeedbackApplied || entry.RemovedAt == nil {
		return nil
	}
	dwell := entry.RemovedAt.Sub(entry.AppliedAt)

	comp := compositionMetrics(wp.Composition)
	palette3 := top3(wp.Palette)

	switch {
	case dwell < implicitDislikeThreshold:
		if err := p.learner.RecordDislikeWeighted(wp.Embedding, wp.ID, implicitStrength, palette3, comp); err != nil {
			return err
		}
		return p.store.RecordCategoryDislike(wp.Category)
	case dwell > implicitLikeThreshold:
		if err := p.learner.RecordLikeWeighted(wp.Embedding, wp.ID, implicitStrength, palette3, comp); err != nil {
			return err
		}
		return p.store.RecordCategoryLike(wp.Category)
	default:
		return nil
	}
}

func top3(palette []string) []string {
	if len(palette) > 3 {
		return palette[:3]
	}
	return palette
}

func compositionMetrics(m *composition.Metrics) *preference.CompositionMetrics {
	if m == nil {
		return nil
	}
	return &preference.CompositionMetrics{
		Symmetry: m.Symmetry, RuleOfThirds: m.RuleOfThirds, CenterWeight: m.CenterWeight,
		EdgeDensity: m.EdgeDensity, Complexity: m.Complexity,
	}
}
