// Package preference holds everything the engine knows about a single
// user's taste: the learned taste/velocity vectors (PreferenceStore,
// PreferenceLearner) plus the auxiliary category, color and composition
// preference rows the exploration and scoring layers read from.
package preference

import (
	"time"

	"github.com/dixieflatline76/spicetaste/pkg/vector"
)

// Mode selects whether wallpaper choice is driven purely by exploration
// defaults (AUTO) or by the learned taste vector (PERSONALIZED).
type Mode string

const (
	ModeAuto         Mode = "AUTO"
	ModePersonalized Mode = "PERSONALIZED"
)

// MaxVelocityNorm is the hard cap on the momentum vector's magnitude.
const MaxVelocityNorm = 0.5

// UserPreferences is the singleton row describing the user's current
// taste. Copies of it are handed to readers by value (the taste vector is
// "shared-by-value, copied on read" per spec §3) so no reader can mutate
// the store's internal state out from under a concurrent learner update.
type UserPreferences struct {
	TasteVector    []float32
	VelocityVector []float32
	Mode           Mode
	FeedbackCount  int
	Epsilon        float64
	LikedIDs       map[string]bool
	DislikedIDs    map[string]bool
	LastUpdated    time.Time
}

// Clone returns a deep copy, so callers can freely mutate the result
// without affecting the store's internal state.
func (p UserPreferences) Clone() UserPreferences {
	out := p
	out.TasteVector = append([]float32(nil), p.TasteVector...)
	out.VelocityVector = append([]float32(nil), p.VelocityVector...)
	out.LikedIDs = cloneSet(p.LikedIDs)
	out.DislikedIDs = cloneSet(p.DislikedIDs)
	return out
}

func cloneSet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// DefaultTasteDimension is used only when a caller asks for brand-new
// defaults without specifying a dimension explicitly.
const DefaultTasteDimension = 576

// DefaultUserPreferences returns the first-run defaults: a uniform unit
// taste vector (spec E1: "default taste = (1/sqrt3, 1/sqrt3, 1/sqrt3)"
// generalizes to 1/sqrt(D) in every component of dimension D), zero
// velocity, AUTO mode, epsilon at its upper bound.
func DefaultUserPreferences(dim int) UserPreferences {
	if dim <= 0 {
		dim = DefaultTasteDimension
	}
	taste := vector.Normalize(make([]float32, dim))
	return UserPreferences{
		TasteVector:    taste,
		VelocityVector: make([]float32, dim),
		Mode:           ModeAuto,
		FeedbackCount:  0,
		Epsilon:        0.30,
		LikedIDs:       map[string]bool{},
		DislikedIDs:    map[string]bool{},
		LastUpdated:    time.Time{},
	}
}

// CategoryPreference tracks engagement with one catalog category.
type CategoryPreference struct {
	Likes       int
	Dislikes    int
	Views       int
	LastShownAt time.Time
}

// Score is (likes - 2*dislikes) / (views + 1), per spec §3.
func (c CategoryPreference) Score() float64 {
	return float64(c.Likes-2*c.Dislikes) / float64(c.Views+1)
}

// ColorPreference tracks engagement with one dominant/accent hex color.
type ColorPreference struct {
	Likes       int
	Dislikes    int
	Views       int
	LastShownAt time.Time
}

// Score is (likes - 2*dislikes) / (likes + dislikes + 1), per spec §3.
func (c ColorPreference) Score() float64 {
	return float64(c.Likes-2*c.Dislikes) / float64(c.Likes+c.Dislikes+1)
}

// CompositionPreference is the singleton row of EMA-tracked compositional
// means, plus simple tendency indicators derived from them.
type CompositionPreference struct {
	Symmetry     float64
	RuleOfThirds float64
	CenterWeight float64
	EdgeDensity  float64
	Complexity   float64
	SampleCount  int
}

// PrefersSymmetric, PrefersCentered and PrefersComplex are tendency
// indicators derived from the tracked means, thresholded at their natural
// midpoint.
func (c CompositionPreference) PrefersSymmetric() bool { return c.Symmetry > 0.5 }
func (c CompositionPreference) PrefersCentered() bool  { return c.CenterWeight > 0.5 }
func (c CompositionPreference) PrefersComplex() bool   { return c.Complexity > 0.5 }

// DefaultCompositionPreference is the neutral starting point before any
// samples have been blended in.
func DefaultCompositionPreference() CompositionPreference {
	return CompositionPreference{
		Symmetry: 0.5, RuleOfThirds: 0.5, CenterWeight: 0.5, EdgeDensity: 0.5, Complexity: 0.5,
	}
}
