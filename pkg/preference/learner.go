package preference

import (
	"github.com/dixieflatline76/spicetaste/pkg/vector"
)

// Learner applies feedback events to a Store's UserPreferences row via a
// momentum-EMA update of the taste vector (spec §3 PreferenceLearner).
type Learner struct {
	store *Store
}

// NewLearner wraps store with the momentum-update rules.
func NewLearner(store *Store) *Learner {
	return &Learner{store: store}
}

// momentum is the fixed EMA coefficient blending the previous velocity
// into the new one (spec §3: "momentum mu = 0.30").
const momentum = 0.30

// compositionBlend is the EMA blend factor used when folding a newly-liked
// wallpaper's composition metrics into the tracked composition preference.
const compositionBlend = 0.2

// learningRate returns the adaptive step size for a like/dislike update,
// tiered by how many feedback events the user has already given: early
// feedback moves the taste vector aggressively, later feedback is damped
// so an established taste is not thrashed by a single outlier rating
// (spec §3 adaptive learning rate table).
func learningRate(feedbackCount int, liked bool) float64 {
	switch {
	case feedbackCount < 10:
		if liked {
			return 0.15
		}
		return 0.20
	case feedbackCount < 50:
		if liked {
			return 0.10
		}
		return 0.15
	default:
		if liked {
			return 0.05
		}
		return 0.10
	}
}

// RecordLike folds a liked wallpaper's embedding, palette and composition
// into the user's taste. embedding must already be L2-normalized (pkg/catalog
// normalizes every manifest embedding at parse time).
func (l *Learner) RecordLike(embedding []float32, id string, palette3 []string, comp *CompositionMetrics) error {
	return l.apply(embedding, id, true, 1.0, palette3, comp)
}

// RecordDislike is RecordLike's mirror: it steps the taste vector away
// from the disliked embedding instead of toward it.
func (l *Learner) RecordDislike(embedding []float32, id string, palette3 []string, comp *CompositionMetrics) error {
	return l.apply(embedding, id, false, 1.0, palette3, comp)
}

// RecordLikeWeighted and RecordDislikeWeighted apply the same update as
// RecordLike/RecordDislike but with the adaptive learning rate scaled by
// strength (0,1]. pkg/feedback uses these for implicit feedback, which
// spec §4.7 applies at 30% strength relative to an explicit rating.
func (l *Learner) RecordLikeWeighted(embedding []float32, id string, strength float64, palette3 []string, comp *CompositionMetrics) error {
	return l.apply(embedding, id, true, strength, palette3, comp)
}

func (l *Learner) RecordDislikeWeighted(embedding []float32, id string, strength float64, palette3 []string, comp *CompositionMetrics) error {
	return l.apply(embedding, id, false, strength, palette3, comp)
}

// CompositionMetrics is a minimal value carrier so this package does not
// need to import pkg/composition's full Metrics type; callers can pass
// pkg/composition.Metrics directly since the field set matches exactly
// (Go structural typing is not assignment-compatible across packages, so
// callers using pkg/composition must convert via a literal - see
// pkg/feedback for the call site).
type CompositionMetrics struct {
	Symmetry, RuleOfThirds, CenterWeight, EdgeDensity, Complexity float64
}

func (l *Learner) apply(embedding []float32, id string, liked bool, strength float64, palette3 []string, comp *CompositionMetrics) error {
	err := l.store.WithWriteLock(func(cur UserPreferences) (UserPreferences, error) {
		next := cur.Clone()

		rate := learningRate(next.FeedbackCount, liked) * strength
		direction := float32(1)
		if !liked {
			direction = -1
		}

		next.VelocityVector = stepVelocity(next.VelocityVector, embedding, direction, rate)
		next.TasteVector = stepTaste(next.TasteVector, next.VelocityVector)

		next.FeedbackCount++
		if liked {
			next.LikedIDs[id] = true
			delete(next.DislikedIDs, id)
		} else {
			next.DislikedIDs[id] = true
			delete(next.LikedIDs, id)
		}
		next.LastUpdated = timeNow()

		return next, nil
	})
	if err != nil {
		return err
	}

	if len(palette3) > 0 {
		if liked {
			if err := l.store.RecordLikes(palette3); err != nil {
				return err
			}
		} else {
			if err := l.store.RecordDislikes(palette3); err != nil {
				return err
			}
		}
	}

	if liked && comp != nil {
		if err := l.blendComposition(*comp); err != nil {
			return err
		}
	}
	return nil
}

// stepVelocity folds direction*rate*embedding into the previous velocity
// under the fixed momentum coefficient, then clips the result to
// MaxVelocityNorm (spec §3, §8 invariant: "velocity vector magnitude never
// exceeds 0.5").
func stepVelocity(prevVelocity, embedding []float32, direction float32, rate float64) []float32 {
	dim := len(prevVelocity)
	if dim == 0 {
		dim = len(embedding)
	}
	step := make([]float32, dim)
	for i := range step {
		var e float32
		if i < len(embedding) {
			e = embedding[i]
		}
		var pv float32
		if i < len(prevVelocity) {
			pv = prevVelocity[i]
		}
		step[i] = float32(momentum)*pv + float32((1-momentum)*rate)*direction*e
	}
	return vector.ClipMagnitude(step, MaxVelocityNorm)
}

// stepTaste adds velocity to the previous taste vector and re-normalizes
// to unit length (spec §8 invariant: "taste vector is always unit
// length"). If the result is the zero vector (taste and velocity exactly
// cancel), the previous taste is kept unchanged rather than normalized
// into an arbitrary direction (spec §3 "no-op if resulting norm is 0").
func stepTaste(prevTaste, velocity []float32) []float32 {
	dim := len(prevTaste)
	if dim == 0 {
		dim = len(velocity)
	}
	sum := make([]float32, dim)
	for i := range sum {
		var t, v float32
		if i < len(prevTaste) {
			t = prevTaste[i]
		}
		if i < len(velocity) {
			v = velocity[i]
		}
		sum[i] = t + v
	}
	if vector.Norm(sum) == 0 {
		return append([]float32(nil), prevTaste...)
	}
	return vector.Normalize(sum)
}

// blendComposition folds newComp into the tracked composition preference
// with a fixed EMA weight (spec §3: "composition preference EMA blend
// factor 0.2").
func (l *Learner) blendComposition(newComp CompositionMetrics) error {
	cur, err := l.store.GetCompositionPreference()
	if err != nil {
		return err
	}
	next := CompositionPreference{
		Symmetry:     ema(cur.Symmetry, newComp.Symmetry),
		RuleOfThirds: ema(cur.RuleOfThirds, newComp.RuleOfThirds),
		CenterWeight: ema(cur.CenterWeight, newComp.CenterWeight),
		EdgeDensity:  ema(cur.EdgeDensity, newComp.EdgeDensity),
		Complexity:   ema(cur.Complexity, newComp.Complexity),
		SampleCount:  cur.SampleCount + 1,
	}
	return l.store.PutCompositionPreference(next)
}

func ema(prev, sample float64) float64 {
	return (1-compositionBlend)*prev + compositionBlend*sample
}
