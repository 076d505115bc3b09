// Package exploration implements ExplorationPolicy: the strategy selector
// that picks which ranked candidate to actually show the user, balancing
// exploitation of the learned taste vector against exploration of
// under-sampled categories (spec §4.6).
package exploration

import (
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/dixieflatline76/spicetaste/pkg/errs"
	"github.com/dixieflatline76/spicetaste/pkg/similarity"
)

// Reason records why a particular candidate was chosen.
type Reason string

const (
	ReasonBestMatch      Reason = "BEST_MATCH"
	ReasonEpsilonRandom  Reason = "EPSILON_RANDOM"
	ReasonUCBBonus       Reason = "UCB_BONUS"
	ReasonThompsonSample Reason = "THOMPSON_SAMPLE"
	ReasonDiversityBoost Reason = "DIVERSITY_BOOST"
)

// Choice is ExplorationPolicy's output for one apply-next call.
type Choice struct {
	WallpaperID       string
	Reason            Reason
	ExplorationWeight float64
}

// CategoryStats is the per-category engagement state UCB1 and Thompson
// sampling read, mirrored from pkg/preference.CategoryPreference.
type CategoryStats struct {
	Likes    int
	Dislikes int
	Views    int
}

// ucb1ConstantC is the UCB1 exploration constant (spec §4.6: "c = 2.0").
const ucb1ConstantC = 2.0

// Policy selects a strategy by feedback_count and returns the chosen
// candidate. rng is threaded through explicitly (rather than a package
// global) so that, per spec §8 invariant 9, a (catalog snapshot, taste
// snapshot, rng seed) triple is fully deterministic — mirrors cartographus
// LinUCB's per-arm map state guarded by its own lock, generalized from a
// linear contextual bandit down to the spec's simpler per-category UCB1.
type Policy struct {
	mu sync.Mutex
	// recentCategories is a ring of the last 10 chosen categories, used by
	// the stuck-in-local-optimum diversity detector.
	recentCategories []string
}

// New returns a Policy with empty recency state.
func New() *Policy {
	return &Policy{}
}

// Select runs the strategy appropriate to feedbackCount against ranked
// candidates (already scored and sorted best-first by pkg/similarity),
// using categoryStats for UCB1/Thompson and rng for all randomness.
//
// ranked must be non-empty; an empty slice returns errs.ErrNoCandidates.
func (p *Policy) Select(ranked []similarity.Score, categoryOf map[string]string, categoryStats map[string]CategoryStats, feedbackCount int, rng *rand.Rand) (Choice, error) {
	if len(ranked) == 0 {
		return Choice{}, errs.ErrNoCandidates
	}

	if choice, ok := p.diversityBoost(ranked, categoryOf, categoryStats, feedbackCount, rng); ok {
		p.recordCategory(categoryOf[choice.WallpaperID])
		return choice, nil
	}

	var choice Choice
	switch {
	case feedbackCount < 10:
		choice = thompsonSelect(ranked, categoryOf, categoryStats, rng)
	case feedbackCount < 50:
		choice = ucb1Select(ranked, categoryOf, categoryStats)
	default:
		choice = epsilonGreedySelect(ranked, feedbackCount, rng)
	}
	p.recordCategory(categoryOf[choice.WallpaperID])
	return choice, nil
}

// epsilon is the decaying explore probability for epsilon-greedy (spec
// §4.6): max(0.05, 0.30*0.95^(count/50)).
func epsilon(feedbackCount int) float64 {
	e := 0.30 * math.Pow(0.95, float64(feedbackCount)/50.0)
	if e < 0.05 {
		return 0.05
	}
	return e
}

func epsilonGreedySelect(ranked []similarity.Score, feedbackCount int, rng *rand.Rand) Choice {
	e := epsilon(feedbackCount)
	if rng.Float64() < e {
		idx := rng.IntN(len(ranked))
		return Choice{WallpaperID: ranked[idx].ID, Reason: ReasonEpsilonRandom, ExplorationWeight: e}
	}
	return Choice{WallpaperID: ranked[0].ID, Reason: ReasonBestMatch, ExplorationWeight: 0}
}

// ucb1Select scores each candidate with 0.7*similarity + 0.3*(empirical
// success rate of its category) once the candidate's category has >=2 views (spec §4.6: per-wallpaper
// variant), falling back to the category's UCB1 score alone otherwise so
// brand-new categories still get their forced-exploration +Inf bonus.
func ucb1Select(ranked []similarity.Score, categoryOf map[string]string, categoryStats map[string]CategoryStats) Choice {
	totalViews := 0
	for _, s := range categoryStats {
		totalViews += s.Views
	}

	bestIdx, bestScore := 0, math.Inf(-1)
	for i, cand := range ranked {
		cat := categoryOf[cand.ID]
		stats := categoryStats[cat]
		ucb := ucb1Score(stats, totalViews)

		var score float64
		if stats.Views >= 2 {
			successRate := empiricalSuccessRate(stats)
			score = 0.7*cand.Total + 0.3*successRate
		} else {
			score = ucb
		}
		if score > bestScore {
			bestScore, bestIdx = score, i
		}
	}
	return Choice{WallpaperID: ranked[bestIdx].ID, Reason: ReasonUCBBonus, ExplorationWeight: clamp01(bestScore)}
}

func ucb1Score(stats CategoryStats, totalViews int) float64 {
	if stats.Views == 0 {
		return math.Inf(1) // never-viewed categories forced to the front
	}
	mean := empiricalSuccessRate(stats)
	bonus := ucb1ConstantC * math.Sqrt(math.Log(float64(totalViews))/float64(stats.Views))
	return mean + bonus
}

func empiricalSuccessRate(stats CategoryStats) float64 {
	total := stats.Likes + stats.Dislikes
	if total == 0 {
		return 0.5
	}
	return float64(stats.Likes) / float64(total)
}

// thompsonSelect draws one Beta(1+likes, 1+dislikes) sample per category
// represented among ranked, then returns the highest-ranked candidate
// whose category drew the winning sample.
func thompsonSelect(ranked []similarity.Score, categoryOf map[string]string, categoryStats map[string]CategoryStats, rng *rand.Rand) Choice {
	categories := make([]string, 0, len(categoryStats))
	seen := map[string]bool{}
	for _, cand := range ranked {
		cat := categoryOf[cand.ID]
		if !seen[cat] {
			seen[cat] = true
			categories = append(categories, cat)
		}
	}
	sort.Strings(categories) // deterministic iteration order for a fixed rng seed

	bestCategory, bestSample := "", -1.0
	for _, cat := range categories {
		stats := categoryStats[cat]
		sample := sampleBeta(float64(1+stats.Likes), float64(1+stats.Dislikes), rng)
		if sample > bestSample {
			bestSample, bestCategory = sample, cat
		}
	}

	for _, cand := range ranked {
		if categoryOf[cand.ID] == bestCategory {
			return Choice{WallpaperID: cand.ID, Reason: ReasonThompsonSample, ExplorationWeight: bestSample}
		}
	}
	return Choice{WallpaperID: ranked[0].ID, Reason: ReasonThompsonSample, ExplorationWeight: bestSample}
}

// diversityBoost adds up to 0.10 (linear in views, capped at views<3) to
// under-sampled categories, and forces exploration outright once the
// policy detects it is stuck in a local optimum: feedback_count>50 and the
// last 10 selections span fewer than 3 distinct categories (spec §4.6).
func (p *Policy) diversityBoost(ranked []similarity.Score, categoryOf map[string]string, categoryStats map[string]CategoryStats, feedbackCount int, rng *rand.Rand) (Choice, bool) {
	if !p.isStuck(feedbackCount) {
		return Choice{}, false
	}

	// Prefer a candidate whose category has the fewest views among the
	// ranked set, breaking ties by similarity rank (ranked is assumed
	// already sorted best-first).
	bestIdx, bestViews := -1, math.MaxInt
	for i, cand := range ranked {
		views := categoryStats[categoryOf[cand.ID]].Views
		if views < bestViews {
			bestViews, bestIdx = views, i
		}
	}
	if bestIdx < 0 {
		bestIdx = 0
	}
	weight := 0.0
	if bestViews < 3 {
		weight = 0.10 * (1 - float64(bestViews)/3.0)
	}
	return Choice{WallpaperID: ranked[bestIdx].ID, Reason: ReasonDiversityBoost, ExplorationWeight: weight}, true
}

func (p *Policy) isStuck(feedbackCount int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if feedbackCount <= 50 || len(p.recentCategories) < 10 {
		return false
	}
	distinct := map[string]bool{}
	for _, c := range p.recentCategories[len(p.recentCategories)-10:] {
		distinct[c] = true
	}
	return len(distinct) < 3
}

func (p *Policy) recordCategory(category string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recentCategories = append(p.recentCategories, category)
	if len(p.recentCategories) > 10 {
		p.recentCategories = p.recentCategories[len(p.recentCategories)-10:]
	}
}

// sampleBeta draws one Beta(alpha, beta) sample via the Gamma ratio
// x/(x+y), x~Gamma(alpha), y~Gamma(beta), using Marsaglia-Tsang for
// shape>=1 and the standard shape<1 boosting trick otherwise (spec §4.6).
func sampleBeta(alpha, beta float64, rng *rand.Rand) float64 {
	x := sampleGamma(alpha, rng)
	y := sampleGamma(beta, rng)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// sampleGamma draws one Gamma(shape, 1) sample.
func sampleGamma(shape float64, rng *rand.Rand) float64 {
	if shape < 1 {
		// Boost: Gamma(shape) = Gamma(shape+1) * U^(1/shape).
		u := rng.Float64()
		return sampleGamma(shape+1, rng) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
