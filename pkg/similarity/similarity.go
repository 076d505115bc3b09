// Package similarity implements SimilarityEngine: the weighted composite
// score that turns a wallpaper's embedding, palette and composition into a
// single ranking number against the user's current taste.
package similarity

import (
	"hash/fnv"
	"math"
	"sort"

	"github.com/dixieflatline76/spicetaste/pkg/composition"
	"github.com/dixieflatline76/spicetaste/pkg/palette"
	"github.com/dixieflatline76/spicetaste/pkg/vector"
)

// Candidate is everything SimilarityEngine needs about one wallpaper to
// score it against the user's taste.
type Candidate struct {
	ID         string
	Embedding  []float32
	Palette    []string // hex, dominant first
	Category   string
	Brightness int // [0,100]
	Contrast   int // [0,100]
	// Composition is the candidate's measured composition, or nil if it
	// could not be decoded (Decode(Image) failure => legacy path).
	Composition *composition.Metrics
}

// Target is the reference the candidate is scored against: the user's
// taste vector plus whatever auxiliary preference context is available.
type Target struct {
	Taste              []float32
	PreferredCategory   string
	PreferredBrightness int
	PreferredContrast   int
	// PalettePreference, if non-nil, is the palette to compare the
	// candidate's palette against (e.g. the most-liked palette, or simply
	// the candidate's own palette analyzed against a neutral baseline the
	// caller supplies). When nil, palette similarity falls back to 0.5.
	PalettePreference []string
	// CompositionPreference is the EMA-tracked composition preference to
	// compare the candidate's composition against. nil triggers the legacy
	// path regardless of whether the candidate itself decoded.
	CompositionPreference *composition.Metrics
}

// Score is a single wallpaper's ranking result.
type Score struct {
	ID            string
	Total         float64
	EmbeddingCos  float64
	PaletteSim    float64
	CompositionSim float64
	CategoryBonus float64
	UsedLegacyPath bool
}

const (
	weightEmbeddingComposite  = 0.75
	weightPaletteComposite    = 0.10
	weightCompositionComposite = 0.10
	weightCategoryComposite   = 0.05

	weightEmbeddingLegacy = 0.75
	weightPaletteLegacy   = 0.10
	weightCategoryLegacy  = 0.05
)

// ScoreOne computes a Candidate's ranking score against Target. It
// automatically selects the composite path when both the candidate's
// composition and the target's composition preference are available, and
// falls back to the legacy path otherwise (spec §4.4).
func ScoreOne(c Candidate, t Target) Score {
	embCos := float64(vector.Cosine(vector.Normalize(c.Embedding), vector.Normalize(t.Taste)))

	paletteSim := 0.5
	if palette.HasAnyValid(c.Palette) && palette.HasAnyValid(t.PalettePreference) {
		paletteSim = palette.Similarity(palette.Analyze(c.Palette), palette.Analyze(t.PalettePreference))
	}

	categoryBonus := categoryBonus(c, t)

	useComposite := c.Composition != nil && t.CompositionPreference != nil
	if useComposite {
		compSim := composition.Similarity(*c.Composition, *t.CompositionPreference)
		total := weightEmbeddingComposite*embCos +
			weightPaletteComposite*paletteSim +
			weightCompositionComposite*compSim +
			weightCategoryComposite*categoryBonus
		return Score{
			ID: c.ID, Total: clamp01(total), EmbeddingCos: embCos,
			PaletteSim: paletteSim, CompositionSim: compSim, CategoryBonus: categoryBonus,
		}
	}

	total := weightEmbeddingLegacy*embCos + weightPaletteLegacy*paletteSim + weightCategoryLegacy*categoryBonus
	return Score{
		ID: c.ID, Total: clamp01(total), EmbeddingCos: embCos,
		PaletteSim: paletteSim, CategoryBonus: categoryBonus, UsedLegacyPath: true,
	}
}

// categoryBonus computes the [0,1] category/brightness/contrast bonus term
// described in spec §4.4: starts at 0.5, up to +0.3 for category match, up
// to +0.2 for brightness within +-20, up to +0.15 for contrast within
// +-15, clamped.
func categoryBonus(c Candidate, t Target) float64 {
	bonus := 0.5
	if c.Category != "" && t.PreferredCategory != "" && c.Category == t.PreferredCategory {
		bonus += 0.3
	}
	bonus += 0.2 * linearClose(float64(c.Brightness), float64(t.PreferredBrightness), 20)
	bonus += 0.15 * linearClose(float64(c.Contrast), float64(t.PreferredContrast), 15)
	return clamp01(bonus)
}

// linearClose returns 1 when a==b, fading linearly to 0 at |a-b|==within,
// floored at 0 beyond that.
func linearClose(a, b, within float64) float64 {
	if within <= 0 {
		return 0
	}
	d := math.Abs(a - b)
	if d >= within {
		return 0
	}
	return 1 - d/within
}

// Rank sorts scores by Total descending. Ties are broken deterministically
// by (higher FNV hash of id, then original catalog position) so ranking
// output is reproducible across runs given the same candidate set (spec
// §4.4, §8 invariant 9).
func Rank(candidates []Candidate, t Target) []Score {
	scores := make([]Score, len(candidates))
	for i, c := range candidates {
		scores[i] = ScoreOne(c, t)
	}

	positions := make(map[string]int, len(candidates))
	for i, c := range candidates {
		positions[c.ID] = i
	}
	hashes := make(map[string]uint32, len(candidates))
	for _, c := range candidates {
		hashes[c.ID] = idHash(c.ID)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Total != scores[j].Total {
			return scores[i].Total > scores[j].Total
		}
		hi, hj := hashes[scores[i].ID], hashes[scores[j].ID]
		if hi != hj {
			return hi > hj
		}
		return positions[scores[i].ID] < positions[scores[j].ID]
	})
	return scores
}

func idHash(id string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return h.Sum32()
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
