// Package composition derives a wallpaper's compositional character
// (symmetry, rule-of-thirds emphasis, center-weight, edge density,
// complexity) from a decoded bitmap, by sampling a 3x3 region grid. It is
// deterministic for identical input and degrades gracefully: callers that
// cannot decode an image fall back to Neutral() rather than failing the
// whole ranking pass (spec: legacy composite path).
package composition

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	maxSide    = 512
	gridSize   = 3
	sampleStep = 4    // sample every 4th pixel within a cell
	edgeDelta  = 0.2  // brightness delta (on [0,1]) that counts as an edge
)

// Metrics are the five derived compositional scalars, each in [0,1].
type Metrics struct {
	Symmetry     float64
	RuleOfThirds float64
	CenterWeight float64
	EdgeDensity  float64
	Complexity   float64
}

// Weights used to combine Metrics into a single similarity/preference-match
// score. These are CompositionAnalyzer's own internal weighting (symmetry
// 25%, rule-of-thirds 20%, center-weight 20%, edge-density 15%, complexity
// 20%); SimilarityEngine then folds the single resulting score in at its
// own flat 10% (see DESIGN.md Open Question #2).
const (
	weightSymmetry     = 0.25
	weightRuleOfThirds = 0.20
	weightCenterWeight = 0.20
	weightEdgeDensity  = 0.15
	weightComplexity   = 0.20
)

// Neutral returns the fallback Metrics used when an image cannot be
// decoded or analyzed.
func Neutral() Metrics {
	return Metrics{
		Symmetry:     0.5,
		RuleOfThirds: 0.5,
		CenterWeight: 0.5,
		EdgeDensity:  0.5,
		Complexity:   0.5,
	}
}

type cellStats struct {
	brightness float64
	contrast   float64
	edges      int
}

// Analyze computes compositional Metrics for a decoded image. It never
// returns an error: a nil image yields Neutral().
func Analyze(img image.Image) Metrics {
	if img == nil {
		return Neutral()
	}

	small := downsample(img)
	cells := sampleGrid(small)
	return deriveMetrics(cells)
}

// downsample resizes img so its longest side is at most maxSide, preserving
// aspect ratio. Images already within budget are returned unchanged.
func downsample(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return img
	}
	if w >= h {
		return imaging.Resize(img, maxSide, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxSide, imaging.Lanczos)
}

// sampleGrid partitions img into a gridSize x gridSize grid and computes
// per-cell brightness/contrast/edge statistics by sampling every
// sampleStep'th pixel.
func sampleGrid(img image.Image) [gridSize][gridSize]cellStats {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	var cells [gridSize][gridSize]cellStats
	if w == 0 || h == 0 {
		return cells
	}

	cellW := w / gridSize
	cellH := h / gridSize
	if cellW == 0 {
		cellW = 1
	}
	if cellH == 0 {
		cellH = 1
	}

	for gy := 0; gy < gridSize; gy++ {
		for gx := 0; gx < gridSize; gx++ {
			x0 := b.Min.X + gx*cellW
			y0 := b.Min.Y + gy*cellH
			x1 := x0 + cellW
			y1 := y0 + cellH
			if gx == gridSize-1 {
				x1 = b.Max.X
			}
			if gy == gridSize-1 {
				y1 = b.Max.Y
			}
			cells[gy][gx] = analyzeCell(img, x0, y0, x1, y1)
		}
	}
	return cells
}

func analyzeCell(img image.Image, x0, y0, x1, y1 int) cellStats {
	var samples []float64
	for y := y0; y < y1; y += sampleStep {
		for x := x0; x < x1; x += sampleStep {
			samples = append(samples, brightnessAt(img, x, y))
		}
	}
	if len(samples) == 0 {
		return cellStats{brightness: 0.5, contrast: 0, edges: 0}
	}

	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(len(samples))

	var sumSq float64
	for _, s := range samples {
		d := s - mean
		sumSq += d * d
	}
	variance := sumSq / float64(len(samples))
	contrast := math.Sqrt(variance)

	edges := 0
	for i := 1; i < len(samples); i++ {
		if abs(samples[i]-samples[i-1]) > edgeDelta {
			edges++
		}
	}

	return cellStats{brightness: mean, contrast: contrast, edges: edges}
}

func brightnessAt(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	// RGBA() returns 16-bit premultiplied-alpha-free components for opaque
	// images; normalize to [0,1] and apply the standard luma weights.
	rf := float64(r) / 65535
	gf := float64(g) / 65535
	bf := float64(b) / 65535
	return 0.299*rf + 0.587*gf + 0.114*bf
}

func deriveMetrics(cells [gridSize][gridSize]cellStats) Metrics {
	top := avgBrightness(cells[0][:])
	bottom := avgBrightness(cells[gridSize-1][:])
	left := avgBrightness(column(cells, 0))
	right := avgBrightness(column(cells, gridSize-1))

	vertAgreement := 1 - abs(top-bottom)
	horizAgreement := 1 - abs(left-right)
	symmetry := clamp01((vertAgreement + horizAgreement) / 2)

	globalContrast := avgContrast(flatten(cells))
	cornerContrast := avgContrast([]cellStats{cells[0][0], cells[0][gridSize-1], cells[gridSize-1][0], cells[gridSize-1][gridSize-1]})
	ruleOfThirds := 0.5
	if globalContrast > 1e-9 {
		ruleOfThirds = clamp01(cornerContrast / globalContrast)
	}

	centerBrightness := cells[gridSize/2][gridSize/2].brightness
	cornerBrightness := avgBrightness([]cellStats{cells[0][0], cells[0][gridSize-1], cells[gridSize-1][0], cells[gridSize-1][gridSize-1]})
	// Map (center - corner) in [-1,1] to [0,1] so a brighter centered
	// subject scores above 0.5.
	centerWeight := clamp01(0.5 + (centerBrightness-cornerBrightness)/2)

	totalEdges := 0
	borderEdges := 0
	for gy := 0; gy < gridSize; gy++ {
		for gx := 0; gx < gridSize; gx++ {
			e := cells[gy][gx].edges
			totalEdges += e
			if !(gy == gridSize/2 && gx == gridSize/2) {
				borderEdges += e
			}
		}
	}
	edgeDensity := 0.5
	if totalEdges > 0 {
		edgeDensity = clamp01(float64(borderEdges) / float64(totalEdges))
	}

	normalizedEdges := clamp01(float64(totalEdges) / float64(9*((512/gridSize)/sampleStep)))
	complexity := clamp01((normalizedEdges + clamp01(globalContrast)) / 2)

	return Metrics{
		Symmetry:     symmetry,
		RuleOfThirds: ruleOfThirds,
		CenterWeight: centerWeight,
		EdgeDensity:  edgeDensity,
		Complexity:   complexity,
	}
}

func column(cells [gridSize][gridSize]cellStats, x int) []cellStats {
	out := make([]cellStats, gridSize)
	for y := 0; y < gridSize; y++ {
		out[y] = cells[y][x]
	}
	return out
}

func flatten(cells [gridSize][gridSize]cellStats) []cellStats {
	out := make([]cellStats, 0, gridSize*gridSize)
	for _, row := range cells {
		out = append(out, row[:]...)
	}
	return out
}

func avgBrightness(cells []cellStats) float64 {
	if len(cells) == 0 {
		return 0.5
	}
	var sum float64
	for _, c := range cells {
		sum += c.brightness
	}
	return sum / float64(len(cells))
}

func avgContrast(cells []cellStats) float64 {
	if len(cells) == 0 {
		return 0
	}
	var sum float64
	for _, c := range cells {
		sum += c.contrast
	}
	return sum / float64(len(cells))
}

// Similarity scores how alike two sets of Metrics are, in [0,1], weighted
// the same way Analyze's own internal composition weighting is (symmetry
// 25%, rule-of-thirds 20%, center-weight 20%, edge-density 15%, complexity
// 20%). This is also used to score a candidate image against the running
// CompositionPreference mean.
func Similarity(a, b Metrics) float64 {
	score := weightSymmetry*(1-abs(a.Symmetry-b.Symmetry)) +
		weightRuleOfThirds*(1-abs(a.RuleOfThirds-b.RuleOfThirds)) +
		weightCenterWeight*(1-abs(a.CenterWeight-b.CenterWeight)) +
		weightEdgeDensity*(1-abs(a.EdgeDensity-b.EdgeDensity)) +
		weightComplexity*(1-abs(a.Complexity-b.Complexity))
	return clamp01(score)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
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
