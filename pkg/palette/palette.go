// Package palette analyzes a wallpaper's dominant color palette (a short
// ordered list of hex colors, dominant first) and scores how similar two
// palettes are. It is pure over its inputs: no file or network I/O.
package palette

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RGB is an 8-bit-per-channel color.
type RGB struct {
	R, G, B uint8
}

// Harmony classifies a palette's hue spread.
type Harmony string

const (
	HarmonyMonochromatic Harmony = "monochromatic"
	HarmonyAnalogous      Harmony = "analogous"
	HarmonyComplementary  Harmony = "complementary"
	HarmonyTriadic        Harmony = "triadic"
)

// Analysis is the derived description of a palette.
type Analysis struct {
	DominantRGB RGB
	AccentRGB   []RGB // at most 2
	AvgHue      float64 // degrees [0,360)
	AvgSat      float64 // [0,1]
	AvgVal      float64 // [0,1]
	IsWarm      bool
	IsVibrant   bool
	Harmony     Harmony
}

// neutralAnalysis is returned when a palette has no parseable colors.
func neutralAnalysis() Analysis {
	return Analysis{
		DominantRGB: RGB{128, 128, 128},
		AvgHue:      0,
		AvgSat:      0,
		AvgVal:      0.5,
		IsWarm:      false,
		IsVibrant:   false,
		Harmony:     HarmonyMonochromatic,
	}
}

// ParseHex parses a "#RRGGBB" string. It returns an error for anything
// else (wrong length, non-hex digits, missing '#'), so callers can skip
// invalid entries rather than propagate a zero color.
func ParseHex(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[0] != '#' {
		return RGB{}, fmt.Errorf("palette: invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("palette: invalid hex color %q: %w", s, err)
	}
	return RGB{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}, nil
}

// toHSV converts an RGB color to hue [0,360), saturation [0,1], value [0,1].
func toHSV(c RGB) (h, s, v float64) {
	r := float64(c.R) / 255
	g := float64(c.G) / 255
	b := float64(c.B) / 255

	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	v = max
	if max > 0 {
		s = delta / max
	}
	if delta == 0 {
		h = 0
		return
	}
	switch max {
	case r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case g:
		h = 60 * ((b-r)/delta + 2)
	case b:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return
}

// Analyze parses the given hex palette (dominant color first) and derives
// its color-theory description. Invalid hex entries are skipped; if none
// remain, Analyze returns a neutral analysis (gray, value 0.5).
func Analyze(hexPalette []string) Analysis {
	var parsed []RGB
	for _, hex := range hexPalette {
		c, err := ParseHex(hex)
		if err != nil {
			continue
		}
		parsed = append(parsed, c)
	}
	if len(parsed) == 0 {
		return neutralAnalysis()
	}

	hues := make([]float64, len(parsed))
	var sumSin, sumCos, sumSat, sumVal float64
	for i, c := range parsed {
		h, s, v := toHSV(c)
		hues[i] = h
		rad := h * math.Pi / 180
		sumSin += math.Sin(rad)
		sumCos += math.Cos(rad)
		sumSat += s
		sumVal += v
	}
	n := float64(len(parsed))
	avgHue := math.Atan2(sumSin/n, sumCos/n) * 180 / math.Pi
	if avgHue < 0 {
		avgHue += 360
	}
	avgSat := sumSat / n
	avgVal := sumVal / n

	a := Analysis{
		DominantRGB: parsed[0],
		AvgHue:      avgHue,
		AvgSat:      avgSat,
		AvgVal:      avgVal,
		IsWarm:      avgHue < 60 || avgHue > 300,
		IsVibrant:   avgSat > 0.5 && avgVal > 0.4,
		Harmony:     classifyHarmony(hues),
	}
	if len(parsed) > 1 {
		accentCount := len(parsed) - 1
		if accentCount > 2 {
			accentCount = 2
		}
		a.AccentRGB = append(a.AccentRGB, parsed[1:1+accentCount]...)
	}
	return a
}

// HasAnyValid reports whether at least one entry in hexPalette parses as a
// valid "#RRGGBB" color.
func HasAnyValid(hexPalette []string) bool {
	for _, hex := range hexPalette {
		if _, err := ParseHex(hex); err == nil {
			return true
		}
	}
	return false
}

// classifyHarmony derives a harmony label from the spread of hues present
// in the palette (the max circular distance between any two hues).
func classifyHarmony(hues []float64) Harmony {
	if len(hues) < 2 {
		return HarmonyMonochromatic
	}
	var maxSpread float64
	for i := 0; i < len(hues); i++ {
		for j := i + 1; j < len(hues); j++ {
			d := circularHueDistance(hues[i], hues[j])
			if d > maxSpread {
				maxSpread = d
			}
		}
	}
	switch {
	case maxSpread < 30:
		return HarmonyMonochromatic
	case maxSpread < 60:
		return HarmonyAnalogous
	case maxSpread > 150:
		return HarmonyComplementary
	default:
		return HarmonyTriadic
	}
}

// circularHueDistance returns the shortest distance between two hues on
// the 360-degree color wheel.
func circularHueDistance(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Similarity scores how alike two palettes are, in [0,1]. Empty-palette
// inputs (after Analyze's neutral fallback) still produce a defined score;
// a palette that had zero parseable colors to begin with should be scored
// by the caller as the fixed neutral 0.5 rather than by calling Similarity
// on two neutral analyses (see SimilarityOrNeutral).
func Similarity(a, b Analysis) float64 {
	dominantSim := rgbSimilarity(a.DominantRGB, b.DominantRGB)
	hueSim := 1 - circularHueDistance(a.AvgHue, b.AvgHue)/180
	satSim := 1 - math.Abs(a.AvgSat-b.AvgSat)
	valSim := 1 - math.Abs(a.AvgVal-b.AvgVal)
	accentSim := accentSimilarity(a.AccentRGB, b.AccentRGB)

	score := 0.35*dominantSim + 0.20*hueSim + 0.15*satSim + 0.15*valSim + 0.15*accentSim

	if a.IsWarm == b.IsWarm {
		score += 0.10
	}
	if a.IsVibrant == b.IsVibrant {
		score += 0.10
	}

	return clamp01(score)
}

// SimilarityOrNeutral returns 0.5 if either input palette had no
// parseable colors (len(hexPalette) == 0 after skipping invalid entries),
// otherwise it delegates to Similarity. Per spec §4.2, "if none remain,
// returns a neutral analysis and a 0.5 similarity" — this helper threads
// that rule through without needing the caller to track emptiness itself.
func SimilarityOrNeutral(aEmpty, bEmpty bool, a, b Analysis) float64 {
	if aEmpty || bEmpty {
		return 0.5
	}
	return Similarity(a, b)
}

func rgbSimilarity(a, b RGB) float64 {
	dr := float64(int(a.R) - int(b.R))
	dg := float64(int(a.G) - int(b.G))
	db := float64(int(a.B) - int(b.B))
	dist := math.Sqrt(dr*dr + dg*dg + db*db)
	maxDist := math.Sqrt(3 * 255 * 255)
	return 1 - dist/maxDist
}

func accentSimilarity(a, b []RGB) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.5
	}
	var best float64
	for _, ac := range a {
		for _, bc := range b {
			if s := rgbSimilarity(ac, bc); s > best {
				best = s
			}
		}
	}
	return best
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
