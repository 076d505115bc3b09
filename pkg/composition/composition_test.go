package composition_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/dixieflatline76/spicetaste/pkg/composition"
	"github.com/stretchr/testify/assert"
)

func TestAnalyzeNilImageReturnsNeutral(t *testing.T) {
	m := composition.Analyze(nil)
	assert.Equal(t, composition.Neutral(), m)
}

func TestAnalyzeUniformImageIsSymmetric(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.Gray{Y: 128})
		}
	}
	m := composition.Analyze(img)
	assert.InDelta(t, 1.0, m.Symmetry, 1e-6)
	assert.GreaterOrEqual(t, m.CenterWeight, 0.0)
	assert.LessOrEqual(t, m.CenterWeight, 1.0)
}

func TestAnalyzeBrightCenterScoresHighCenterWeight(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 90, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 90; x++ {
			img.Set(x, y, color.Gray{Y: 20})
		}
	}
	for y := 30; y < 60; y++ {
		for x := 30; x < 60; x++ {
			img.Set(x, y, color.Gray{Y: 240})
		}
	}
	m := composition.Analyze(img)
	assert.Greater(t, m.CenterWeight, 0.5)
}

func TestMetricsAlwaysInUnitRange(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 600, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 600; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: uint8((x + y) % 255), A: 255})
		}
	}
	m := composition.Analyze(img)
	for _, v := range []float64{m.Symmetry, m.RuleOfThirds, m.CenterWeight, m.EdgeDensity, m.Complexity} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestSimilarityIdenticalMetricsIsOne(t *testing.T) {
	m := composition.Metrics{Symmetry: 0.4, RuleOfThirds: 0.6, CenterWeight: 0.7, EdgeDensity: 0.2, Complexity: 0.5}
	assert.InDelta(t, 1.0, composition.Similarity(m, m), 1e-9)
}

func TestSimilarityDeterministic(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.Gray{Y: uint8((x * y) % 255)})
		}
	}
	a := composition.Analyze(img)
	b := composition.Analyze(img)
	assert.Equal(t, a, b)
}
