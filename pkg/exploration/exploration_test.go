package exploration_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dixieflatline76/spicetaste/pkg/exploration"
	"github.com/dixieflatline76/spicetaste/pkg/similarity"
)

func rankedFixture() []similarity.Score {
	return []similarity.Score{
		{ID: "W1", Total: 0.9},
		{ID: "W2", Total: 0.8},
		{ID: "W3", Total: 0.7},
	}
}

func categoriesFixture() map[string]string {
	return map[string]string{"W1": "nature", "W2": "urban", "W3": "abstract"}
}

func TestSelectFailsOnEmptyCandidates(t *testing.T) {
	p := exploration.New()
	rng := rand.New(rand.NewPCG(0, 0))
	_, err := p.Select(nil, nil, nil, 0, rng)
	assert.Error(t, err)
}

func TestSelectIsDeterministicForFixedSeed(t *testing.T) {
	ranked := rankedFixture()
	cats := categoriesFixture()
	stats := map[string]exploration.CategoryStats{}

	p1 := exploration.New()
	c1, err := p1.Select(ranked, cats, stats, 5, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)

	p2 := exploration.New()
	c2, err := p2.Select(ranked, cats, stats, 5, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)

	assert.Equal(t, c1, c2)
}

func TestEpsilonGreedyUsedAboveFeedbackCount50(t *testing.T) {
	ranked := rankedFixture()
	cats := categoriesFixture()
	stats := map[string]exploration.CategoryStats{
		"nature": {Likes: 5, Dislikes: 1, Views: 6},
		"urban":  {Likes: 1, Dislikes: 5, Views: 6},
	}
	p := exploration.New()
	// At feedback_count 1000 epsilon is max(0.05, 0.30*0.95^20) ~= 0.11, so
	// the pick is epsilon-greedy: either the best match or a random one.
	rng := rand.New(rand.NewPCG(42, 42))
	c, err := p.Select(ranked, cats, stats, 1000, rng)
	require.NoError(t, err)
	assert.Contains(t, []exploration.Reason{exploration.ReasonBestMatch, exploration.ReasonEpsilonRandom}, c.Reason)
}

func TestThompsonUsedBelowFeedbackCount10(t *testing.T) {
	ranked := rankedFixture()
	cats := categoriesFixture()
	stats := map[string]exploration.CategoryStats{}
	p := exploration.New()
	c, err := p.Select(ranked, cats, stats, 0, rand.New(rand.NewPCG(0, 0)))
	require.NoError(t, err)
	assert.Equal(t, exploration.ReasonThompsonSample, c.Reason)
}

func TestUCB1UsedBetween10And50(t *testing.T) {
	ranked := rankedFixture()
	cats := categoriesFixture()
	stats := map[string]exploration.CategoryStats{
		"nature": {Likes: 2, Dislikes: 0, Views: 2},
	}
	p := exploration.New()
	c, err := p.Select(ranked, cats, stats, 20, rand.New(rand.NewPCG(0, 0)))
	require.NoError(t, err)
	assert.Equal(t, exploration.ReasonUCBBonus, c.Reason)
}

func TestNeverViewedCategoryForcesExploration(t *testing.T) {
	ranked := []similarity.Score{{ID: "W1", Total: 0.9}, {ID: "W2", Total: 0.1}}
	cats := map[string]string{"W1": "seen", "W2": "unseen"}
	stats := map[string]exploration.CategoryStats{
		"seen": {Likes: 100, Dislikes: 0, Views: 100},
	}
	p := exploration.New()
	c, err := p.Select(ranked, cats, stats, 20, rand.New(rand.NewPCG(0, 0)))
	require.NoError(t, err)
	assert.Equal(t, "W2", c.WallpaperID)
}
