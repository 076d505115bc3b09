package preference_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dixieflatline76/spicetaste/pkg/preference"
	"github.com/dixieflatline76/spicetaste/pkg/vector"
)

func openTestStore(t *testing.T) *preference.Store {
	t.Helper()
	s, err := preference.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDefaultPreferencesAreUnitTaste(t *testing.T) {
	s := openTestStore(t)
	prefs := s.Get()
	assert.InDelta(t, 1.0, vector.Norm(prefs.TasteVector), 1e-3)
	assert.Equal(t, preference.ModeAuto, prefs.Mode)
	assert.Equal(t, 0, prefs.FeedbackCount)
}

func TestGetReturnsIndependentCopies(t *testing.T) {
	s := openTestStore(t)
	a := s.Get()
	a.TasteVector[0] = 99
	b := s.Get()
	assert.NotEqual(t, float32(99), b.TasteVector[0])
}

func TestWithWriteLockPersistsAcrossReads(t *testing.T) {
	s := openTestStore(t)
	err := s.WithWriteLock(func(cur preference.UserPreferences) (preference.UserPreferences, error) {
		next := cur.Clone()
		next.FeedbackCount = 5
		return next, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, s.Get().FeedbackCount)
}

func TestWithWriteLockRejectsNonUnitTaste(t *testing.T) {
	s := openTestStore(t)
	err := s.WithWriteLock(func(cur preference.UserPreferences) (preference.UserPreferences, error) {
		next := cur.Clone()
		next.TasteVector[0] += 5 // blow past unit length
		return next, nil
	})
	assert.Error(t, err)
	// rejected update must not be persisted
	assert.InDelta(t, 1.0, vector.Norm(s.Get().TasteVector), 1e-3)
}

func TestWithWriteLockRejectsVelocityOverCap(t *testing.T) {
	s := openTestStore(t)
	err := s.WithWriteLock(func(cur preference.UserPreferences) (preference.UserPreferences, error) {
		next := cur.Clone()
		for i := range next.VelocityVector {
			next.VelocityVector[i] = 10
		}
		return next, nil
	})
	assert.Error(t, err)
}

func TestCategoryPreferenceScoreFormula(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.RecordCategoryLike("nature"))
	require.NoError(t, s.RecordCategoryLike("nature"))
	require.NoError(t, s.RecordCategoryDislike("nature"))

	pref, err := s.GetCategoryPreference("nature")
	require.NoError(t, err)
	assert.Equal(t, 2, pref.Likes)
	assert.Equal(t, 1, pref.Dislikes)
	assert.Equal(t, 3, pref.Views)
	assert.InDelta(t, float64(2-2*1)/float64(3+1), pref.Score(), 1e-9)
}

func TestColorPreferenceScoreFormula(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.RecordLikes([]string{"#FF0000"}))
	require.NoError(t, s.RecordDislikes([]string{"#FF0000"}))

	pref, err := s.GetColorPreference("#FF0000")
	require.NoError(t, err)
	assert.Equal(t, 1, pref.Likes)
	assert.Equal(t, 1, pref.Dislikes)
	assert.InDelta(t, float64(1-2*1)/float64(1+1+1), pref.Score(), 1e-9)
}

func TestCompositionPreferenceDefaultsNeutral(t *testing.T) {
	s := openTestStore(t)
	pref, err := s.GetCompositionPreference()
	require.NoError(t, err)
	assert.Equal(t, preference.DefaultCompositionPreference(), pref)
}

func TestAllCategoryPreferencesListsEverything(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.RecordCategoryLike("nature"))
	require.NoError(t, s.RecordCategoryLike("urban"))

	all, err := s.AllCategoryPreferences()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Contains(t, all, "nature")
	assert.Contains(t, all, "urban")
}
