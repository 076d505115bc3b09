package history_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dixieflatline76/spicetaste/pkg/history"
)

func TestInsertSealsPreviousActive(t *testing.T) {
	l := history.New()
	now := time.Now()
	id1 := l.Insert("w1", true, now)
	l.Insert("w2", true, now.Add(time.Minute))

	_, ok := l.Active()
	assert.True(t, ok)
	active, _ := l.Active()
	assert.Equal(t, "w2", active.WallpaperID)

	recent := l.Recent(10)
	var first Entry
	for _, e := range recent {
		if e.ID == id1 {
			first = e
		}
	}
	assert.NotNil(t, first.RemovedAt)
}

type Entry = history.Entry

func TestExactlyOneActiveRow(t *testing.T) {
	l := history.New()
	now := time.Now()
	for i := 0; i < 5; i++ {
		l.Insert("w", true, now.Add(time.Duration(i)*time.Minute))
	}
	activeCount := 0
	for _, e := range l.Recent(100) {
		if e.RemovedAt == nil {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)
}

func TestRecentOrderedDescending(t *testing.T) {
	l := history.New()
	now := time.Now()
	l.Insert("w1", true, now)
	l.Insert("w2", true, now.Add(time.Minute))
	l.Insert("w3", true, now.Add(2*time.Minute))

	recent := l.Recent(10)
	assert.Equal(t, "w3", recent[0].WallpaperID)
	assert.Equal(t, "w2", recent[1].WallpaperID)
	assert.Equal(t, "w1", recent[2].WallpaperID)
}

func TestTrimCapsAtMaxEntries(t *testing.T) {
	l := history.New()
	now := time.Now()
	for i := 0; i < history.MaxEntries+20; i++ {
		l.Insert("w", true, now.Add(time.Duration(i)*time.Minute))
	}
	l.Trim()
	assert.Equal(t, history.MaxEntries, l.Len())
}

func TestImplicitFeedbackAppliedOnce(t *testing.T) {
	l := history.New()
	now := time.Now()
	id := l.Insert("w1", true, now)
	l.MarkImplicitFeedbackApplied(id)

	recent := l.Recent(1)
	assert.True(t, recent[0].ImplicitFeedbackApplied)
}
