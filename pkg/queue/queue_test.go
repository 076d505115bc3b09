package queue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dixieflatline76/spicetaste/pkg/queue"
)

func TestInsertRankedAssignsPrioritiesByRank(t *testing.T) {
	q := queue.New()
	q.InsertRanked([]string{"A", "B", "C", "D", "E"})

	top3 := q.GetTopUndownloaded(3)
	ids := []string{top3[0].ID, top3[1].ID, top3[2].ID}
	assert.Equal(t, []string{"A", "B", "C"}, ids)

	a, _ := q.Get("A")
	assert.InDelta(t, 1.0, a.Priority, 1e-6)
	b, _ := q.Get("B")
	assert.InDelta(t, 0.8, b.Priority, 1e-6)
}

func TestGetTopUndownloadedExcludesDownloadedAndExhaustedRetries(t *testing.T) {
	q := queue.New()
	q.InsertRanked([]string{"A", "B", "C"})
	q.MarkDownloaded("A")
	q.IncrementRetry("B")
	q.IncrementRetry("B")
	q.IncrementRetry("B") // retry_count hits MaxRetries

	top := q.GetTopUndownloaded(10)
	assert.Len(t, top, 1)
	assert.Equal(t, "C", top[0].ID)
}

func TestQueueNeverExceedsMaxSize(t *testing.T) {
	q := queue.New()
	ids := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		ids = append(ids, string(rune('a'+i%26))+string(rune('0'+i/26)))
	}
	q.InsertRanked(ids)
	assert.LessOrEqual(t, q.Len(), queue.MaxSize)
}

func TestRetryCountNeverExceedsMax(t *testing.T) {
	q := queue.New()
	q.InsertRanked([]string{"A"})
	for i := 0; i < 10; i++ {
		q.IncrementRetry("A")
	}
	a, _ := q.Get("A")
	assert.Equal(t, queue.MaxRetries, a.RetryCount)
}

func TestDeleteBelowThreshold(t *testing.T) {
	q := queue.New()
	q.InsertRanked([]string{"A", "B", "C", "D"}) // priorities 1.0, 0.75, 0.5, 0.25
	q.DeleteBelowThreshold(0.5)
	assert.Equal(t, 3, q.Len())
	_, ok := q.Get("D")
	assert.False(t, ok)
}

func TestKeepTopN(t *testing.T) {
	q := queue.New()
	q.InsertRanked([]string{"A", "B", "C", "D"})
	q.KeepTopN(2)
	assert.Equal(t, 2, q.Len())
	_, aOK := q.Get("A")
	_, bOK := q.Get("B")
	assert.True(t, aOK)
	assert.True(t, bOK)
}

func TestRetryDelayDoublesPerAttempt(t *testing.T) {
	assert.Equal(t, 60*time.Second, queue.RetryDelay(0))
	assert.Equal(t, 120*time.Second, queue.RetryDelay(1))
	assert.Equal(t, 240*time.Second, queue.RetryDelay(2))
}

func TestRetryDelayCapsAtThirtyMinutes(t *testing.T) {
	assert.Equal(t, 30*time.Minute, queue.RetryDelay(10))
}

func TestInsertAllThenKeepTopNMatchesSortedPrefix(t *testing.T) {
	q := queue.New()
	ids := []string{"A", "B", "C", "D", "E"}
	q.InsertRanked(ids)
	q.KeepTopN(3)
	top := q.GetTopUndownloaded(10)
	assert.Len(t, top, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{top[0].ID, top[1].ID, top[2].ID})
}
