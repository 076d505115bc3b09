package download_test

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dixieflatline76/spicetaste/pkg/cachefs"
	"github.com/dixieflatline76/spicetaste/pkg/download"
	"github.com/dixieflatline76/spicetaste/pkg/queue"
)

type closingReader struct{ io.Reader }

func (c closingReader) Close() error { return nil }

func TestRunBatchDownloadsSucceedAndWriteFiles(t *testing.T) {
	dir := t.TempDir()
	cache := cachefs.New(dir, 0, nil)
	require.NoError(t, cache.EnsureDir())
	q := queue.New()
	q.InsertRanked([]string{"w1", "w2"})

	fetch := func(_ context.Context, url string) (io.ReadCloser, error) {
		return closingReader{strings.NewReader("fake-image-bytes:" + url)}, nil
	}
	d := download.New(fetch, cache, q, 2, 0)

	targets := []download.Target{{ID: "w1", URL: "http://x/w1"}, {ID: "w2", URL: "http://x/w2"}}
	progressCh := make(chan download.Progress, 10)
	require.NoError(t, d.RunBatch(context.Background(), targets, progressCh))

	var last download.Progress
	for p := range progressCh {
		last = p
	}
	assert.Equal(t, 2, last.DownloadedCount)
	assert.Equal(t, 0, last.FailedCount)

	assert.True(t, cache.Has("w1"))
	assert.True(t, cache.Has("w2"))

	w1, ok := q.Get("w1")
	require.True(t, ok)
	assert.True(t, w1.Downloaded)
}

func TestRunBatchRecordsFetchFailuresAsRetries(t *testing.T) {
	dir := t.TempDir()
	cache := cachefs.New(dir, 0, nil)
	require.NoError(t, cache.EnsureDir())
	q := queue.New()
	q.InsertRanked([]string{"w1"})

	fetch := func(_ context.Context, url string) (io.ReadCloser, error) {
		return nil, errors.New("boom")
	}
	d := download.New(fetch, cache, q, 1, 0)

	require.NoError(t, d.RunBatch(context.Background(), []download.Target{{ID: "w1", URL: "http://x"}}, nil))

	w1, ok := q.Get("w1")
	require.True(t, ok)
	assert.Equal(t, 1, w1.RetryCount)
	assert.False(t, w1.Downloaded)
}

func TestRunBatchCancelledContextDoesNotIncrementRetry(t *testing.T) {
	dir := t.TempDir()
	cache := cachefs.New(dir, 0, nil)
	require.NoError(t, cache.EnsureDir())
	q := queue.New()
	q.InsertRanked([]string{"w1"})

	fetch := func(_ context.Context, url string) (io.ReadCloser, error) {
		return nil, context.Canceled
	}
	d := download.New(fetch, cache, q, 1, 0)

	require.NoError(t, d.RunBatch(context.Background(), []download.Target{{ID: "w1", URL: "http://x"}}, nil))

	w1, ok := q.Get("w1")
	require.True(t, ok)
	assert.Equal(t, 0, w1.RetryCount)
}

func TestWrittenFileIsNotPartial(t *testing.T) {
	dir := t.TempDir()
	cache := cachefs.New(dir, 0, nil)
	require.NoError(t, cache.EnsureDir())
	q := queue.New()
	q.InsertRanked([]string{"w1"})

	fetch := func(_ context.Context, url string) (io.ReadCloser, error) {
		return closingReader{strings.NewReader("content")}, nil
	}
	d := download.New(fetch, cache, q, 1, 0)
	require.NoError(t, d.RunBatch(context.Background(), []download.Target{{ID: "w1", URL: "http://x"}}, nil))

	data, err := os.ReadFile(cache.SourcePath("w1"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}
