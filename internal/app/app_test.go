package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dixieflatline76/spicetaste/internal/app"
	"github.com/dixieflatline76/spicetaste/internal/config"
	"github.com/dixieflatline76/spicetaste/pkg/orchestrator"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	cfg := &config.Config{
		Mode:             config.ModeOnDemand,
		ApplyTarget:      config.ApplyBoth,
		DailyTime:        "06:00",
		CacheBudgetBytes: 10 * 1024 * 1024,
		DataDir:          t.TempDir(),
	}
	a, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewWiresAllFourDuties(t *testing.T) {
	a := newTestApp(t)
	assert.NotNil(t, a.Scheduler.CatalogRefresh)
	assert.NotNil(t, a.Scheduler.Rotation)
	assert.NotNil(t, a.Scheduler.BatchDownload)
	assert.NotNil(t, a.Scheduler.Cleanup)
}

func TestCleanupNoOpsOnEmptyState(t *testing.T) {
	a := newTestApp(t)
	err := a.Scheduler.Cleanup.Fn(context.Background())
	assert.NoError(t, err)
}

func TestDownloadQueuedNoOpsOnEmptyQueue(t *testing.T) {
	a := newTestApp(t)
	err := a.Scheduler.BatchDownload.Fn(context.Background())
	assert.NoError(t, err)
}

func TestApplyNextNoOpOnEmptyCatalog(t *testing.T) {
	a := newTestApp(t)
	err := a.Orchestrator.ApplyNext(context.Background(), false, orchestrator.ApplyBoth)
	assert.NoError(t, err)
}
