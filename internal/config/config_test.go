package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dixieflatline76/spicetaste/internal/config"
)

func TestLoadAppliesDefaultsWithNoFileOrEnv(t *testing.T) {
	t.Setenv(config.ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.ModeDaemon, cfg.Mode)
	assert.Equal(t, config.ApplyBoth, cfg.ApplyTarget)
	assert.EqualValues(t, 450*1024*1024, cfg.CacheBudgetBytes)
	assert.True(t, cfg.SourcesEnabled.GitHub)
}

func TestLoadEnvOverridesFileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "spicetaste.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("apply_target: HOME\ncache_budget_bytes: 1000\n"), 0o644))
	t.Setenv(config.ConfigPathEnvVar, yamlPath)
	t.Setenv("SPICETASTE_CACHE_BUDGET_BYTES", "2048")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.ApplyTarget("HOME"), cfg.ApplyTarget)
	assert.EqualValues(t, 2048, cfg.CacheBudgetBytes)
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg := &config.Config{Mode: "BOGUS", ApplyTarget: config.ApplyBoth, CacheBudgetBytes: 1, DailyTime: "06:00"}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveCacheBudget(t *testing.T) {
	cfg := &config.Config{Mode: config.ModeDaemon, ApplyTarget: config.ApplyBoth, CacheBudgetBytes: 0, DailyTime: "06:00"}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMalformedDailyTime(t *testing.T) {
	cfg := &config.Config{Mode: config.ModeDaemon, ApplyTarget: config.ApplyBoth, CacheBudgetBytes: 1, DailyTime: "not-a-time"}
	assert.Error(t, cfg.Validate())
}

func TestDailyHourMinuteParsesConfiguredTime(t *testing.T) {
	cfg := &config.Config{DailyTime: "14:30"}
	h, m := cfg.DailyHourMinute()
	assert.Equal(t, 14, h)
	assert.Equal(t, 30, m)
}
