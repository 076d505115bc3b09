// Package config loads the engine's configuration surface (spec §6: mode,
// rotation interval, daily alarm time, apply target, enabled sources, last
// sync timestamp, cache budget) the way the teacher's GUI-bound
// fyne.Preferences cannot here: layered defaults, an optional YAML file,
// then environment variable overrides, via koanf (grounded on
// tomtom215-cartographus/internal/config/koanf.go).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Mode names how the engine is run: its own scheduler loop (DAEMON) or one
// apply-next at a time by an external caller (ON_DEMAND) (spec §6). It is
// loaded and validated but not read at run time: the CLI subcommand (run or
// tick) decides which of the two happens.
type Mode string

const (
	ModeDaemon    Mode = "DAEMON"
	ModeOnDemand  Mode = "ON_DEMAND"
)

// ApplyTarget mirrors orchestrator.ApplyTarget without importing pkg/orchestrator,
// keeping this package dependency-free of the domain packages it configures.
type ApplyTarget string

const (
	ApplyHome ApplyTarget = "HOME"
	ApplyLock ApplyTarget = "LOCK"
	ApplyBoth ApplyTarget = "BOTH"
)

// SourcesEnabled toggles which catalog-generation sources fed the manifest
// this install consumes (spec §6: "sources_enabled{GITHUB,BING}"). The
// engine itself never calls these sources directly (that is the
// catalog-generation batch job, out of scope per spec §1) — this flag only
// affects which entries Catalog accepts.
type SourcesEnabled struct {
	GitHub bool `koanf:"github"`
	Bing   bool `koanf:"bing"`
}

// Config is the engine's full configuration surface.
type Config struct {
	Mode             Mode           `koanf:"mode"`
	RotationInterval time.Duration  `koanf:"rotation_interval"`
	DailyTime        string         `koanf:"daily_time"` // "HH:MM", local time
	ApplyTarget      ApplyTarget    `koanf:"apply_target"`
	SourcesEnabled   SourcesEnabled `koanf:"sources_enabled"`
	LastSyncTS       int64          `koanf:"last_sync_ts"`
	CacheBudgetBytes int64          `koanf:"cache_budget_bytes"`

	ManifestURL  string `koanf:"manifest_url"`
	DataDir      string `koanf:"data_dir"`
	LogLevel     string `koanf:"log_level"`
	JWTPublicKey string `koanf:"jwt_public_key"`
}

// EnvPrefix is the prefix every environment-variable override must carry
// (spec §3: "overridable by SPICETASTE_* env vars").
const EnvPrefix = "SPICETASTE_"

// defaultConfigPaths lists where a YAML config file is searched for, in
// priority order; the first one found wins.
var defaultConfigPaths = []string{
	"spicetaste.yaml",
	"spicetaste.yml",
	"/etc/spicetaste/config.yaml",
}

// ConfigPathEnvVar overrides the config file search entirely.
const ConfigPathEnvVar = "SPICETASTE_CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Mode:             ModeDaemon,
		RotationInterval: time.Hour,
		DailyTime:        "06:00",
		ApplyTarget:      ApplyBoth,
		SourcesEnabled:   SourcesEnabled{GitHub: true, Bing: true},
		LastSyncTS:       0,
		CacheBudgetBytes: 450 * 1024 * 1024,
		DataDir:          "",
		LogLevel:         "info",
	}
}

// Load builds a Config from defaults, an optional YAML file, then
// SPICETASTE_*-prefixed environment variables, in increasing priority.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// envTransform turns SPICETASTE_ROTATION_INTERVAL into rotation_interval
// and SPICETASTE_SOURCES_ENABLED_GITHUB into sources_enabled.github.
func envTransform(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	s = strings.ToLower(s)
	if rest, ok := strings.CutPrefix(s, "sources_enabled_"); ok {
		s = "sources_enabled." + rest
	}
	return s
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks the invariants the rest of the engine assumes hold.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDaemon, ModeOnDemand:
	default:
		return fmt.Errorf("config: invalid mode %q", c.Mode)
	}
	switch c.ApplyTarget {
	case ApplyHome, ApplyLock, ApplyBoth:
	default:
		return fmt.Errorf("config: invalid apply_target %q", c.ApplyTarget)
	}
	if c.CacheBudgetBytes <= 0 {
		return fmt.Errorf("config: cache_budget_bytes must be positive, got %d", c.CacheBudgetBytes)
	}
	if _, _, err := parseDailyTime(c.DailyTime); err != nil {
		return fmt.Errorf("config: daily_time: %w", err)
	}
	return nil
}

// DailyHourMinute returns the configured daily alarm hour and minute.
func (c *Config) DailyHourMinute() (hour, minute int) {
	hour, minute, _ = parseDailyTime(c.DailyTime)
	return hour, minute
}

func parseDailyTime(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}
