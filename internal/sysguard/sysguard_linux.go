//go:build linux

// Package sysguard implements scheduler.ResourceGuard against the running
// machine: battery and storage status read from /sys and statfs, network
// reachability via a short TCP dial. This is a best-effort probe (spec §6
// external collaborators Battery/Storage/Network); off Linux it falls back
// to an always-available stub (see sysguard_other.go).
package sysguard

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// Guard implements scheduler.ResourceGuard by probing the host.
type Guard struct {
	// StorageLowThresholdBytes is the free-space floor below which
	// StorageLow reports true. Defaults to 100MiB.
	StorageLowThresholdBytes uint64
	// BatteryLowPercent is the charge percentage below which BatteryLow
	// reports true (ignored while charging). Defaults to 15.
	BatteryLowPercent int
	// DialTimeout bounds the NetworkAvailable probe.
	DialTimeout time.Duration
	// DataDir is statfs'd for StorageLow.
	DataDir string
}

// New returns a Guard with spec-reasonable defaults.
func New(dataDir string) *Guard {
	return &Guard{
		StorageLowThresholdBytes: 100 * 1024 * 1024,
		BatteryLowPercent:        15,
		DialTimeout:              2 * time.Second,
		DataDir:                  dataDir,
	}
}

// NetworkAvailable dials a well-known DNS resolver's TCP port 53; failure
// within DialTimeout counts as unavailable.
func (g *Guard) NetworkAvailable() bool {
	conn, err := net.DialTimeout("tcp", "1.1.1.1:53", g.DialTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// NetworkMetered has no reliable cross-distro signal on Linux without a
// NetworkManager D-Bus dependency this engine does not carry; it
// conservatively reports false (unmetered) so refresh is never blocked.
func (g *Guard) NetworkMetered() bool { return false }

// BatteryLow reads /sys/class/power_supply/BAT0 (falling back to BAT1);
// absent a battery (desktop/server) it reports false.
func (g *Guard) BatteryLow() bool {
	for _, bat := range []string{"BAT0", "BAT1"} {
		capPath := "/sys/class/power_supply/" + bat + "/capacity"
		statusPath := "/sys/class/power_supply/" + bat + "/status"
		raw, err := os.ReadFile(capPath)
		if err != nil {
			continue
		}
		pct, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			continue
		}
		if status, err := os.ReadFile(statusPath); err == nil {
			if strings.TrimSpace(string(status)) == "Charging" {
				return false
			}
		}
		return pct < g.BatteryLowPercent
	}
	return false
}

// StorageLow statfs's DataDir and reports true if free bytes fall below
// StorageLowThresholdBytes.
func (g *Guard) StorageLow() bool {
	dir := g.DataDir
	if dir == "" {
		dir = "."
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return false
	}
	free := stat.Bavail * uint64(stat.Bsize)
	return free < g.StorageLowThresholdBytes
}
