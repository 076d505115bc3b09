//go:build !linux

package sysguard

import (
	"net"
	"time"
)

// Guard is the always-available fallback ResourceGuard for platforms this
// package has no native battery/storage probe for.
type Guard struct {
	DialTimeout time.Duration
	DataDir     string
}

// New returns a Guard with spec-reasonable defaults.
func New(dataDir string) *Guard {
	return &Guard{DialTimeout: 2 * time.Second, DataDir: dataDir}
}

func (g *Guard) NetworkAvailable() bool {
	conn, err := net.DialTimeout("tcp", "1.1.1.1:53", g.DialTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (g *Guard) NetworkMetered() bool { return false }
func (g *Guard) BatteryLow() bool     { return false }
func (g *Guard) StorageLow() bool     { return false }
