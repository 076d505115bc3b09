package sysguard_test

import (
	"testing"

	"github.com/dixieflatline76/spicetaste/internal/sysguard"
)

// These tests exercise the guard against the real host; they assert only
// that each probe returns without panicking and produces a bool, since the
// actual battery/storage/network state of the test runner is unknown.
func TestGuardProbesDoNotPanic(t *testing.T) {
	g := sysguard.New(t.TempDir())
	_ = g.NetworkAvailable()
	_ = g.NetworkMetered()
	_ = g.BatteryLow()
	_ = g.StorageLow()
}
