package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dixieflatline76/spicetaste/pkg/scheduler"
)

type fakeGuard struct {
	network bool
	metered bool
	battery bool
	storage bool
}

func (f fakeGuard) NetworkAvailable() bool { return f.network }
func (f fakeGuard) NetworkMetered() bool   { return f.metered }
func (f fakeGuard) BatteryLow() bool       { return f.battery }
func (f fakeGuard) StorageLow() bool       { return f.storage }

func TestRefreshCadenceByEngagementLevel(t *testing.T) {
	assert.Equal(t, 24*time.Hour, scheduler.RefreshCadence(scheduler.EngagementHigh))
	assert.Equal(t, 72*time.Hour, scheduler.RefreshCadence(scheduler.EngagementMedium))
	assert.Equal(t, 168*time.Hour, scheduler.RefreshCadence(scheduler.EngagementLow))
	assert.Equal(t, 336*time.Hour, scheduler.RefreshCadence(scheduler.EngagementMinimal))
}

func TestNextDailyFireRollsOverWhenTimePassed(t *testing.T) {
	d := time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)
	next := scheduler.NextDailyFire(d, 9, 0)
	assert.Equal(t, time.Date(2026, 1, 16, 9, 0, 0, 0, time.UTC), next)
}

func TestNextDailyFireSameDayWhenStillAhead(t *testing.T) {
	d := time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC)
	next := scheduler.NextDailyFire(d, 9, 0)
	assert.Equal(t, time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC), next)
}

func TestDailyAlarmRolloverThenNextDay(t *testing.T) {
	day1Fire := time.Date(2026, 1, 16, 9, 0, 0, 0, time.UTC)
	day2Fire := scheduler.NextDailyFire(day1Fire.Add(time.Second), 9, 0)
	assert.Equal(t, time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC), day2Fire)
}

func TestRefreshBackoffExponentialWithCap(t *testing.T) {
	assert.Equal(t, 1*time.Second, scheduler.RefreshBackoff(0))
	assert.Equal(t, 2*time.Second, scheduler.RefreshBackoff(1))
	assert.Equal(t, 4*time.Second, scheduler.RefreshBackoff(2))
	assert.Equal(t, 30*time.Second, scheduler.RefreshBackoff(10))
}

func TestDutySucceeds(t *testing.T) {
	d := &scheduler.Duty{Name: "t", Fn: func(ctx context.Context) error { return nil }}
	state := d.Run(context.Background(), fakeGuard{network: true})
	assert.Equal(t, scheduler.StateSucceeded, state)
}

func TestDutyGuardFailureStaysIdle(t *testing.T) {
	d := &scheduler.Duty{Name: "t", RequiresNetwork: true, Fn: func(ctx context.Context) error { return nil }}
	state := d.Run(context.Background(), fakeGuard{network: false})
	assert.Equal(t, scheduler.StateIdle, state)
}

func TestDutyRunWithRetriesEventuallyFails(t *testing.T) {
	attempts := 0
	d := &scheduler.Duty{Name: "t", Fn: func(ctx context.Context) error {
		attempts++
		return errors.New("boom")
	}}
	state := d.RunWithRetries(context.Background(), fakeGuard{network: true}, func(time.Duration) {})
	assert.Equal(t, scheduler.StateFailed, state)
	assert.Equal(t, 3, attempts)
}

func TestDutyRunWithRetriesSucceedsEarly(t *testing.T) {
	attempts := 0
	d := &scheduler.Duty{Name: "t", Fn: func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("boom")
		}
		return nil
	}}
	state := d.RunWithRetries(context.Background(), fakeGuard{network: true}, func(time.Duration) {})
	assert.Equal(t, scheduler.StateSucceeded, state)
	assert.Equal(t, 2, attempts)
}

func TestDutyCancelledMarksCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := &scheduler.Duty{Name: "t", Fn: func(ctx context.Context) error { return ctx.Err() }}
	state := d.Run(ctx, fakeGuard{network: true})
	assert.Equal(t, scheduler.StateCancelled, state)
}

func TestRunOnDemandBlocksWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	d := &scheduler.Duty{Name: "t", Fn: func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}}
	s := scheduler.New(fakeGuard{network: true})

	go s.RunOnDemand(context.Background(), d)
	<-started
	state := s.RunOnDemand(context.Background(), d)
	assert.Equal(t, scheduler.StateRunning, state)
	close(release)
}
