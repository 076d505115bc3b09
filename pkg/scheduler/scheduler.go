// Package scheduler implements Scheduler: the four background duties
// (catalog refresh, wallpaper rotation, batch download, cleanup), each
// with its own trigger, resource guard and state machine (spec §4.11).
package scheduler

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// DutyState is a duty's current position in its state machine
// (IDLE -> ENQUEUED -> RUNNING -> {SUCCEEDED|RETRY|FAILED|CANCELLED}).
type DutyState string

const (
	StateIdle      DutyState = "IDLE"
	StateEnqueued  DutyState = "ENQUEUED"
	StateRunning   DutyState = "RUNNING"
	StateSucceeded DutyState = "SUCCEEDED"
	StateRetry     DutyState = "RETRY"
	StateFailed    DutyState = "FAILED"
	StateCancelled DutyState = "CANCELLED"
)

// EngagementLevel buckets recent wallpaper-change and feedback rate into
// the catalog refresh cadence table (spec §4.11).
type EngagementLevel string

const (
	EngagementHigh    EngagementLevel = "HIGH"
	EngagementMedium  EngagementLevel = "MEDIUM"
	EngagementLow     EngagementLevel = "LOW"
	EngagementMinimal EngagementLevel = "MINIMAL"
)

// RefreshCadence returns how often the catalog should be refreshed for the
// given engagement level (spec §4.11: HIGH 24h, MEDIUM 72h, LOW 168h,
// MINIMAL 336h).
func RefreshCadence(level EngagementLevel) time.Duration {
	switch level {
	case EngagementHigh:
		return 24 * time.Hour
	case EngagementMedium:
		return 72 * time.Hour
	case EngagementLow:
		return 168 * time.Hour
	default:
		return 336 * time.Hour
	}
}

// RotationMode selects how often the active wallpaper is rotated.
type RotationMode string

const (
	RotationNever    RotationMode = "NEVER"
	Rotation15Minute RotationMode = "EVERY_15_MINUTES"
	RotationHourly   RotationMode = "HOURLY"
	RotationDaily    RotationMode = "DAILY"
)

// ResourceGuard reports the external conditions a duty must check before
// running (spec §4.11, §6 external collaborators Battery/Storage/Network).
type ResourceGuard interface {
	NetworkAvailable() bool
	NetworkMetered() bool
	BatteryLow() bool
	StorageLow() bool
}

// backoffBase, backoffCap and backoffMaxAttempts are the catalog-refresh
// retry parameters (spec §4.11: "base 1s, cap 30s, 3 attempts").
const (
	backoffBase        = 1 * time.Second
	backoffCap         = 30 * time.Second
	backoffMaxAttempts = 3
)

// RefreshBackoff returns the exponential backoff delay before retry
// attempt n (0-indexed) of a catalog refresh.
func RefreshBackoff(attempt int) time.Duration {
	d := time.Duration(float64(backoffBase) * math.Pow(2, float64(attempt)))
	if d > backoffCap {
		return backoffCap
	}
	return d
}

// NextDailyFire computes the next wall-clock instant a DAILY@atHour:atMinute
// alarm fires at-or-after now, rolling over to tomorrow if that time has
// already passed today (spec §8 boundary: "Daily alarm at local-time T
// with T already past today schedules for tomorrow, not now").
func NextDailyFire(now time.Time, atHour, atMinute int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), atHour, atMinute, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// DutyFunc is the work a duty performs once its trigger fires and its
// resource guard passes. It must honor ctx cancellation at every
// suspension point (spec §5).
type DutyFunc func(ctx context.Context) error

// Duty is one schedulable unit of work: its resource requirements, its
// function, and its current state-machine position.
type Duty struct {
	Name             string
	RequiresNetwork  bool
	RequiresUnmetered bool
	RequiresBatteryOK bool
	RequiresStorageOK bool
	Fn               DutyFunc

	mu    sync.Mutex
	state DutyState
}

// State returns the duty's current state.
func (d *Duty) State() DutyState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Duty) setState(s DutyState) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// guardCheck reports whether g satisfies d's resource requirements.
func (d *Duty) guardCheck(g ResourceGuard) error {
	if d.RequiresNetwork && !g.NetworkAvailable() {
		return fmt.Errorf("scheduler: duty %s requires network", d.Name)
	}
	if d.RequiresUnmetered && g.NetworkMetered() {
		return fmt.Errorf("scheduler: duty %s requires unmetered network", d.Name)
	}
	if d.RequiresBatteryOK && g.BatteryLow() {
		return fmt.Errorf("scheduler: duty %s requires battery not low", d.Name)
	}
	if d.RequiresStorageOK && g.StorageLow() {
		return fmt.Errorf("scheduler: duty %s requires storage not low", d.Name)
	}
	return nil
}

// Run transitions the duty through its state machine: ENQUEUED -> RUNNING
// -> {SUCCEEDED|RETRY|FAILED|CANCELLED}. For duties that retry
// (currently catalog refresh, driven by the caller looping up to
// backoffMaxAttempts), the caller is responsible for reattempting on
// StateRetry; Run itself makes exactly one attempt.
func (d *Duty) Run(ctx context.Context, g ResourceGuard) DutyState {
	d.setState(StateEnqueued)

	if err := d.guardCheck(g); err != nil {
		d.setState(StateIdle) // guard failure: stay idle, try again next trigger
		return StateIdle
	}

	d.setState(StateRunning)
	err := d.Fn(ctx)
	switch {
	case err == nil:
		d.setState(StateSucceeded)
		return StateSucceeded
	case ctx.Err() != nil:
		d.setState(StateCancelled)
		return StateCancelled
	default:
		d.setState(StateRetry)
		return StateRetry
	}
}

// RunWithRetries drives a duty through up to backoffMaxAttempts attempts,
// sleeping RefreshBackoff(attempt) between retries, stopping early on
// success or cancellation, and landing on StateFailed if every attempt
// returns StateRetry. This is the policy catalog refresh uses (spec
// §4.11: "Exponential backoff... 3 attempts"); duties that should fail
// fast (e.g. on a parse error) should have their DutyFunc return a
// terminal error type the caller distinguishes before looping, rather
// than relying on this helper's blanket retry.
func (d *Duty) RunWithRetries(ctx context.Context, g ResourceGuard, sleep func(time.Duration)) DutyState {
	var state DutyState
	for attempt := 0; attempt < backoffMaxAttempts; attempt++ {
		state = d.Run(ctx, g)
		if state != StateRetry {
			return state
		}
		if attempt < backoffMaxAttempts-1 {
			sleep(RefreshBackoff(attempt))
		}
	}
	d.setState(StateFailed)
	return StateFailed
}

// Scheduler owns the four named duties and the cancellation plumbing to
// stop them, mirroring the teacher's ticker+stop-channel goroutine idiom
// generalized to four independently-triggered duties instead of one.
type Scheduler struct {
	Guard ResourceGuard

	CatalogRefresh  *Duty
	Rotation        *Duty
	BatchDownload   *Duty
	Cleanup         *Duty

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New returns a Scheduler with empty duty slots; callers populate
// CatalogRefresh/Rotation/BatchDownload/Cleanup before running any of its
// trigger loops.
func New(guard ResourceGuard) *Scheduler {
	return &Scheduler{Guard: guard, stopCh: make(chan struct{})}
}

// Stop signals every running trigger loop to exit. Safe to call multiple
// times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// RunCatalogRefreshLoop ticks at cadence (recomputed by the caller as
// engagement changes) and runs CatalogRefresh with retries each fire,
// until Stop is called or ctx is done.
func (s *Scheduler) RunCatalogRefreshLoop(ctx context.Context, cadence func() time.Duration, sleep func(time.Duration)) {
	for {
		d := cadence()
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
			s.CatalogRefresh.RunWithRetries(ctx, s.Guard, sleep)
		case <-s.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// RunOnDemand runs a single duty's Run once, outside of any loop, used
// for BatchDownload ("on demand after a refresh or whenever the queue has
// undownloaded items") and manual triggers.
func (s *Scheduler) RunOnDemand(ctx context.Context, duty *Duty) DutyState {
	if duty.State() == StateRunning {
		// Backpressure: batch-download duty will not be enqueued again
		// while one is already RUNNING (spec §5).
		return StateRunning
	}
	return duty.Run(ctx, s.Guard)
}

// RunDailyLoop fires Cleanup/Rotation-style duties at a computed
// wall-clock instant each day, rescheduling itself for the next day after
// every fire (spec §4.11 DAILY rotation, cleanup "daily near 03:00").
func (s *Scheduler) RunDailyLoop(ctx context.Context, atHour, atMinute int, now func() time.Time, duty *Duty) {
	for {
		next := NextDailyFire(now(), atHour, atMinute)
		d := next.Sub(now())
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
			duty.Run(ctx, s.Guard)
		case <-s.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// RunIntervalLoop fires duty every interval (used for EVERY_15_MINUTES and
// HOURLY rotation, which carry no network constraint so they must still
// fire when offline and simply no-op if nothing is cached).
func (s *Scheduler) RunIntervalLoop(ctx context.Context, interval time.Duration, duty *Duty) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			duty.Run(ctx, s.Guard)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}
