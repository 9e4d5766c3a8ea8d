package core

import (
	"context"
	"math"
	"sync"
	"time"

	"aerosim/pkg/sim"
)

// Job is a background task the scheduler offers every telemetry snapshot to.
type Job interface {
	Name() string
	ShouldFire(t *sim.Telemetry) bool
	Run(ctx context.Context, t *sim.Telemetry)
}

// Action is the work a trigger job performs. It gets its own copy of the snapshot.
type Action func(ctx context.Context, t sim.Telemetry)

// BaseJob carries the name and a single-flight flag. A job whose previous run has not returned
// is never offered the next snapshot.
type BaseJob struct {
	name    string
	running sync.Mutex
}

func NewBaseJob(name string) BaseJob {
	return BaseJob{name: name}
}

func (b *BaseJob) Name() string { return b.name }

// Acquire marks the job running. It returns false if it already is.
func (b *BaseJob) Acquire() bool { return b.running.TryLock() }

// Release clears the running mark.
func (b *BaseJob) Release() { b.running.Unlock() }

// Busy reports whether a run is in progress.
func (b *BaseJob) Busy() bool {
	if b.running.TryLock() {
		b.running.Unlock()
		return false
	}
	return true
}

// exclusive runs fn unless a run is already in progress.
func (b *BaseJob) exclusive(fn func()) {
	if !b.Acquire() {
		return
	}
	defer b.Release()
	fn()
}

// DistanceJob fires each time the vehicle has covered threshold meters over the ground (X/Z)
// since its last run. The first snapshot of every flight fires.
type DistanceJob struct {
	BaseJob
	threshold float64
	action    Action

	mu     sync.Mutex
	last   sim.Vector
	flight string
}

func NewDistanceJob(name string, thresholdMeters float64, action Action) *DistanceJob {
	return &DistanceJob{
		BaseJob:   NewBaseJob(name),
		threshold: thresholdMeters,
		action:    action,
	}
}

func (j *DistanceJob) ShouldFire(t *sim.Telemetry) bool {
	if j.Busy() {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if t.FlightID != j.flight {
		return true
	}
	return math.Hypot(t.Position.X-j.last.X, t.Position.Z-j.last.Z) >= j.threshold
}

func (j *DistanceJob) Run(ctx context.Context, t *sim.Telemetry) {
	j.exclusive(func() {
		j.mu.Lock()
		j.last, j.flight = t.Position, t.FlightID
		j.mu.Unlock()
		j.action(ctx, *t)
	})
}

// TimeJob fires once threshold has elapsed on the telemetry clock since its last run. Wall time
// is not used, so a paused session does not accumulate runs.
type TimeJob struct {
	BaseJob
	threshold time.Duration
	action    Action

	mu   sync.Mutex
	last time.Time // zero before the first run
}

func NewTimeJob(name string, threshold time.Duration, action Action) *TimeJob {
	return &TimeJob{
		BaseJob:   NewBaseJob(name),
		threshold: threshold,
		action:    action,
	}
}

func (j *TimeJob) ShouldFire(t *sim.Telemetry) bool {
	if j.Busy() {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last.IsZero() || t.Time.Sub(j.last) >= j.threshold
}

func (j *TimeJob) Run(ctx context.Context, t *sim.Telemetry) {
	j.exclusive(func() {
		j.mu.Lock()
		j.last = t.Time
		j.mu.Unlock()
		j.action(ctx, *t)
	})
}
