// Package core runs background jobs off the telemetry stream, away from the session loop.
package core

import (
	"context"
	"log/slog"
	"sync"

	"aerosim/pkg/sim"
)

// Scheduler evaluates its jobs against the newest telemetry. It is a sim.Sink: Publish never blocks
// and a snapshot the scheduler has not picked up yet is replaced by the next one.
type Scheduler struct {
	mu   sync.Mutex
	jobs []Job

	in chan sim.Telemetry
}

// NewScheduler creates a new Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{in: make(chan sim.Telemetry, 1)}
}

// AddJob registers a job.
func (s *Scheduler) AddJob(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, j)
}

// Publish implements sim.Sink.
func (s *Scheduler) Publish(t *sim.Telemetry) {
	for {
		select {
		case s.in <- *t:
			return
		default:
		}
		// Drop the stale snapshot and retry.
		select {
		case <-s.in:
		default:
		}
	}
}

// Start runs the main loop. It blocks until context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("Scheduler started", "jobs", len(s.snapshot()))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return
		case tel := <-s.in:
			s.tick(ctx, &tel)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, tel *sim.Telemetry) {
	for _, job := range s.snapshot() {
		if job.ShouldFire(tel) {
			slog.Debug("Job firing", "job", job.Name())
			// Fire and forget
			t := *tel
			go job.Run(ctx, &t)
		}
	}
}

func (s *Scheduler) snapshot() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Job(nil), s.jobs...)
}
