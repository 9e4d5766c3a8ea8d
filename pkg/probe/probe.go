// Package probe runs the startup checks that decide whether the simulator can serve.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a probe that sets no Timeout of its own.
const DefaultTimeout = 5 * time.Second

// ErrSkipped marks a probe that never ran because startup was cancelled first.
var ErrSkipped = errors.New("skipped")

// CheckFunc returns nil if the check passes.
type CheckFunc func(ctx context.Context) error

// Probe is a single startup check.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool          // A failure prevents startup
	Timeout  time.Duration // 0 uses DefaultTimeout
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Passed reports whether the check returned nil.
func (r Result) Passed() bool { return r.Error == nil }

func (r Result) status() string {
	switch {
	case r.Error == nil:
		return "pass"
	case errors.Is(r.Error, ErrSkipped):
		return "skip"
	default:
		return "fail"
	}
}

// Run executes the probes in order, each under its own timeout. Once ctx is done the remaining
// probes are not started and report ErrSkipped.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, 0, len(probes))
	for _, p := range probes {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{Probe: p, Error: fmt.Errorf("%w: %w", ErrSkipped, err)})
			continue
		}
		results = append(results, runOne(ctx, p))
	}
	return results
}

func runOne(ctx context.Context, p Probe) Result {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := p.Check(ctx)
	return Result{Probe: p, Error: err, Duration: time.Since(start)}
}

// AnalyzeResults logs one line per probe and returns the failed critical probes joined into one
// error. Non-critical failures are logged as warnings only.
func AnalyzeResults(results []Result) error {
	var critical []error
	passed := 0

	for _, r := range results {
		attrs := []any{
			"probe", r.Probe.Name,
			"status", r.status(),
			"critical", r.Probe.Critical,
			"duration", r.Duration.Round(time.Millisecond),
		}
		switch {
		case r.Passed():
			passed++
			slog.Debug("Startup check", attrs...)
		case r.Probe.Critical:
			slog.Error("Startup check", append(attrs, "error", r.Error)...)
			critical = append(critical, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		default:
			slog.Warn("Startup check", append(attrs, "error", r.Error)...)
		}
	}

	slog.Info("Startup checks complete", "passed", passed, "total", len(results), "critical_failures", len(critical))
	return errors.Join(critical...)
}
