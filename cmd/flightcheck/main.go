// Command flightcheck flies an input script headless at a fixed step and prints the final
// telemetry and flight events as JSON. It exits non-zero when the final phase is not the expected
// one, which makes it usable as a smoke test for vehicle profiles.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"aerosim/pkg/config"
	"aerosim/pkg/flight"
	"aerosim/pkg/input"
	"aerosim/pkg/model"
	"aerosim/pkg/obstacle"
	"aerosim/pkg/session"
	"aerosim/pkg/sim"
)

// Options selects what to fly.
type Options struct {
	ConfigPath string        // Empty uses the built-in defaults
	ScriptPath string        // Empty flies the built-in takeoff
	Vehicle    string        // Empty uses the configured vehicle
	Step       time.Duration // Fixed tick
	Extra      time.Duration // Time flown after the script ends
	Expect     string        // Phase required at the end, empty accepts any
}

// Report is the JSON output.
type Report struct {
	Vehicle  string              `json:"vehicle"`
	SimTime  string              `json:"sim_time"`
	Final    sim.Telemetry       `json:"final"`
	Flight   *model.Flight       `json:"flight,omitempty"`
	Events   []model.FlightEvent `json:"events"`
	Expected string              `json:"expected,omitempty"`
	Pass     bool                `json:"pass"`
}

func main() {
	var opts Options
	flag.StringVar(&opts.ConfigPath, "config", "", "Config file (defaults when empty)")
	flag.StringVar(&opts.ScriptPath, "script", "", "YAML input script (built-in takeoff when empty)")
	flag.StringVar(&opts.Vehicle, "vehicle", "", "Vehicle to fly")
	flag.DurationVar(&opts.Step, "step", time.Second/60, "Fixed simulation step")
	flag.DurationVar(&opts.Extra, "extra", time.Second, "Time flown after the script ends")
	flag.StringVar(&opts.Expect, "expect", "", "Required final phase: grounded, flying or crashed")
	flag.Parse()

	rep, err := run(context.Background(), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flightcheck: %v\n", err)
		os.Exit(2)
	}
	if err := writeReport(os.Stdout, rep); err != nil {
		fmt.Fprintf(os.Stderr, "flightcheck: %v\n", err)
		os.Exit(2)
	}
	if !rep.Pass {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

func run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Step <= 0 {
		return nil, fmt.Errorf("step must be positive (got %v)", opts.Step)
	}
	switch sim.Phase(opts.Expect) {
	case "", sim.PhaseGrounded, sim.PhaseFlying, sim.PhaseCrashed:
	default:
		return nil, fmt.Errorf("unknown phase %q", opts.Expect)
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Vehicle != "" {
		if _, ok := cfg.Vehicles[opts.Vehicle]; !ok {
			return nil, fmt.Errorf("%w: %q", config.ErrUnknownVehicle, opts.Vehicle)
		}
		cfg.Sim.Vehicle = opts.Vehicle
	}

	script := input.Takeoff()
	if opts.ScriptPath != "" {
		if script, err = input.LoadScript(opts.ScriptPath); err != nil {
			return nil, err
		}
	}

	var obstacles flight.ObstacleIndex
	if cfg.World.ObstacleFile != "" {
		obs, err := obstacle.Load(cfg.World.ObstacleFile)
		if err != nil {
			return nil, err
		}
		grid, err := obstacle.NewGrid(cfg.World.CellSize.Meters(), obs)
		if err != nil {
			return nil, err
		}
		obstacles = grid
	}

	// No state store: the provider only sees the file values.
	sess := session.New(session.Options{
		Provider:  config.NewProvider(cfg, nil),
		Obstacles: obstacles,
		Input:     script,
		Spawn:     mgl64.Vec3{cfg.Sim.StartX.Meters(), 0, cfg.Sim.StartZ.Meters()},
		MaxStep:   cfg.Sim.MaxStep.Std(),
	})
	sess.Start(ctx)

	total := script.Duration() + opts.Extra
	var simTime time.Duration
	for simTime < total {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sess.Tick(ctx, opts.Step)
		simTime += opts.Step
	}

	final := sess.Telemetry()
	rep := &Report{
		Vehicle:  final.Vehicle,
		SimTime:  simTime.String(),
		Final:    final,
		Events:   sess.Events(),
		Expected: opts.Expect,
		Pass:     opts.Expect == "" || final.Phase == sim.Phase(opts.Expect),
	}
	if f, ok := sess.Flight(); ok {
		rep.Flight = &f
	}
	slog.Debug("Flight check finished", "phase", final.Phase, "pass", rep.Pass)
	return rep, nil
}

func writeReport(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
