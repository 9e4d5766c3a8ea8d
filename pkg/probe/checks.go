package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"aerosim/pkg/config"
	"aerosim/pkg/flight"
	"aerosim/pkg/obstacle"
	"aerosim/pkg/store"
)

// Idle period a vehicle must survive at the spawn point.
const (
	idleDuration = 2 * time.Second
	idleStep     = time.Second / 60
)

const probeKey = "probe_check"

// StateStore verifies the state store accepts writes and reads them back.
func StateStore(st store.StateStore) CheckFunc {
	return func(ctx context.Context) error {
		if st == nil {
			return errors.New("no state store")
		}
		val := time.Now().Format(time.RFC3339Nano)
		if err := st.SetState(ctx, probeKey, val); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
		defer func() { _ = st.DeleteState(context.WithoutCancel(ctx), probeKey) }()

		got, ok := st.GetState(ctx, probeKey)
		if !ok || got != val {
			return fmt.Errorf("read back %q, want %q", got, val)
		}
		return nil
	}
}

// Vehicles idles every configured vehicle at the spawn point on an open field. A profile that
// crashes or diverges at rest can never take off.
func Vehicles(cfg *config.Config, spawn mgl64.Vec3) CheckFunc {
	return func(ctx context.Context) error {
		var errs []error
		for _, name := range cfg.VehicleNames() {
			p := cfg.Vehicles[name]
			if err := idle(ctx, &p, nil, spawn); err != nil {
				errs = append(errs, fmt.Errorf("vehicle %q: %w", name, err))
			}
		}
		return errors.Join(errs...)
	}
}

// SpawnClear fails when the vehicle would sit inside an obstacle's clearance box at the spawn point,
// then idles the selected vehicle among the obstacles.
func SpawnClear(p flight.Profile, g *obstacle.Grid, spawn mgl64.Vec3) CheckFunc {
	return func(ctx context.Context) error {
		r := p.Kind.CollisionRadius()
		for _, o := range g.Query(spawn.X(), spawn.Z()) {
			inside := math.Abs(spawn.X()-o.X) < o.HalfWidth+r && math.Abs(spawn.Z()-o.Z) < o.HalfDepth+r
			if inside && p.MinAltitude < o.Top()+r {
				return fmt.Errorf("spawn point inside obstacle %q (top %.1fm)", o.ID, o.Top())
			}
		}
		return idle(ctx, &p, g, spawn)
	}
}

func idle(ctx context.Context, p *flight.Profile, idx flight.ObstacleIndex, spawn mgl64.Vec3) error {
	e := flight.NewEngine(spawn, p.MinAltitude)
	dt := idleStep.Seconds()
	for t := time.Duration(0); t < idleDuration; t += idleStep {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.Update(dt, flight.Controls{}, p)
		var at mgl64.Vec3
		if e.CheckCollisions(p, idx, func(pos mgl64.Vec3) { at = pos }, p.Kind) {
			return fmt.Errorf("crashed at rest after %v at (%.1f, %.1f, %.1f)", t+idleStep, at.X(), at.Y(), at.Z())
		}
		if !e.Finite() {
			return fmt.Errorf("state diverged after %v", t+idleStep)
		}
	}
	return nil
}
