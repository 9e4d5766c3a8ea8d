package flight

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 0.016

// stubIndex is an in-memory ObstacleIndex that returns every footprint regardless of position.
type stubIndex []Footprint

func (s stubIndex) Nearby(x, z float64, fn func(Footprint) bool) {
	for _, f := range s {
		if !fn(f) {
			return
		}
	}
}

func airborne(p *Profile, y float64) *Engine {
	e := NewEngine(mgl64.Vec3{0, 0, 0}, p.MinAltitude)
	e.position[1] = y
	return e
}

func TestReset(t *testing.T) {
	p := LightProfile()
	e := NewEngine(mgl64.Vec3{-50, 123, 7}, p.MinAltitude)

	assert.Equal(t, mgl64.Vec3{-50, p.MinAltitude, 7}, e.Position())
	assert.Equal(t, mgl64.Vec3{}, e.Velocity())
	assert.True(t, e.Orientation().ApproxEqual(mgl64.QuatIdent()))
	assert.Zero(t, e.Throttle())
	assert.True(t, e.GearDeployed())
	assert.False(t, e.Crashed())

	// Dirty the state, then reset twice: both results must be identical.
	for i := 0; i < 50; i++ {
		e.Update(dt, Controls{ThrottleUp: true, RollLeft: true, ToggleGear: i == 3}, &p)
	}
	e.Reset(mgl64.Vec3{-50, 0, 7}, p.MinAltitude)
	first := *e
	e.Reset(mgl64.Vec3{-50, 0, 7}, p.MinAltitude)
	assert.Equal(t, first, *e)
}

func TestUpdate_GravityDominatesWithoutThrottle(t *testing.T) {
	p := LightProfile()
	for _, step := range []float64{0.001, 0.016, 0.05, 0.1} {
		e := airborne(&p, 100)
		before := e.Velocity().Y()
		e.Update(step, Controls{}, &p)
		assert.LessOrEqual(t, e.Velocity().Y(), before-Gravity*step*0.99, "dt=%v", step)
	}
}

func TestUpdate_ClampsStep(t *testing.T) {
	p := LightProfile()
	e := airborne(&p, 100)
	e.Update(5, Controls{}, &p)
	assert.InDelta(t, -Gravity*MaxStep, e.Velocity().Y(), 1e-9)
}

func TestUpdate_SpeedCap(t *testing.T) {
	p := LightProfile()
	e := airborne(&p, 300)
	e.velocity = mgl64.Vec3{0, 0, -1000}
	e.throttle = 100

	for i := 0; i < 200; i++ {
		e.Update(dt, Controls{ThrottleUp: true, PitchUp: i%2 == 0}, &p)
		require.LessOrEqual(t, e.Speed(), p.MaxSpeed+1e-9)
	}
}

func TestUpdate_OrientationStaysNormalised(t *testing.T) {
	p := LightProfile()
	e := airborne(&p, 400)
	e.velocity = mgl64.Vec3{0, 0, -60}
	e.throttle = 80

	inputs := []Controls{
		{PitchUp: true, RollLeft: true},
		{PitchDown: true, YawRight: true},
		{RollRight: true, YawLeft: true},
		{},
	}
	for i := 0; i < 2000; i++ {
		e.Update(dt, inputs[(i/60)%len(inputs)], &p)
		require.InDelta(t, 1.0, e.Orientation().Len(), 1e-6, "step %d", i)
	}
}

func TestUpdate_LiftNeverNegative(t *testing.T) {
	p := LightProfile()
	velocities := []mgl64.Vec3{
		{0, 0, -50}, // Forward
		{0, 0, 50},  // Backward
		{40, 0, 0},  // Sideways
		{0, -30, 0}, // Falling
	}
	for _, v := range velocities {
		e := airborne(&p, 200)
		e.velocity = v
		e.Update(dt, Controls{}, &p)
		assert.GreaterOrEqual(t, e.LiftForce(), 0.0, "velocity %v", v)
	}

	e := airborne(&p, 200)
	e.velocity = mgl64.Vec3{0, 0, 50}
	e.Update(dt, Controls{}, &p)
	assert.Zero(t, e.LiftForce(), "backward motion generates no lift")
}

func TestUpdate_DragNeverReversesVelocity(t *testing.T) {
	p := LightProfile()
	p.Drag = 1000 // Absurd drag: unclamped it would flip the velocity.
	for _, v := range []mgl64.Vec3{{0, 0, -50}, {30, 0, 0}, {-30, 0, 0}, {0, 0, 80}} {
		e := airborne(&p, 200)
		e.velocity = v
		e.Update(dt, Controls{}, &p)

		dominant := 0
		for i := range v {
			if math.Abs(v[i]) > math.Abs(v[dominant]) {
				dominant = i
			}
		}
		after := e.Velocity()[dominant]
		assert.False(t, math.Signbit(after) != math.Signbit(v[dominant]) && after != 0,
			"velocity %v flipped to %v", v, e.Velocity())
		assert.LessOrEqual(t, e.DragForce(), v.Len()/dt+1e-9)
	}
}

func TestUpdate_DragStopsAtRestAfterGravity(t *testing.T) {
	// Gravity leaves a third of the climb rate; drag sized on the pre-step speed must only stop it.
	p := LightProfile()
	p.Drag = 1000
	e := airborne(&p, 200)
	e.velocity = mgl64.Vec3{0, 1.5 * Gravity * dt, 0}
	e.Update(dt, Controls{}, &p)

	assert.InDelta(t, 0, e.Velocity().Len(), 1e-9, "got %v", e.Velocity())
}

func TestUpdate_SideDragReducesSlip(t *testing.T) {
	p := LightProfile()
	e := airborne(&p, 200)
	e.velocity = mgl64.Vec3{10, 0, -50}

	e.Update(dt, Controls{}, &p)

	local := e.Orientation().Inverse().Rotate(e.Velocity())
	assert.Less(t, math.Abs(local.X()), 10.0)
}

func TestUpdate_ThrottleLimits(t *testing.T) {
	p := LightProfile()

	t.Run("ground allows reverse", func(t *testing.T) {
		e := NewEngine(mgl64.Vec3{}, p.MinAltitude)
		for i := 0; i < 100; i++ {
			e.Update(dt, Controls{ThrottleDown: true}, &p)
			e.CheckCollisions(&p, nil, nil, KindLight)
		}
		assert.InDelta(t, reverseThrottle, e.Throttle(), 1e-9)
	})

	t.Run("air stops at idle", func(t *testing.T) {
		e := airborne(&p, 300)
		e.throttle = 50
		for i := 0; i < 100; i++ {
			e.Update(dt, Controls{ThrottleDown: true}, &p)
		}
		assert.Zero(t, e.Throttle())
	})

	t.Run("reverse ramps out after leaving ground", func(t *testing.T) {
		e := airborne(&p, 300)
		e.throttle = -20
		e.Update(dt, Controls{}, &p)
		assert.InDelta(t, -20+p.ThrottleRate*dt, e.Throttle(), 1e-9)
		for i := 0; i < 100; i++ {
			e.Update(dt, Controls{}, &p)
		}
		assert.Zero(t, e.Throttle())
	})

	t.Run("caps at full", func(t *testing.T) {
		e := airborne(&p, 300)
		for i := 0; i < 200; i++ {
			e.Update(dt, Controls{ThrottleUp: true}, &p)
		}
		assert.Equal(t, maxThrottle, e.Throttle())
	})
}

func TestUpdate_GearToggleOncePerEvent(t *testing.T) {
	p := LightProfile()
	e := airborne(&p, 300)

	e.Update(dt, Controls{ToggleGear: true}, &p)
	assert.False(t, e.GearDeployed())
	e.Update(dt, Controls{}, &p)
	e.Update(dt, Controls{}, &p)
	assert.False(t, e.GearDeployed())
	e.Update(dt, Controls{ToggleGear: true}, &p)
	assert.True(t, e.GearDeployed())
}

func TestUpdate_SmoothingConverges(t *testing.T) {
	p := LightProfile()
	e := airborne(&p, 300)

	e.Update(dt, Controls{RollLeft: true}, &p)
	assert.InDelta(t, p.Responsiveness*dt, e.Axes().Roll, 1e-9)

	for i := 0; i < 200; i++ {
		e.Update(dt, Controls{RollLeft: true, PitchUp: true, YawRight: true}, &p)
	}
	assert.InDelta(t, 1, e.Axes().Roll, 1e-6)
	assert.InDelta(t, -1, e.Axes().Pitch, 1e-6)
	assert.InDelta(t, -1, e.Axes().Yaw, 1e-6)

	// A huge factor lands exactly on the target.
	assert.Equal(t, 1.0, smooth(0, 1, 1000, 0.1))
}

func TestUpdate_AttitudeClamped(t *testing.T) {
	p := LightProfile()
	e := airborne(&p, 300)
	e.velocity = mgl64.Vec3{0, 0, -80}
	e.throttle = 100

	for i := 0; i < 600; i++ {
		e.Update(dt, Controls{RollLeft: true, ThrottleUp: true}, &p)
		att := e.Attitude()
		require.LessOrEqual(t, math.Abs(att.Roll), p.MaxRoll+1e-6, "step %d", i)
		require.LessOrEqual(t, math.Abs(att.Pitch), p.MaxPitch+1e-6, "step %d", i)
	}
}

func TestUpdate_BankInducesTurn(t *testing.T) {
	p := LightProfile()
	e := airborne(&p, 300)
	e.velocity = mgl64.Vec3{0, 0, -50}
	e.orientation = Attitude{Roll: 0.5}.Quat()

	before := e.Attitude().Yaw
	e.Update(dt, Controls{}, &p)
	turn := e.Attitude().Yaw - before

	assert.InDelta(t, Gravity*math.Tan(0.5)/50*dt, turn, 1e-4)
}

func TestUpdate_CrashedIsFrozen(t *testing.T) {
	p := LightProfile()
	e := airborne(&p, 300)
	e.velocity = mgl64.Vec3{1, 2, 3}
	e.crashed = true

	e.Update(dt, Controls{ThrottleUp: true, PitchUp: true}, &p)
	assert.Equal(t, mgl64.Vec3{0, 300, 0}, e.Position())
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, e.Velocity())
}

func TestFinite(t *testing.T) {
	p := LightProfile()
	e := NewEngine(mgl64.Vec3{}, p.MinAltitude)
	assert.True(t, e.Finite())

	e.velocity[0] = math.NaN()
	assert.False(t, e.Finite())

	e.Reset(mgl64.Vec3{}, p.MinAltitude)
	e.position[2] = math.Inf(-1)
	assert.False(t, e.Finite())
}

func TestUpdate_PitchDownRaisesNose(t *testing.T) {
	tests := []struct {
		name     string
		controls Controls
		wantUp   bool
	}{
		{"PitchDown", Controls{PitchDown: true}, true},
		{"PitchUp", Controls{PitchUp: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := LightProfile()
			e := NewEngine(mgl64.Vec3{}, p.MinAltitude)
			e.position[1] = 100
			e.velocity = mgl64.Vec3{0, 0, -50}
			for i := 0; i < 30; i++ {
				e.Update(dt, tt.controls, &p)
			}
			nose := e.Orientation().Rotate(axisForward).Y()
			if tt.wantUp {
				assert.Greater(t, e.Attitude().Pitch, 0.0)
				assert.Greater(t, nose, 0.0)
			} else {
				assert.Less(t, e.Attitude().Pitch, 0.0)
				assert.Less(t, nose, 0.0)
			}
		})
	}
}

func TestScenario_LightAircraftTakeoff(t *testing.T) {
	p := LightProfile()
	e := NewEngine(mgl64.Vec3{-50, 0, 0}, p.MinAltitude)

	steps := int(math.Round(5 / dt))
	for i := 0; i < steps; i++ {
		e.Update(dt, Controls{ThrottleUp: true}, &p)
		crashed := e.CheckCollisions(&p, nil, nil, KindLight)
		require.False(t, crashed, "crashed at step %d", i)
	}

	forward := e.Orientation().Rotate(axisForward)
	assert.Equal(t, 100.0, e.Throttle())
	assert.Greater(t, e.Velocity().Dot(forward), 0.0)
	assert.Greater(t, e.Position().Y(), p.MinAltitude)
}
