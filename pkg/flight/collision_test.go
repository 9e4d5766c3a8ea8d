package flight

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

type crashLog struct {
	calls []mgl64.Vec3
}

func (c *crashLog) record(p mgl64.Vec3) { c.calls = append(c.calls, p) }

func TestCheckCollisions_Ground(t *testing.T) {
	p := LightProfile()

	tests := []struct {
		name      string
		velocity  mgl64.Vec3
		attitude  Attitude
		gearUp    bool
		wantCrash bool
	}{
		{name: "hard descent", velocity: mgl64.Vec3{0, -30, 0}, wantCrash: true},
		{name: "soft descent", velocity: mgl64.Vec3{0, -10, -40}},
		{name: "at threshold", velocity: mgl64.Vec3{0, p.CrashVelocity, 0}},
		{name: "gear up", velocity: mgl64.Vec3{0, -1, -30}, gearUp: true, wantCrash: true},
		{name: "steep bank", velocity: mgl64.Vec3{0, -1, -30}, attitude: Attitude{Roll: 1.1}, wantCrash: true},
		{name: "moderate bank", velocity: mgl64.Vec3{0, -1, -30}, attitude: Attitude{Roll: 0.9}},
		{name: "nose down", velocity: mgl64.Vec3{0, -1, -30}, attitude: Attitude{Pitch: -1.2}, wantCrash: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(mgl64.Vec3{}, p.MinAltitude)
			e.position[1] = p.MinAltitude - 0.2
			e.velocity = tt.velocity
			e.orientation = tt.attitude.Quat()
			e.gear = !tt.gearUp

			var log crashLog
			got := e.CheckCollisions(&p, nil, log.record, KindLight)

			assert.Equal(t, tt.wantCrash, got)
			assert.Equal(t, tt.wantCrash, e.Crashed())
			if tt.wantCrash {
				assert.Len(t, log.calls, 1)
				assert.Equal(t, p.MinAltitude-0.2, log.calls[0].Y())
				return
			}
			assert.Empty(t, log.calls)
			assert.Equal(t, p.MinAltitude, e.Position().Y())
			assert.Zero(t, e.Velocity().Y())
			assert.InDelta(t, tt.velocity.Z()*groundFriction, e.Velocity().Z(), 1e-9)
		})
	}
}

func TestCheckCollisions_HardLandingFromAltitude(t *testing.T) {
	p := LightProfile()
	e := airborne(&p, 50)
	e.velocity = mgl64.Vec3{0, -30, 0}

	// Fly down until the vehicle reaches the ground.
	var crashed bool
	for i := 0; i < 200 && !e.Crashed(); i++ {
		e.Update(dt, Controls{}, &p)
		crashed = e.CheckCollisions(&p, nil, nil, KindLight)
	}
	assert.True(t, crashed)
	assert.True(t, e.Crashed())
}

func TestCheckCollisions_SoftTouchdownClamps(t *testing.T) {
	p := LightProfile()
	e := airborne(&p, p.MinAltitude+0.1)
	e.velocity = mgl64.Vec3{0, -10, 0}

	e.Update(dt, Controls{}, &p)
	assert.LessOrEqual(t, e.Position().Y(), p.MinAltitude)
	assert.False(t, e.CheckCollisions(&p, nil, nil, KindLight))
	assert.False(t, e.Crashed())
	assert.Equal(t, p.MinAltitude, e.Position().Y())
}

func TestCheckCollisions_GroundLatch(t *testing.T) {
	p := LightProfile()
	e := NewEngine(mgl64.Vec3{}, p.MinAltitude)

	for i := 0; i < 300; i++ {
		e.Update(dt, Controls{}, &p)
		assert.False(t, e.CheckCollisions(&p, nil, nil, KindLight))
		assert.Equal(t, p.MinAltitude, e.Position().Y(), "tick %d", i)
	}
}

func TestCheckCollisions_GroundLevelsAttitude(t *testing.T) {
	p := LightProfile()
	e := NewEngine(mgl64.Vec3{}, p.MinAltitude)
	e.position[1] = p.MinAltitude - 0.01
	e.orientation = Attitude{Pitch: 0.2, Roll: 0.3}.Quat()

	e.CheckCollisions(&p, nil, nil, KindLight)

	att := e.Attitude()
	assert.InDelta(t, 0.2*groundLeveling, att.Pitch, 1e-9)
	assert.InDelta(t, 0.3*groundLeveling, att.Roll, 1e-9)

	// Pitch is left alone while the pilot is commanding it.
	e.axes.Pitch = -0.5
	e.position[1] = p.MinAltitude - 0.01
	e.CheckCollisions(&p, nil, nil, KindLight)
	assert.InDelta(t, 0.2*groundLeveling, e.Attitude().Pitch, 1e-9)
}

func TestCheckCollisions_Obstacle(t *testing.T) {
	p := LightProfile()
	tower := Footprint{X: 100, Z: 0, HalfWidth: 10, HalfDepth: 10, Height: 30}
	idx := stubIndex{tower}

	tests := []struct {
		name      string
		pos       mgl64.Vec3
		kind      Kind
		wantCrash bool
	}{
		{name: "inside footprint", pos: mgl64.Vec3{100, 20, 0}, kind: KindLight, wantCrash: true},
		{name: "inside radius margin", pos: mgl64.Vec3{110.5, 20, 0}, kind: KindLight, wantCrash: true},
		{name: "outside radius margin", pos: mgl64.Vec3{111.5, 20, 0}, kind: KindLight},
		{name: "airliner radius", pos: mgl64.Vec3{114, 20, 0}, kind: KindAirliner, wantCrash: true},
		{name: "over the roof", pos: mgl64.Vec3{100, 31.5, 0}, kind: KindLight},
		{name: "within roof clearance", pos: mgl64.Vec3{100, 30.5, 0}, kind: KindLight, wantCrash: true},
		{name: "beside on z", pos: mgl64.Vec3{100, 20, 12}, kind: KindLight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(mgl64.Vec3{}, p.MinAltitude)
			e.position = tt.pos

			var log crashLog
			got := e.CheckCollisions(&p, idx, log.record, tt.kind)
			assert.Equal(t, tt.wantCrash, got)
			if tt.wantCrash {
				assert.Equal(t, []mgl64.Vec3{tt.pos}, log.calls)
			}
		})
	}
}

func TestCheckCollisions_ObstacleBand(t *testing.T) {
	p := LightProfile()
	idx := stubIndex{{X: 0, Z: 0, HalfWidth: 10, HalfDepth: 10, Height: 500}}

	e := NewEngine(mgl64.Vec3{}, p.MinAltitude)
	e.position = mgl64.Vec3{0, 175, 0}
	assert.False(t, e.CheckCollisions(&p, idx, nil, KindLight), "above the structure band")

	e.position = mgl64.Vec3{0, 160, 0}
	assert.True(t, e.CheckCollisions(&p, idx, nil, KindLight))
}

func TestCheckCollisions_BaseElevation(t *testing.T) {
	p := LightProfile()
	idx := stubIndex{{X: 0, Z: 0, HalfWidth: 5, HalfDepth: 5, Height: 10, BaseElevation: 20}}
	e := NewEngine(mgl64.Vec3{}, p.MinAltitude)

	e.position = mgl64.Vec3{0, 25, 0}
	assert.True(t, e.CheckCollisions(&p, idx, nil, KindLight))

	e.Reset(mgl64.Vec3{}, p.MinAltitude)
	e.position = mgl64.Vec3{0, 32, 0}
	assert.False(t, e.CheckCollisions(&p, idx, nil, KindLight))
}

func TestCheckCollisions_CrashLatch(t *testing.T) {
	p := LightProfile()
	e := airborne(&p, 20)
	e.position = mgl64.Vec3{100, 20, 0}
	idx := stubIndex{{X: 100, Z: 0, HalfWidth: 10, HalfDepth: 10, Height: 30}}

	var log crashLog
	assert.True(t, e.CheckCollisions(&p, idx, log.record, KindLight))

	pos, vel := e.Position(), e.Velocity()
	for i := 0; i < 10; i++ {
		e.Update(dt, Controls{ThrottleUp: true}, &p)
		assert.False(t, e.CheckCollisions(&p, idx, log.record, KindLight))
	}
	assert.Equal(t, pos, e.Position())
	assert.Equal(t, vel, e.Velocity())
	assert.Len(t, log.calls, 1)

	e.Reset(mgl64.Vec3{-50, 0, 0}, p.MinAltitude)
	assert.False(t, e.Crashed())
}
