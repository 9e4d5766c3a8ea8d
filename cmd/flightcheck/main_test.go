package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aerosim/pkg/model"
	"aerosim/pkg/sim"
)

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_Takeoff(t *testing.T) {
	rep, err := run(context.Background(), Options{Step: time.Second / 60, Extra: time.Second, Expect: "flying"})
	require.NoError(t, err)

	assert.True(t, rep.Pass)
	assert.Equal(t, "light", rep.Vehicle)
	assert.Equal(t, sim.PhaseFlying, rep.Final.Phase)
	assert.False(t, rep.Final.Gear, "script retracts the gear")
	assert.Positive(t, rep.Final.Rotation.Pitch, "climbing nose up")
	assert.Positive(t, rep.Final.Airborne, "airborne time on the simulation clock")
	assert.Greater(t, rep.Final.AltitudeAGL, 100.0)
	require.NotNil(t, rep.Flight)
	assert.Equal(t, model.OutcomeActive, rep.Flight.Outcome)
	require.GreaterOrEqual(t, len(rep.Events), 2)
	assert.Equal(t, model.EventSpawn, rep.Events[0].Type)
	assert.Equal(t, model.EventTakeoff, rep.Events[1].Type)

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, rep))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["pass"])
}

func TestRun_GearUpOnGround(t *testing.T) {
	path := writeScript(t, "- for: 1s\n  keys: [KeyG]\n")

	rep, err := run(context.Background(), Options{ScriptPath: path, Step: 50 * time.Millisecond, Expect: "flying"})
	require.NoError(t, err)
	assert.False(t, rep.Pass)
	assert.Equal(t, sim.PhaseCrashed, rep.Final.Phase)
	assert.True(t, rep.Final.Crashed)
	require.NotNil(t, rep.Flight)
	assert.Equal(t, model.OutcomeCrashed, rep.Flight.Outcome)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero step", Options{}},
		{"unknown phase", Options{Step: time.Millisecond, Expect: "hovering"}},
		{"unknown vehicle", Options{Step: time.Millisecond, Vehicle: "zeppelin"}},
		{"missing script", Options{Step: time.Millisecond, ScriptPath: "/nonexistent/script.yaml"}},
		{"missing config", Options{Step: time.Millisecond, ConfigPath: writeScript(t, "sim: [broken")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(context.Background(), tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := run(ctx, Options{Step: time.Second / 60})
	assert.ErrorIs(t, err, context.Canceled)
}
