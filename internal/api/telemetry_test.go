package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aerosim/pkg/sim"
)

func TestTelemetryHandler(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := NewTelemetryHandler()
	h.now = func() time.Time { return clock }

	get := func(t *testing.T, etag string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest("GET", "/api/telemetry", http.NoBody)
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		w := httptest.NewRecorder()
		h.handleTelemetry(w, req)
		return w
	}
	decode := func(t *testing.T, w *httptest.ResponseRecorder) TelemetryResponse {
		t.Helper()
		var got TelemetryResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		return got
	}

	t.Run("BeforeFirstTick", func(t *testing.T) {
		w := get(t, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("ETag"))
		got := decode(t, w)
		assert.Equal(t, "Unknown", got.PhaseTitle)
		assert.True(t, got.Stale)
		assert.Zero(t, h.Latest().Tick)
	})

	h.Publish(&sim.Telemetry{
		Tick:          42,
		FlightID:      "f1",
		Vehicle:       "light",
		Position:      sim.Vector{X: -50, Y: 120, Z: -800},
		Altitude:      120,
		Speed:         50,
		VerticalSpeed: 2.54,
		Phase:         sim.PhaseFlying,
	})

	t.Run("Snapshot", func(t *testing.T) {
		clock = clock.Add(250 * time.Millisecond)
		w := get(t, "")
		assert.Equal(t, `"f1-42"`, w.Header().Get("ETag"))
		got := decode(t, w)
		assert.Equal(t, sim.Vector{X: -50, Y: 120, Z: -800}, got.Position)
		assert.Equal(t, "Flying", got.PhaseTitle)
		assert.InDelta(t, 97.19, got.SpeedKnots, 0.01)
		assert.InDelta(t, 393.7, got.AltitudeFt, 0.1)
		assert.InDelta(t, 500, got.VerticalFPM, 0.1)
		assert.EqualValues(t, 250, got.AgeMS)
		assert.False(t, got.Stale)
	})

	t.Run("NotModified", func(t *testing.T) {
		w := get(t, `"f1-42"`)
		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Zero(t, w.Body.Len())

		w = get(t, `"f1-41"`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Stale", func(t *testing.T) {
		clock = clock.Add(2 * time.Second)
		assert.True(t, decode(t, get(t, "")).Stale)
	})
}
