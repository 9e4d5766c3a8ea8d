package api

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"aerosim/pkg/sim"
)

const (
	msToKnots  = 1.943844
	mToFeet    = 3.280840
	msToFtMin  = mToFeet * 60
	staleAfter = time.Second
)

// TelemetryResponse is the latest snapshot plus display values the HUD would otherwise convert itself.
type TelemetryResponse struct {
	sim.Telemetry
	PhaseTitle  string  `json:"phase_title"`
	SpeedKnots  float64 `json:"speed_kts"`
	AltitudeFt  float64 `json:"altitude_ft"`
	VerticalFPM float64 `json:"vertical_fpm"`
	AgeMS       int64   `json:"age_ms"` // Since the session published it
	Stale       bool    `json:"stale"`  // No tick for staleAfter, the session is paused or gone
}

type published struct {
	tel sim.Telemetry
	at  time.Time
}

// TelemetryHandler keeps the newest snapshot for polling clients.
type TelemetryHandler struct {
	latest atomic.Pointer[published]
	now    func() time.Time
}

func NewTelemetryHandler() *TelemetryHandler {
	return &TelemetryHandler{now: time.Now}
}

// Publish implements sim.Sink.
func (h *TelemetryHandler) Publish(t *sim.Telemetry) {
	h.latest.Store(&published{tel: *t, at: h.now()})
}

// Latest returns the last published snapshot, or the zero value before the first tick.
func (h *TelemetryHandler) Latest() sim.Telemetry {
	if p := h.latest.Load(); p != nil {
		return p.tel
	}
	return sim.Telemetry{}
}

// handleTelemetry serves GET /api/telemetry. The ETag is the flight and tick, so a poller that is
// faster than the tick rate gets 304 instead of a repeated body.
func (h *TelemetryHandler) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	p := h.latest.Load()
	if p == nil {
		p = &published{}
	}
	tel := p.tel

	if tel.Tick > 0 {
		etag := fmt.Sprintf(`"%s-%d"`, tel.FlightID, tel.Tick)
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	resp := TelemetryResponse{
		Telemetry:   tel,
		PhaseTitle:  sim.FormatPhase(tel.Phase),
		SpeedKnots:  tel.Speed * msToKnots,
		AltitudeFt:  tel.Altitude * mToFeet,
		VerticalFPM: tel.VerticalSpeed * msToFtMin,
		Stale:       true,
	}
	if !p.at.IsZero() {
		age := h.now().Sub(p.at)
		resp.AgeMS = age.Milliseconds()
		resp.Stale = age > staleAfter
	}
	writeJSON(w, resp)
}
