package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"

	"aerosim/pkg/sim"
)

// TelemetrySource exposes the latest snapshot.
type TelemetrySource interface {
	Latest() sim.Telemetry
}

type StatsHandler struct {
	tel       TelemetrySource
	stream    *StreamHandler
	obstacles int

	mu       sync.Mutex
	lastTick uint64
	lastTime time.Time
	maxMem   uint64
	maxRate  float64
}

func NewStatsHandler(tel TelemetrySource, stream *StreamHandler, obstacles int) *StatsHandler {
	return &StatsHandler{
		tel:       tel,
		stream:    stream,
		obstacles: obstacles,
	}
}

type StatsResponse struct {
	MemoryMB      uint64  `json:"memory_mb"`
	MemoryMaxMB   uint64  `json:"memory_max_mb"`
	Goroutines    int     `json:"goroutines"`
	Tick          uint64  `json:"tick"`
	TickRate      float64 `json:"tick_rate"`     // Ticks per second since the previous request
	TickRateMax   float64 `json:"tick_rate_max"` // Peak
	Obstacles     int     `json:"obstacles"`
	StreamClients int     `json:"stream_clients"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	tick := h.tel.Latest().Tick

	h.mu.Lock()
	resp := h.gather(time.Now(), tick, m.Alloc)
	h.mu.Unlock()

	resp.Goroutines = runtime.NumGoroutine()
	resp.Obstacles = h.obstacles
	if h.stream != nil {
		resp.StreamClients = h.stream.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// gather computes the tick rate delta and updates the peaks.
func (h *StatsHandler) gather(now time.Time, tick, mem uint64) StatsResponse {
	rate := 0.0
	if !h.lastTime.IsZero() {
		if d := now.Sub(h.lastTime).Seconds(); d > 0 && tick >= h.lastTick {
			rate = float64(tick-h.lastTick) / d
		}
	}

	h.lastTick = tick
	h.lastTime = now
	if mem > h.maxMem {
		h.maxMem = mem
	}
	if rate > h.maxRate {
		h.maxRate = rate
	}

	return StatsResponse{
		MemoryMB:    bToMb(mem),
		MemoryMaxMB: bToMb(h.maxMem),
		Tick:        tick,
		TickRate:    rate,
		TickRateMax: h.maxRate,
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
