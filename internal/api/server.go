package api

import (
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"aerosim/pkg/version"
)

// Handlers groups everything the server routes to. Flights may be nil when no store is configured;
// the flight log routes are then not registered.
type Handlers struct {
	Telemetry *TelemetryHandler
	Controls  *ControlHandler
	Settings  *SettingsHandler
	Flights   *FlightHandler
	Stream    *StreamHandler
	Stats     *StatsHandler

	// Shutdown is called shortly after POST /api/shutdown has been answered.
	Shutdown func()
}

// NewServer builds the HTTP server for the simulator API.
func NewServer(addr string, h Handlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// Live state
	mux.HandleFunc("GET /api/telemetry", h.Telemetry.handleTelemetry)
	mux.Handle("GET /ws/telemetry", h.Stream)
	mux.Handle("GET /api/stats", h.Stats)

	// Pilot input
	mux.HandleFunc("POST /api/controls", h.Controls.HandleKey)
	mux.HandleFunc("POST /api/controls/release", h.Controls.HandleRelease)
	mux.HandleFunc("POST /api/reset", h.Controls.HandleReset)
	mux.HandleFunc("/api/settings", h.Settings.HandleSettings)

	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/recent", handleRecentLog)
	mux.HandleFunc("GET /api/events/recent", handleRecentEvents)

	if h.Flights != nil {
		mux.HandleFunc("GET /api/flights", h.Flights.HandleList)
		mux.HandleFunc("GET /api/flights/current", h.Flights.HandleCurrent)
		mux.HandleFunc("GET /api/flights/{id}", h.Flights.HandleGet)
		mux.HandleFunc("GET /api/flights/{id}/events", h.Flights.HandleEvents)
	}

	mux.HandleFunc("POST /api/shutdown", shutdownHandler(h.Shutdown))

	// Websocket connections outlive any write timeout, so only reads are bounded.
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func shutdownHandler(shutdown func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusAccepted)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		if shutdown == nil {
			return
		}
		// Let the response flush before the listener closes.
		time.AfterFunc(100*time.Millisecond, shutdown)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"version": version.String(),
		"go":      runtime.Version(),
	})
}
