package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"aerosim/pkg/model"
	"aerosim/pkg/store"
)

// SessionProvider provides access to the active flight.
type SessionProvider interface {
	Flight() (model.Flight, bool)
	Events() []model.FlightEvent
}

// FlightLog is the read side of the flight store the API needs.
type FlightLog interface {
	store.FlightStore
	store.EventStore
}

// FlightHandler handles flight log API endpoints.
type FlightHandler struct {
	session SessionProvider
	store   FlightLog
}

// NewFlightHandler creates a new FlightHandler. Returns nil if dependencies are missing.
func NewFlightHandler(session SessionProvider, st FlightLog) *FlightHandler {
	if session == nil || st == nil {
		return nil
	}
	return &FlightHandler{session: session, store: st}
}

// CurrentFlightResponse is the active flight with its events.
type CurrentFlightResponse struct {
	Flight *model.Flight       `json:"flight"`
	Events []model.FlightEvent `json:"events"`
}

// HandleList returns recent flights, newest first.
// GET /api/flights?limit=N
func (h *FlightHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	flights, err := h.store.ListFlights(r.Context(), limit)
	if err != nil {
		slog.Error("FlightHandler: failed to list flights", "error", err)
		http.Error(w, "failed to list flights", http.StatusInternalServerError)
		return
	}
	if flights == nil {
		flights = []*model.Flight{}
	}
	writeJSON(w, flights)
}

// HandleCurrent returns the in-memory active flight.
// GET /api/flights/current
func (h *FlightHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	resp := CurrentFlightResponse{Events: h.session.Events()}
	if f, ok := h.session.Flight(); ok {
		resp.Flight = &f
	}
	writeJSON(w, resp)
}

// HandleGet returns one flight.
// GET /api/flights/{id}
func (h *FlightHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	f, err := h.store.GetFlight(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("FlightHandler: failed to get flight", "error", err)
		http.Error(w, "failed to get flight", http.StatusInternalServerError)
		return
	}
	if f == nil {
		http.Error(w, "flight not found", http.StatusNotFound)
		return
	}
	writeJSON(w, f)
}

// HandleEvents returns the events of one flight.
// GET /api/flights/{id}/events
func (h *FlightHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.ListEvents(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("FlightHandler: failed to list events", "error", err)
		http.Error(w, "failed to list events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*model.FlightEvent{}
	}
	writeJSON(w, events)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
