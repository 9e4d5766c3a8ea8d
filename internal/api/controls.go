package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"aerosim/pkg/input"
)

// Resetter respawns the vehicle on its next tick.
type Resetter interface {
	RequestReset()
}

// ControlHandler feeds key events from the browser into the keyboard input.
type ControlHandler struct {
	keys    *input.Keyboard
	session Resetter
}

// NewControlHandler creates a new ControlHandler.
func NewControlHandler(keys *input.Keyboard, session Resetter) *ControlHandler {
	return &ControlHandler{keys: keys, session: session}
}

// KeyEvent is one key transition, with DOM KeyboardEvent.code naming.
type KeyEvent struct {
	Code string `json:"code"`
	Down bool   `json:"down"`
}

// HandleKey applies one key event.
// POST /api/controls
func (h *ControlHandler) HandleKey(w http.ResponseWriter, r *http.Request) {
	var ev KeyEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.keys.Key(ev.Code, ev.Down); err != nil {
		if errors.Is(err, input.ErrUnknownKey) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRelease drops every held key, for when the page loses focus.
// POST /api/controls/release
func (h *ControlHandler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	h.keys.ReleaseAll()
	w.WriteHeader(http.StatusNoContent)
}

// HandleReset schedules a respawn.
// POST /api/reset
func (h *ControlHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	slog.Info("Reset requested via API")
	h.session.RequestReset()
	w.WriteHeader(http.StatusAccepted)
}
