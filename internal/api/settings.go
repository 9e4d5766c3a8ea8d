package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"aerosim/pkg/config"
	"aerosim/pkg/flight"
)

// SettingsHandler handles the runtime settings API.
type SettingsHandler struct {
	cfgProv config.Provider
	appCfg  *config.Config
	session Resetter
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(cfg config.Provider, session Resetter) *SettingsHandler {
	return &SettingsHandler{
		cfgProv: cfg,
		appCfg:  cfg.AppConfig(),
		session: session,
	}
}

// SettingsResponse represents the settings API response.
type SettingsResponse struct {
	Vehicle   string         `json:"vehicle"`
	AutoReset string         `json:"auto_reset"`
	Vehicles  []string       `json:"vehicles"`
	Profile   flight.Profile `json:"profile"`
}

// SettingsRequest represents the settings API request for updates.
type SettingsRequest struct {
	Vehicle   string  `json:"vehicle,omitempty"`
	AutoReset *string `json:"auto_reset,omitempty"` // Pointer to detect "0s" vs missing
	Reset     bool    `json:"reset,omitempty"`      // Respawn now so a new vehicle applies immediately
}

// HandleSettings is a unified handler for all settings methods, facilitating CORS/OPTIONS.
func (h *SettingsHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.writeSettings(w, r)
	case http.MethodPut, http.MethodPost:
		h.handleSetSettings(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) handleSetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Vehicle != "" {
		if err := h.cfgProv.SetVehicle(ctx, req.Vehicle); err != nil {
			writeSettingsError(w, err)
			return
		}
		slog.Info("Vehicle selected", "vehicle", req.Vehicle)
	}

	if req.AutoReset != nil {
		d, err := config.ParseDuration(*req.AutoReset)
		if err != nil {
			http.Error(w, "invalid auto_reset: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.cfgProv.SetAutoReset(ctx, d); err != nil {
			writeSettingsError(w, err)
			return
		}
	}

	if req.Reset && h.session != nil {
		h.session.RequestReset()
	}

	h.writeSettings(w, r)
}

func writeSettingsError(w http.ResponseWriter, err error) {
	if errors.Is(err, config.ErrUnknownVehicle) || errors.Is(err, config.ErrInvalid) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slog.Error("Failed to persist settings", "error", err)
	http.Error(w, "failed to save settings", http.StatusInternalServerError)
}

func (h *SettingsHandler) writeSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, prof := h.cfgProv.Profile(ctx)
	resp := SettingsResponse{
		Vehicle:   name,
		AutoReset: h.cfgProv.AutoReset(ctx).String(),
		Vehicles:  h.appCfg.VehicleNames(),
		Profile:   prof,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode settings response", "error", err)
	}
}
