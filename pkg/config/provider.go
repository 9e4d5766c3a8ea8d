package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aerosim/pkg/flight"
	"aerosim/pkg/store"
)

// Persistent state keys
const (
	KeyVehicle   = "vehicle"
	KeyAutoReset = "auto_reset"
)

// ErrUnknownVehicle is returned when selecting a vehicle that is not configured.
var ErrUnknownVehicle = errors.New("unknown vehicle")

// Provider resolves settings that may be changed at runtime. Values persisted in the state store
// take precedence over the static file configuration.
type Provider interface {
	Vehicle(ctx context.Context) string
	Profile(ctx context.Context) (name string, p flight.Profile)
	AutoReset(ctx context.Context) time.Duration

	SetVehicle(ctx context.Context, name string) error
	SetAutoReset(ctx context.Context, d time.Duration) error

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider. st may be nil, in which case only the file values apply
// and setters fail.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

// Vehicle returns the selected vehicle name. A persisted name that is no longer configured is ignored.
func (p *UnifiedProvider) Vehicle(ctx context.Context) string {
	name := p.getString(ctx, KeyVehicle, p.base.Sim.Vehicle)
	if _, ok := p.base.Vehicles[name]; !ok {
		return p.base.Sim.Vehicle
	}
	return name
}

// Profile returns the selected vehicle and its profile.
func (p *UnifiedProvider) Profile(ctx context.Context) (string, flight.Profile) {
	name := p.Vehicle(ctx)
	return name, p.base.Vehicles[name]
}

func (p *UnifiedProvider) AutoReset(ctx context.Context) time.Duration {
	d := p.getDuration(ctx, KeyAutoReset, p.base.Sim.AutoReset.Std())
	if d < 0 {
		return 0
	}
	return d
}

func (p *UnifiedProvider) SetVehicle(ctx context.Context, name string) error {
	if _, ok := p.base.Vehicles[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownVehicle, name)
	}
	return p.setState(ctx, KeyVehicle, name)
}

func (p *UnifiedProvider) SetAutoReset(ctx context.Context, d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: auto_reset must not be negative", ErrInvalid)
	}
	return p.setState(ctx, KeyAutoReset, d.String())
}

// --- Helpers ---

func (p *UnifiedProvider) setState(ctx context.Context, key, val string) error {
	if p.store == nil {
		return errors.New("no state store configured")
	}
	return p.store.SetState(ctx, key, val)
}

func (p *UnifiedProvider) getString(ctx context.Context, key, fallback string) string {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val
		}
	}
	return fallback
}

func (p *UnifiedProvider) getDuration(ctx context.Context, key string, fallback time.Duration) time.Duration {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if dur, err := ParseDuration(val); err == nil {
				return dur
			}
		}
	}
	return fallback
}
