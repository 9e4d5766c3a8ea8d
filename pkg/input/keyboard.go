// Package input turns key events and scripted steps into flight control snapshots.
package input

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"aerosim/pkg/flight"
)

// ErrUnknownKey is returned for key codes that are not bound to a control.
var ErrUnknownKey = errors.New("unknown key")

// Source produces one control snapshot per simulation update. dt is the simulated time the
// snapshot will be applied for.
type Source interface {
	Next(dt time.Duration) flight.Controls
}

// Bindings maps DOM KeyboardEvent.code values to controls.
var Bindings = map[string]string{
	"ArrowUp":    ControlPitchUp,
	"ArrowDown":  ControlPitchDown,
	"ArrowLeft":  ControlRollLeft,
	"ArrowRight": ControlRollRight,
	"KeyA":       ControlYawLeft,
	"KeyD":       ControlYawRight,
	"KeyW":       ControlThrottleUp,
	"KeyS":       ControlThrottleDown,
	"KeyG":       ControlGear,
	"Space":      ControlReset,
}

// Control names, usable in scripts in place of key codes.
const (
	ControlPitchUp      = "pitch_up"
	ControlPitchDown    = "pitch_down"
	ControlRollLeft     = "roll_left"
	ControlRollRight    = "roll_right"
	ControlYawLeft      = "yaw_left"
	ControlYawRight     = "yaw_right"
	ControlThrottleUp   = "throttle_up"
	ControlThrottleDown = "throttle_down"
	ControlGear         = "toggle_gear"
	ControlReset        = "reset"
)

// resolve maps a key code or control name to a control name.
func resolve(key string) (string, error) {
	if c, ok := Bindings[key]; ok {
		return c, nil
	}
	switch key {
	case ControlPitchUp, ControlPitchDown, ControlRollLeft, ControlRollRight, ControlYawLeft,
		ControlYawRight, ControlThrottleUp, ControlThrottleDown, ControlGear, ControlReset:
		return key, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// isPress reports whether the control is a one-shot press event rather than a held state.
func isPress(control string) bool {
	return control == ControlGear || control == ControlReset
}

// apply sets one control on c.
func apply(c *flight.Controls, control string) {
	switch control {
	case ControlPitchUp:
		c.PitchUp = true
	case ControlPitchDown:
		c.PitchDown = true
	case ControlRollLeft:
		c.RollLeft = true
	case ControlRollRight:
		c.RollRight = true
	case ControlYawLeft:
		c.YawLeft = true
	case ControlYawRight:
		c.YawRight = true
	case ControlThrottleUp:
		c.ThrottleUp = true
	case ControlThrottleDown:
		c.ThrottleDown = true
	case ControlGear:
		c.ToggleGear = true
	case ControlReset:
		c.Reset = true
	}
}

// Keyboard tracks held keys. It is safe for concurrent use: HTTP handlers post key events while the
// session loop takes snapshots.
type Keyboard struct {
	mu      sync.Mutex
	held    map[string]bool
	pending flight.Controls // Press events not yet consumed
}

// NewKeyboard creates a keyboard with nothing held.
func NewKeyboard() *Keyboard {
	return &Keyboard{held: make(map[string]bool)}
}

// Key records a key transition. Auto-repeated downs of a held key do not produce another press.
func (k *Keyboard) Key(code string, down bool) error {
	control, err := resolve(code)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if !down {
		delete(k.held, control)
		return nil
	}
	if k.held[control] {
		return nil
	}
	k.held[control] = true
	if isPress(control) {
		apply(&k.pending, control)
	}
	return nil
}

// Next returns the held controls plus any press event since the last call, which is then consumed.
func (k *Keyboard) Next(time.Duration) flight.Controls {
	k.mu.Lock()
	defer k.mu.Unlock()

	c := k.pending
	k.pending = flight.Controls{}
	for control := range k.held {
		if !isPress(control) {
			apply(&c, control)
		}
	}
	return c
}

// ReleaseAll drops every held key and pending press, e.g. when the client loses focus.
func (k *Keyboard) ReleaseAll() {
	k.mu.Lock()
	defer k.mu.Unlock()
	clear(k.held)
	k.pending = flight.Controls{}
}
