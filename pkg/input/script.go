package input

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"aerosim/pkg/flight"
)

// Step holds a set of keys for a duration. Press keys (gear, reset) fire once when the step begins.
type Step struct {
	For  time.Duration `yaml:"for" json:"for"`
	Keys []string      `yaml:"keys" json:"keys"`
}

// Script replays timed steps against simulated time.
type Script struct {
	mu      sync.Mutex
	steps   []compiledStep
	idx     int
	elapsed time.Duration // Time spent in the current step
	fired   bool
	pending flight.Controls
}

type compiledStep struct {
	dur     time.Duration
	held    flight.Controls
	presses flight.Controls
}

// NewScript validates the steps' keys.
func NewScript(steps []Step) (*Script, error) {
	s := &Script{}
	for i, st := range steps {
		if st.For < 0 {
			return nil, fmt.Errorf("step %d: negative duration", i)
		}
		cs := compiledStep{dur: st.For}
		for _, key := range st.Keys {
			control, err := resolve(key)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			if isPress(control) {
				apply(&cs.presses, control)
			} else {
				apply(&cs.held, control)
			}
		}
		s.steps = append(s.steps, cs)
	}
	return s, nil
}

// LoadScript reads a YAML list of steps, e.g.
//
//	- for: 10s
//	  keys: [KeyW]
//	- for: 2s
//	  keys: [KeyW, ArrowDown]
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	var steps []Step
	if err := yaml.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	return NewScript(steps)
}

// Takeoff is the built-in script: a full-throttle roll, a short nose-up rotation (ArrowDown, stick
// back) into a climb of about 20°, and a gear retraction.
func Takeoff() *Script {
	s, _ := NewScript([]Step{
		{For: 6 * time.Second, Keys: []string{"KeyW"}},
		{For: 150 * time.Millisecond, Keys: []string{"KeyW", "ArrowDown"}},
		{For: 6 * time.Second, Keys: []string{"KeyW"}},
		{For: 1 * time.Second, Keys: []string{"KeyW", "KeyG"}},
		{For: 5 * time.Second, Keys: []string{"KeyW"}},
	})
	return s
}

// Next advances the script by dt and returns the controls of the step that time falls in. Presses
// of steps skipped over by a large dt are still delivered.
func (s *Script) Next(dt time.Duration) flight.Controls {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.elapsed += dt
	for s.idx < len(s.steps) {
		st := s.steps[s.idx]
		if !s.fired {
			merge(&s.pending, st.presses)
			s.fired = true
		}
		if s.elapsed < st.dur {
			break
		}
		s.elapsed -= st.dur
		s.idx++
		s.fired = false
	}

	var c flight.Controls
	if s.idx < len(s.steps) {
		c = s.steps[s.idx].held
	}
	merge(&c, s.pending)
	s.pending = flight.Controls{}
	return c
}

// Done reports whether every step has elapsed.
func (s *Script) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx >= len(s.steps)
}

// Duration returns the total scripted time.
func (s *Script) Duration() time.Duration {
	var total time.Duration
	for _, st := range s.steps {
		total += st.dur
	}
	return total
}

func merge(dst *flight.Controls, src flight.Controls) {
	dst.PitchUp = dst.PitchUp || src.PitchUp
	dst.PitchDown = dst.PitchDown || src.PitchDown
	dst.RollLeft = dst.RollLeft || src.RollLeft
	dst.RollRight = dst.RollRight || src.RollRight
	dst.YawLeft = dst.YawLeft || src.YawLeft
	dst.YawRight = dst.YawRight || src.YawRight
	dst.ThrottleUp = dst.ThrottleUp || src.ThrottleUp
	dst.ThrottleDown = dst.ThrottleDown || src.ThrottleDown
	dst.ToggleGear = dst.ToggleGear || src.ToggleGear
	dst.Reset = dst.Reset || src.Reset
}
