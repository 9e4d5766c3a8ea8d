package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// unit is one accepted suffix and its size in the base unit (seconds or meters).
type unit struct {
	suffix string
	scale  float64
}

// Longer suffixes come first so "ms" is not read as "m" and "km" not as "m".
var (
	durationUnits = []unit{
		{"ms", 1e-3},
		{"us", 1e-6},
		{"µs", 1e-6},
		{"ns", 1e-9},
		{"s", 1},
		{"m", 60},
		{"h", 3600},
		{"d", 86400},
	}
	distanceUnits = []unit{
		{"km", 1000},
		{"nm", 1852},
		{"ft", 0.3048},
		{"m", 1},
	}
)

// Duration is a time.Duration read from YAML as "90s", "1h30m", "2d" or a bare number of seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	dur, err := ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// ParseDuration reads a duration as a sequence of number+unit parts. A number without a unit is seconds.
// Empty input is zero.
func ParseDuration(s string) (time.Duration, error) {
	secs, err := parseQuantity(s, durationUnits, true)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return time.Duration(math.Round(secs * float64(time.Second))), nil
}

// Distance is a length in meters, read from YAML as "150m", "1.5km", "3nm", "500ft" or a bare number.
type Distance float64

// Meters returns the value as a plain float.
func (d Distance) Meters() float64 { return float64(d) }

func (d *Distance) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: distance must be a scalar", value.Line)
	}
	m, err := ParseDistance(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Distance(m)
	return nil
}

func (d Distance) MarshalYAML() (any, error) {
	return fmt.Sprintf("%.2fm", float64(d)), nil
}

// ParseDistance reads a single number+unit into meters. A number without a unit is meters.
func ParseDistance(s string) (float64, error) {
	m, err := parseQuantity(s, distanceUnits, false)
	if err != nil {
		return 0, fmt.Errorf("invalid distance %q: %w", s, err)
	}
	return m, nil
}

// parseQuantity sums number+unit parts. With multi unset only one part is allowed.
func parseQuantity(s string, units []unit, multi bool) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}

	sign := 1.0
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		sign, s = -1, rest
	}

	var total float64
	for parts := 0; s != ""; parts++ {
		if parts > 0 && !multi {
			return 0, fmt.Errorf("unexpected %q", s)
		}
		n := strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
		if n <= 0 {
			return 0, fmt.Errorf("expected a number at %q", s)
		}
		v, err := strconv.ParseFloat(s[:n], 64)
		if err != nil {
			return 0, err
		}
		s = s[n:]

		u, ok := matchUnit(s, units)
		if !ok {
			return 0, fmt.Errorf("unknown unit at %q", s)
		}
		total += v * u.scale
		s = s[len(u.suffix):]
	}
	return sign * total, nil
}

func matchUnit(s string, units []unit) (unit, bool) {
	for _, u := range units {
		if strings.HasPrefix(s, u.suffix) {
			return u, true
		}
	}
	return unit{}, false
}
