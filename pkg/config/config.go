package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"aerosim/pkg/flight"
)

// Environment variables that override file values. They are applied on load and never saved.
const (
	EnvVehicle       = "AEROSIM_VEHICLE"
	EnvDBPath        = "AEROSIM_DB_PATH"
	EnvServerAddress = "AEROSIM_SERVER_ADDRESS"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the application configuration.
type Config struct {
	Log      LogConfig                 `yaml:"log"`
	DB       DBConfig                  `yaml:"db"`
	Server   ServerConfig              `yaml:"server"`
	Sim      SimConfig                 `yaml:"sim"`
	World    WorldConfig               `yaml:"world"`
	Vehicles map[string]flight.Profile `yaml:"vehicles"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Events   LogSettings `yaml:"events"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// SimConfig holds settings for the simulation loop.
type SimConfig struct {
	Vehicle   string   `yaml:"vehicle"`    // Key into Vehicles
	TickRate  int      `yaml:"tick_rate"`  // Updates per second
	MaxStep   Duration `yaml:"max_step"`   // Upper bound for one update, at most 100ms
	StartX    Distance `yaml:"start_x"`    // Spawn point
	StartZ    Distance `yaml:"start_z"`    // Spawn point
	AutoReset Duration `yaml:"auto_reset"` // Respawn delay after a crash, 0 disables
}

// WorldConfig holds settings for the static obstacle world.
type WorldConfig struct {
	ObstacleFile string   `yaml:"obstacle_file"` // .geojson or .shp, empty for an open field
	CellSize     Distance `yaml:"cell_size"`
}

// TickInterval returns the wall-clock period of one simulation tick.
func (s *SimConfig) TickInterval() time.Duration {
	if s.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(s.TickRate)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path: "./logs/events.log",
			},
		},
		DB: DBConfig{
			Path: "./data/aerosim.db",
		},
		Server: ServerConfig{
			Address: "localhost:1930",
		},
		Sim: SimConfig{
			Vehicle:   string(flight.KindLight),
			TickRate:  60,
			MaxStep:   Duration(100 * time.Millisecond),
			StartX:    Distance(-50),
			StartZ:    Distance(0),
			AutoReset: Duration(0),
		},
		World: WorldConfig{
			CellSize: Distance(100),
		},
		Vehicles: map[string]flight.Profile{
			string(flight.KindLight):    flight.LightProfile(),
			string(flight.KindAirliner): flight.AirlinerProfile(),
		},
	}
}

// Load reads the configuration at path on top of DefaultConfig. A missing file is created with the
// defaults; an existing one is never rewritten, so the user's comments survive. Unknown keys are
// errors. A vehicle entry in the file replaces the default profile of that name completely.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to save config file: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvVehicle); v != "" {
		cfg.Sim.Vehicle = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv(EnvServerAddress); v != "" {
		cfg.Server.Address = v
	}
}

// Validate checks the settings the simulation depends on, including every vehicle profile.
func (c *Config) Validate() error {
	if len(c.Vehicles) == 0 {
		return fmt.Errorf("%w: no vehicles defined", ErrInvalid)
	}
	for _, name := range c.VehicleNames() {
		p := c.Vehicles[name]
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: vehicle %q: %w", ErrInvalid, name, err)
		}
	}
	if _, ok := c.Vehicles[c.Sim.Vehicle]; !ok {
		return fmt.Errorf("%w: unknown vehicle %q (have %v)", ErrInvalid, c.Sim.Vehicle, c.VehicleNames())
	}
	if c.Sim.TickRate <= 0 {
		return fmt.Errorf("%w: tick_rate must be positive (got %d)", ErrInvalid, c.Sim.TickRate)
	}
	if step := time.Duration(c.Sim.MaxStep); step <= 0 || step > 100*time.Millisecond {
		return fmt.Errorf("%w: max_step must be in (0, 100ms] (got %v)", ErrInvalid, step)
	}
	if c.Sim.AutoReset < 0 {
		return fmt.Errorf("%w: auto_reset must not be negative", ErrInvalid)
	}
	if c.World.CellSize <= 0 {
		return fmt.Errorf("%w: cell_size must be positive (got %v)", ErrInvalid, float64(c.World.CellSize))
	}
	return nil
}

// VehicleNames returns the configured vehicle keys in sorted order.
func (c *Config) VehicleNames() []string {
	names := make([]string, 0, len(c.Vehicles))
	for name := range c.Vehicles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const fileHeader = `# aerosim configuration
#
# Units:
#   Duration: ns, us (or µs), ms, s, m, h, d; a bare number is seconds
#   Distance: m, km, nm (nautical miles), ft; a bare number is meters
# Environment overrides: AEROSIM_VEHICLE, AEROSIM_DB_PATH, AEROSIM_SERVER_ADDRESS

`

// keyNotes are comment lines inserted above every occurrence of a key in the saved file.
var keyNotes = []struct {
	re   *regexp.Regexp
	note string
}{
	{regexp.MustCompile(`(?m)^(\s+)vehicle:`), "One of the keys under vehicles"},
	{regexp.MustCompile(`(?m)^(\s+)kind:`), "light or airliner, selects the obstacle clearance radius"},
	{regexp.MustCompile(`(?m)^(\s+)auto_reset:`), "Respawn this long after a crash, 0 disables"},
}

// Save writes cfg to path with a header and key notes. The file is replaced atomically.
func Save(path string, cfg *Config) error {
	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	for _, k := range keyNotes {
		body = k.re.ReplaceAll(body, []byte("${1}# "+k.note+"\n$0"))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".aerosim-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(fileHeader); err == nil {
		_, err = tmp.Write(body)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// GenerateDefault writes the default configuration to path unless a file is already there.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return Save(path, DefaultConfig())
}
