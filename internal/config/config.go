// YAML world config loader with CUE validation integration
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"signalops-sim/internal/mission"
	"signalops-sim/internal/track"
)

// Location is a named map location players can select.
type Location struct {
	Name string  `yaml:"name" json:"name"`
	Lat  float64 `yaml:"lat" json:"lat"`
	Lon  float64 `yaml:"lon" json:"lon"`
}

// WorldConfig is the root configuration: world entities, mission sources and
// named locations.
type WorldConfig struct {
	Entities     []track.Definition `yaml:"entities"`
	Missions     []string           `yaml:"missions"`
	StartMission string             `yaml:"start_mission"`
	NoiseSeed    int64              `yaml:"noise_seed"`
	Locations    []Location         `yaml:"locations"`

	dir string
}

// Load loads YAML config and validates it against a CUE schema. An empty
// cueSchemaPath uses the built-in schema.
func Load(configPath, cueSchemaPath string) (*WorldConfig, error) {
	// Validate with CUE first
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg WorldConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.dir = filepath.Dir(configPath)
	for _, e := range cfg.Entities {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("config entities: %w", err)
		}
	}

	slog.Debug("loaded configuration", "path", configPath, "entities", len(cfg.Entities), "missions", len(cfg.Missions))

	return &cfg, nil
}

// Location looks up a named location.
func (c *WorldConfig) Location(name string) (Location, bool) {
	for _, l := range c.Locations {
		if l.Name == name {
			return l, true
		}
	}
	return Location{}, false
}

// LoadMissions returns the built-in missions plus every mission file listed
// in the config. Relative paths resolve against the config file's directory.
// A file mission replaces a built-in mission with the same id.
func (c *WorldConfig) LoadMissions() (map[string]*mission.Mission, error) {
	out := make(map[string]*mission.Mission)
	for id, m := range mission.BuiltIn() {
		out[id] = &m
	}
	for _, p := range c.Missions {
		if !filepath.IsAbs(p) && c.dir != "" {
			p = filepath.Join(c.dir, p)
		}
		m, err := mission.Load(p)
		if err != nil {
			return nil, err
		}
		out[m.ID] = m
	}
	return out, nil
}
