// Package mission holds mission template data: objectives, checklist labels,
// gated documents and mission-scoped entities. Missions are read-only once
// loaded; runtime state lives in the objective engine.
package mission

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"signalops-sim/internal/objective"
	"signalops-sim/internal/track"
)

// ErrInvalidDefinition is returned for malformed mission content. It is the
// same value as objective.ErrInvalidDefinition.
var ErrInvalidDefinition = objective.ErrInvalidDefinition

// Mission is a single scripted mission.
type Mission struct {
	ID         string                `yaml:"id" json:"id"`
	Title      string                `yaml:"title" json:"title"`
	Difficulty string                `yaml:"difficulty,omitempty" json:"difficulty,omitempty"`
	Reward     int                   `yaml:"reward,omitempty" json:"reward,omitempty"`
	Briefing   string                `yaml:"briefing,omitempty" json:"briefing,omitempty"`
	Objectives []objective.Objective `yaml:"objectives" json:"objectives"`
	Checklist  map[string]string     `yaml:"checklist,omitempty" json:"checklist,omitempty"`
	Documents  []Document            `yaml:"documents,omitempty" json:"documents,omitempty"`
	Entities   []track.Definition    `yaml:"entities,omitempty" json:"entities,omitempty"`
	// Modules carries per-module supplementary data (terminal, satellite
	// view, ...) that is passed through untouched.
	Modules map[string]any `yaml:"modules,omitempty" json:"modules,omitempty"`
}

// Document is static narrative content that may be gated.
type Document struct {
	ID           string `yaml:"id" json:"id"`
	Title        string `yaml:"title" json:"title"`
	Body         string `yaml:"body,omitempty" json:"body,omitempty"`
	Requires     string `yaml:"requires,omitempty" json:"requires,omitempty"`
	AfterMission bool   `yaml:"after_mission,omitempty" json:"after_mission,omitempty"`
}

// Load reads and validates a YAML mission definition from disk.
func Load(path string) (*Mission, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mission: %w", err)
	}
	return Parse(filepath.Base(path), b)
}

// Parse validates data against the mission schema, decodes it and checks the
// objective graph. name is only used in error messages.
func Parse(name string, data []byte) (*Mission, error) {
	if err := validateSchema(name, data); err != nil {
		return nil, err
	}
	var m Mission
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mission: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks everything that the schema cannot: the objective graph,
// document references and mission entities.
func (m *Mission) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: mission id is empty", ErrInvalidDefinition)
	}
	if _, err := m.NewEngine(); err != nil {
		return fmt.Errorf("mission %s: %w", m.ID, err)
	}

	docs := make(map[string]bool, len(m.Documents))
	for _, d := range m.Documents {
		if d.ID == "" || docs[d.ID] {
			return fmt.Errorf("%w: mission %s has an empty or duplicate document id %q", ErrInvalidDefinition, m.ID, d.ID)
		}
		docs[d.ID] = true
		if d.Requires != "" && !m.hasObjective(d.Requires) {
			return fmt.Errorf("%w: document %s requires unknown objective %s", ErrInvalidDefinition, d.ID, d.Requires)
		}
	}
	for _, o := range m.Objectives {
		for _, u := range o.OnComplete.Unlocks {
			if !docs[u] {
				return fmt.Errorf("%w: objective %s unlocks unknown document %s", ErrInvalidDefinition, o.ID, u)
			}
		}
	}

	ids := make(map[string]bool, len(m.Entities))
	for _, e := range m.Entities {
		if e.ID != "" {
			if ids[e.ID] {
				return fmt.Errorf("%w: mission %s declares entity %s twice", ErrInvalidDefinition, m.ID, e.ID)
			}
			ids[e.ID] = true
		}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("%w: mission %s: %w", ErrInvalidDefinition, m.ID, err)
		}
	}
	return nil
}

// NewEngine instantiates a fresh objective engine for the mission.
func (m *Mission) NewEngine() (*objective.Engine, error) {
	return objective.New(m.Objectives, m.Checklist)
}

func (m *Mission) hasObjective(id string) bool {
	for _, o := range m.Objectives {
		if o.ID == id {
			return true
		}
	}
	return false
}
