// Output rows with greptime tags
package telemetry

import (
	"os"
	"time"
)

// EntityRow is one entity position sample for GreptimeDB.
type EntityRow struct {
	SessionID string    `json:"session_id"` // TAG
	EntityID  string    `json:"entity_id"`  // TAG
	Kind      string    `json:"kind"`       // TAG
	MissionID string    `json:"mission_id"` // FIELD
	Status    string    `json:"status"`     // FIELD
	Lat       float64   `json:"lat"`        // FIELD
	Lon       float64   `json:"lon"`        // FIELD
	X         float64   `json:"x"`          // FIELD, EPSG:3857
	Y         float64   `json:"y"`          // FIELD, EPSG:3857
	Progress  float64   `json:"progress"`   // FIELD
	Timestamp time.Time `json:"ts"`         // TIME INDEX
}

// EffectRow records one objective transition.
type EffectRow struct {
	SessionID   string    `json:"session_id"`   // TAG
	MissionID   string    `json:"mission_id"`   // TAG
	ObjectiveID string    `json:"objective_id"` // TAG
	State       string    `json:"state"`        // FIELD
	Message     string    `json:"message"`      // FIELD
	Activated   []string  `json:"activated,omitempty"`
	Unlocks     []string  `json:"unlocks,omitempty"`
	Timestamp   time.Time `json:"ts"` // TIME INDEX
}

// EventRow records one handled player event. The events file is a sequence
// of EventRows and is what the replay command reads.
type EventRow struct {
	SessionID string    `json:"session_id"`
	MissionID string    `json:"mission_id"`
	Seq       int       `json:"seq"`
	Kind      string    `json:"kind"`
	TargetID  string    `json:"target_id"`
	Effects   int       `json:"effects"`
	Ignored   bool      `json:"ignored,omitempty"`
	Timestamp time.Time `json:"ts"`
}

func envOr(key, def string) string {
	if env := os.Getenv(key); env != "" {
		return env
	}
	return def
}

// EntityTableName and EffectTableName hold the GreptimeDB table names. They
// default to "entity_positions" and "objective_effects" and can be overridden
// through SIGNALOPS_GREPTIME_ENTITY_TABLE / SIGNALOPS_GREPTIME_EFFECT_TABLE or
// by assignment before the writer is created.
var (
	EntityTableName = envOr("SIGNALOPS_GREPTIME_ENTITY_TABLE", "entity_positions")
	EffectTableName = envOr("SIGNALOPS_GREPTIME_EFFECT_TABLE", "objective_effects")
)

func (EntityRow) TableName() string { return EntityTableName }

func (EffectRow) TableName() string { return EffectTableName }
