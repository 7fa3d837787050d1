package telemetry

import (
	"time"

	"signalops-sim/internal/eventbus"
	"signalops-sim/internal/objective"
	"signalops-sim/internal/track"
)

// Generator turns session state into output rows stamped with one session id.
type Generator struct {
	SessionID string
	now       func() time.Time
}

// NewGenerator creates a new row generator for a session.
func NewGenerator(sessionID string) *Generator {
	return &Generator{SessionID: sessionID, now: func() time.Time { return time.Now().UTC() }}
}

// EntityRows converts registry snapshots into position rows sharing one
// timestamp.
func (g *Generator) EntityRows(missionID string, snaps []track.Snapshot) []EntityRow {
	ts := g.now()
	rows := make([]EntityRow, len(snaps))
	for i, s := range snaps {
		rows[i] = EntityRow{
			SessionID: g.SessionID,
			EntityID:  s.ID,
			Kind:      string(s.Kind),
			MissionID: missionID,
			Status:    s.Status,
			Lat:       s.Position.Lat,
			Lon:       s.Position.Lon,
			X:         s.Projected.X,
			Y:         s.Projected.Y,
			Progress:  s.Progress,
			Timestamp: ts,
		}
	}
	return rows
}

// EffectRows converts the effects of one event into rows.
func (g *Generator) EffectRows(missionID string, at time.Time, effects []objective.Effect) []EffectRow {
	rows := make([]EffectRow, len(effects))
	for i, e := range effects {
		rows[i] = EffectRow{
			SessionID:   g.SessionID,
			MissionID:   missionID,
			ObjectiveID: e.ObjectiveID,
			State:       string(e.State),
			Message:     e.Message,
			Activated:   e.Activated,
			Unlocks:     e.Unlocks,
			Timestamp:   at.UTC(),
		}
	}
	return rows
}

// EventRow converts one handled event.
func (g *Generator) EventRow(missionID string, seq int, at time.Time, ev eventbus.Event, effects int, ignored bool) EventRow {
	return EventRow{
		SessionID: g.SessionID,
		MissionID: missionID,
		Seq:       seq,
		Kind:      ev.Kind,
		TargetID:  ev.TargetID,
		Effects:   effects,
		Ignored:   ignored,
		Timestamp: at.UTC(),
	}
}

// Event returns the bus event recorded in r.
func (r EventRow) Event() eventbus.Event {
	return eventbus.Event{Kind: r.Kind, TargetID: r.TargetID}
}
