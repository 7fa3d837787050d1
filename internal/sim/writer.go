package sim

import (
	"signalops-sim/internal/eventbus"
	"signalops-sim/internal/telemetry"
)

// EntityWriter is an interface to support different output writers.
type EntityWriter interface {
	Write(telemetry.EntityRow) error
}

// Optional: Writers can also support batch mode
type batchWriter interface {
	WriteBatch([]telemetry.EntityRow) error
}

// EffectWriter handles objective transitions.
type EffectWriter interface {
	WriteEffect(telemetry.EffectRow) error
}

// Optional: Effect writers may support batch mode.
type batchEffectWriter interface {
	WriteEffects([]telemetry.EffectRow) error
}

// EventWriter handles the journal of player events.
type EventWriter interface {
	WriteEvent(telemetry.EventRow) error
}

// AdminStatusWriter allows writers to receive admin UI status updates.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}

// EventSource is implemented by writers that also accept player input, such
// as the TUI command line. The simulator hands them a function that publishes
// onto the session bus.
type EventSource interface {
	SetEventSink(func(eventbus.Event))
}

// ChecklistWriter receives the checklist after every change.
type ChecklistWriter interface {
	WriteChecklist(missionID string, items []ChecklistLine, complete bool) error
}

// ChecklistLine is a checklist entry as shown by writers.
type ChecklistLine struct {
	ID          string
	Description string
	Completed   bool
}

func writeRows(w EntityWriter, rows []telemetry.EntityRow) error {
	if bw, ok := w.(batchWriter); ok {
		return bw.WriteBatch(rows)
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func writeEffects(w EffectWriter, rows []telemetry.EffectRow) error {
	if bw, ok := w.(batchEffectWriter); ok {
		return bw.WriteEffects(rows)
	}
	for _, r := range rows {
		if err := w.WriteEffect(r); err != nil {
			return err
		}
	}
	return nil
}
