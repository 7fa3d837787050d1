package sim

import (
	"signalops-sim/internal/eventbus"
	"signalops-sim/internal/telemetry"
)

// MultiWriter fans rows out to multiple writers.
type MultiWriter struct {
	entityWriters []EntityWriter
	effectWriters []EffectWriter
	eventWriters  []EventWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ews []EntityWriter, effs []EffectWriter, evs []EventWriter) *MultiWriter {
	return &MultiWriter{entityWriters: ews, effectWriters: effs, eventWriters: evs}
}

// Write sends an entity row to all writers.
func (mw *MultiWriter) Write(row telemetry.EntityRow) error {
	for _, w := range mw.entityWriters {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple entity rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.EntityRow) error {
	for _, w := range mw.entityWriters {
		if err := writeRows(w, rows); err != nil {
			return err
		}
	}
	return nil
}

// WriteEffect sends an effect row to all effect writers.
func (mw *MultiWriter) WriteEffect(row telemetry.EffectRow) error {
	for _, w := range mw.effectWriters {
		if err := w.WriteEffect(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteEffects sends effect rows to all effect writers, using batch if supported.
func (mw *MultiWriter) WriteEffects(rows []telemetry.EffectRow) error {
	for _, w := range mw.effectWriters {
		if err := writeEffects(w, rows); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent sends a journal row to all event writers.
func (mw *MultiWriter) WriteEvent(row telemetry.EventRow) error {
	for _, w := range mw.eventWriters {
		if err := w.WriteEvent(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteChecklist forwards the checklist to every entity writer that shows it.
func (mw *MultiWriter) WriteChecklist(missionID string, items []ChecklistLine, complete bool) error {
	for _, w := range mw.entityWriters {
		if cw, ok := w.(ChecklistWriter); ok {
			if err := cw.WriteChecklist(missionID, items, complete); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetEventSink passes sink to every wrapped writer that accepts input.
func (mw *MultiWriter) SetEventSink(sink func(eventbus.Event)) {
	for _, w := range mw.entityWriters {
		if src, ok := w.(EventSource); ok {
			src.SetEventSink(sink)
		}
	}
}

// SetAdminStatus forwards admin UI status to writers that display it.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.entityWriters {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}
