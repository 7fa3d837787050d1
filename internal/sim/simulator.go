// Simulator driving the session clock and writing output rows
package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"signalops-sim/internal/eventbus"
	"signalops-sim/internal/session"
	"signalops-sim/internal/telemetry"
	"signalops-sim/internal/track"
)

// Simulator owns the host loop: it advances the session by measured wall
// clock time, samples entity positions and forwards session records to the
// writers.
type Simulator struct {
	ctrl         *session.Controller
	teleGen      *telemetry.Generator
	writer       EntityWriter
	effectWriter EffectWriter
	eventWriter  EventWriter
	checklist    ChecklistWriter
	tickInterval time.Duration
	timeScale    float64
	log          *slog.Logger

	mu    sync.Mutex
	now   func() time.Time
	last  time.Time
	ticks uint64
}

// NewSimulator wires a simulator to ctrl. writer receives entity rows; if it
// also implements EffectWriter, EventWriter, ChecklistWriter or EventSource it
// is used for those too.
func NewSimulator(ctrl *session.Controller, writer EntityWriter, tickInterval time.Duration) *Simulator {
	s := &Simulator{
		ctrl:         ctrl,
		teleGen:      telemetry.NewGenerator(ctrl.ID()),
		writer:       writer,
		tickInterval: tickInterval,
		timeScale:    1,
		log:          slog.Default(),
		now:          time.Now,
	}
	if ew, ok := writer.(EffectWriter); ok {
		s.effectWriter = ew
	}
	if ew, ok := writer.(EventWriter); ok {
		s.eventWriter = ew
	}
	if cw, ok := writer.(ChecklistWriter); ok {
		s.checklist = cw
	}
	if src, ok := writer.(EventSource); ok {
		src.SetEventSink(func(ev eventbus.Event) {
			if err := ctrl.Bus().Publish(context.Background(), ev); err != nil {
				s.log.Warn("publish from writer failed", "err", err)
			}
		})
	}
	ctrl.OnRecord(s.onRecord)
	return s
}

// SetLogger replaces the simulator logger.
func (s *Simulator) SetLogger(l *slog.Logger) { s.log = l }

// SetTimeScale multiplies measured wall clock deltas before they reach the
// session. Values <= 0 are ignored.
func (s *Simulator) SetTimeScale(f float64) {
	if f > 0 {
		s.mu.Lock()
		s.timeScale = f
		s.mu.Unlock()
	}
}

// Controller returns the session the simulator drives.
func (s *Simulator) Controller() *session.Controller { return s.ctrl }

// Ticks returns how many ticks have run.
func (s *Simulator) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Step advances the session by dt and writes one sample of every entity.
func (s *Simulator) Step(ctx context.Context, dt time.Duration) error {
	retired := s.ctrl.Advance(dt)
	for _, id := range retired {
		s.log.DebugContext(ctx, "entity retired", "entity_id", id)
	}
	missionID := ""
	if m := s.ctrl.Mission(); m != nil {
		missionID = m.ID
	}
	rows := s.teleGen.EntityRows(missionID, s.ctrl.Entities(track.Filter{}))
	if len(rows) == 0 {
		return nil
	}
	return writeRows(s.writer, rows)
}

// onRecord forwards a session record to the effect, event and checklist
// writers.
func (s *Simulator) onRecord(rec session.Record) {
	if s.eventWriter != nil {
		row := s.teleGen.EventRow(rec.MissionID, rec.Seq, rec.At, rec.Event, len(rec.Effects), rec.Ignored)
		if err := s.eventWriter.WriteEvent(row); err != nil {
			s.log.Error("write event", "err", err)
		}
	}
	if len(rec.Effects) == 0 {
		return
	}
	if s.effectWriter != nil {
		rows := s.teleGen.EffectRows(rec.MissionID, rec.At, rec.Effects)
		if err := writeEffects(s.effectWriter, rows); err != nil {
			s.log.Error("write effects", "err", err)
		}
	}
	if s.checklist != nil {
		s.PushChecklist()
	}
}

// PushChecklist sends the current checklist to the checklist writer, if any.
func (s *Simulator) PushChecklist() {
	if s.checklist == nil {
		return
	}
	items, err := s.ctrl.Checklist()
	if err != nil {
		return
	}
	lines := make([]ChecklistLine, len(items))
	for i, it := range items {
		lines[i] = ChecklistLine{ID: it.ID, Description: it.Description, Completed: it.Completed}
	}
	missionID := ""
	if m := s.ctrl.Mission(); m != nil {
		missionID = m.ID
	}
	if err := s.checklist.WriteChecklist(missionID, lines, s.ctrl.IsComplete()); err != nil {
		s.log.Error("write checklist", "err", err)
	}
}
