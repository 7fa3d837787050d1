package sim

import (
	"testing"

	"signalops-sim/internal/eventbus"
	"signalops-sim/internal/telemetry"
)

type plainWriter struct{ n int }

func (p *plainWriter) Write(telemetry.EntityRow) error { p.n++; return nil }

type adminWriter struct {
	plainWriter
	listening bool
}

func (a *adminWriter) SetAdminStatus(l bool) { a.listening = l }

func TestMultiWriterFansOut(t *testing.T) {
	a, b := &plainWriter{}, &MockWriter{}
	mw := NewMultiWriter([]EntityWriter{a, b}, []EffectWriter{b}, []EventWriter{b})
	if err := mw.WriteBatch([]telemetry.EntityRow{{EntityID: "x"}, {EntityID: "y"}}); err != nil {
		t.Fatal(err)
	}
	if a.n != 2 || len(b.Rows) != 2 {
		t.Fatalf("rows not fanned out: %d / %d", a.n, len(b.Rows))
	}
	if err := mw.WriteEffects([]telemetry.EffectRow{{ObjectiveID: "o"}}); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteEvent(telemetry.EventRow{Seq: 1}); err != nil {
		t.Fatal(err)
	}
	if len(b.Effects) != 1 || len(b.Events) != 1 {
		t.Fatalf("effects/events not forwarded: %+v", b)
	}
}

func TestMultiWriterSetEventSink(t *testing.T) {
	s := &MockWriter{}
	mw := NewMultiWriter([]EntityWriter{&plainWriter{}, s}, nil, nil)
	mw.SetEventSink(func(eventbus.Event) {})
	if s.sink == nil {
		t.Fatalf("event sink not forwarded")
	}
}

func TestMultiWriterSetAdminStatus(t *testing.T) {
	a := &adminWriter{}
	mw := NewMultiWriter([]EntityWriter{a}, nil, nil)
	mw.SetAdminStatus(true)
	if !a.listening {
		t.Fatalf("admin status not forwarded")
	}
}

func TestMultiWriterWriteChecklist(t *testing.T) {
	s := &MockWriter{}
	mw := NewMultiWriter([]EntityWriter{&plainWriter{}, s}, nil, nil)
	if err := mw.WriteChecklist("m", []ChecklistLine{{ID: "a", Completed: true}}, true); err != nil {
		t.Fatal(err)
	}
	if len(s.Checklist) != 1 || !s.Complete {
		t.Fatalf("checklist not forwarded: %+v", s.Checklist)
	}
}
