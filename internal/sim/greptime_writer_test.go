package sim

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"

	"signalops-sim/internal/telemetry"
)

type mockGreptimeClient struct {
	tables []*table.Table
	err    error
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.tables = append(m.tables, tables...)
	return &gpb.GreptimeResponse{}, nil
}

func TestGreptimeWriterEntities(t *testing.T) {
	ts := time.Unix(0, 0).UTC()
	rows := []telemetry.EntityRow{
		{SessionID: "s1", EntityID: "rx-112", Kind: "TRAIN", MissionID: "m1", Lat: 48.2, Lon: 16.4, Progress: 0.5, Timestamp: ts},
		{SessionID: "s1", EntityID: "gh-404", Kind: "FLIGHT", MissionID: "m1", Timestamp: ts},
	}
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, entityTable: "entity_positions", log: slog.Default()}

	if err := w.WriteBatch(rows); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if len(m.tables) != 1 {
		t.Fatalf("tables written = %d, want 1", len(m.tables))
	}
	got := m.tables[0].GetRows()
	if len(got.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(got.Rows))
	}
	if id := got.Rows[0].Values[1].GetStringValue(); id != "rx-112" {
		t.Fatalf("entity_id = %s, want rx-112", id)
	}
	if lat := got.Rows[0].Values[5].GetF64Value(); lat != 48.2 {
		t.Fatalf("lat = %v, want 48.2", lat)
	}
}

func TestGreptimeWriterEffects(t *testing.T) {
	rows := []telemetry.EffectRow{{
		SessionID:   "s1",
		MissionID:   "m1",
		ObjectiveID: "trace-signal",
		State:       "COMPLETE",
		Activated:   []string{"lookup-ip", "find-train"},
		Timestamp:   time.Unix(10, 0).UTC(),
	}}
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, effectTable: "objective_effects", log: slog.Default()}

	if err := w.WriteEffects(rows); err != nil {
		t.Fatalf("WriteEffects: %v", err)
	}
	if len(m.tables) != 1 {
		t.Fatalf("expected table to be captured")
	}
	vals := m.tables[0].GetRows().Rows[0].Values
	if got := vals[2].GetStringValue(); got != "trace-signal" {
		t.Fatalf("objective_id = %s, want trace-signal", got)
	}
	if got := vals[5].GetStringValue(); got != "lookup-ip,find-train" {
		t.Fatalf("activated = %s", got)
	}
}

func TestGreptimeWriterSkipsEmptyBatches(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, log: slog.Default()}
	if err := w.WriteBatch(nil); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteEffects(nil); err != nil {
		t.Fatal(err)
	}
	if len(m.tables) != 0 {
		t.Fatalf("unexpected write of %d tables", len(m.tables))
	}
}

func TestGreptimeWriterReportsTableOnFailure(t *testing.T) {
	var buf bytes.Buffer
	unavailable := errors.New("unavailable")
	m := &mockGreptimeClient{err: unavailable}
	w := &GreptimeDBWriter{client: m, entityTable: "entity_positions", log: slog.New(slog.NewTextHandler(&buf, nil))}

	err := w.Write(telemetry.EntityRow{SessionID: "s1", EntityID: "rx-112", Timestamp: time.Unix(0, 0)})
	if !errors.Is(err, unavailable) {
		t.Fatalf("err = %v, want wrapped %v", err, unavailable)
	}
	if !strings.Contains(err.Error(), "entity_positions") {
		t.Fatalf("error %q does not name the table", err)
	}
	if !strings.Contains(buf.String(), "table=entity_positions") {
		t.Fatalf("log does not name the table: %s", buf.String())
	}
}
