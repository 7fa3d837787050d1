package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"signalops-sim/internal/config"
	"signalops-sim/internal/sim"
	"signalops-sim/internal/telemetry"
)

func noTerminal(t *testing.T) {
	t.Helper()
	prev := isTerminal
	isTerminal = func() bool { return false }
	t.Cleanup(func() { isTerminal = prev })
}

func TestNewWritersJSON(t *testing.T) {
	noTerminal(t)
	w, tui, cleanup, err := newWriters(nil, writerOptions{printOnly: true, json: true})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if tui {
		t.Fatalf("tui should be off")
	}
	if _, ok := w.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", w)
	}
}

func TestNewWritersGreptimeFallback(t *testing.T) {
	noTerminal(t)
	w, _, cleanup, err := newWriters(nil, writerOptions{greptime: config.GreptimeSettings{Endpoint: ""}})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*sim.ColorStdoutWriter); !ok {
		t.Fatalf("expected *sim.ColorStdoutWriter, got %T", w)
	}
}

func TestNewWritersLogFile(t *testing.T) {
	noTerminal(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "entities.jsonl")
	w, _, cleanup, err := newWriters(nil, writerOptions{json: true, logFile: path})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	if _, ok := w.(*sim.MultiWriter); !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", w)
	}
	if err := w.Write(telemetry.EntityRow{EntityID: "rx-112", Timestamp: time.Now()}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	ew, ok := w.(sim.EventWriter)
	if !ok {
		t.Fatalf("writer does not implement EventWriter")
	}
	if err := ew.WriteEvent(telemetry.EventRow{Seq: 1, Kind: "signal_traced", Timestamp: time.Now()}); err != nil {
		t.Fatalf("write event failed: %v", err)
	}
	cleanup()
	for _, p := range []string{path, path + ".events"} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if info.Size() == 0 {
			t.Fatalf("expected %s to be non-empty", p)
		}
	}
}
