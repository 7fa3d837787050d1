package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return p
}

func TestLoadConfig_Valid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "world.yaml", `
noise_seed: 42
start_mission: ghost-flight
entities:
  - id: rx-200
    kind: TRAIN
    path: [[48.2, 16.4], [48.3, 16.1]]
    speed: 0.01
    phase_offset: 0.25
locations:
  - name: salzburg-tower
    lat: 47.79
    lon: 13.0
`)
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.NoiseSeed != 42 || cfg.StartMission != "ghost-flight" {
		t.Errorf("unexpected header: %+v", cfg)
	}
	if len(cfg.Entities) != 1 || cfg.Entities[0].PhaseOffset != 0.25 {
		t.Errorf("unexpected entities: %+v", cfg.Entities)
	}
	loc, ok := cfg.Location("salzburg-tower")
	if !ok || loc.Lat != 47.79 {
		t.Errorf("location lookup failed: %+v %v", loc, ok)
	}
	if _, ok := cfg.Location("nowhere"); ok {
		t.Errorf("unexpected location match")
	}
}

func TestLoadConfig_SchemaViolation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "world.yaml", `
entities:
  - id: sub-1
    kind: SUBMARINE
    path: [[0, 0]]
    speed: 1
`)
	if _, err := Load(path, ""); err == nil {
		t.Fatalf("expected schema validation error")
	}
}

func TestLoadConfig_InvalidEntity(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "world.yaml", `
entities:
  - id: nowhere
    kind: FLIGHT
    path: []
    speed: 1
`)
	if _, err := Load(path, ""); err == nil {
		t.Fatalf("expected invalid entity error")
	}
}

func TestLoadConfig_CustomSchema(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "strict.cue", "start_mission: \"first-contact\"\n")
	path := writeFile(t, dir, "world.yaml", "start_mission: ghost-flight\n")
	if _, err := Load(path, schema); err == nil {
		t.Fatalf("expected custom schema to reject start_mission")
	}
	if _, err := Load(path, filepath.Join(dir, "missing.cue")); err == nil {
		t.Fatalf("expected error for missing schema file")
	}
}

func TestLoadMissions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "extra.yaml", `
id: extra
title: Extra
objectives:
  - id: only
    trigger: {event: signal_traced, target: 10.0.0.1}
`)
	path := writeFile(t, dir, "world.yaml", "missions: [extra.yaml]\n")
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	missions, err := cfg.LoadMissions()
	if err != nil {
		t.Fatalf("LoadMissions() returned error: %v", err)
	}
	for _, id := range []string{"extra", "first-contact", "ghost-flight", "storm-chaser"} {
		if _, ok := missions[id]; !ok {
			t.Errorf("mission %s missing", id)
		}
	}
}

func TestLoadRuntime_DefaultsAndOverrides(t *testing.T) {
	rt, err := LoadRuntime("")
	if err != nil {
		t.Fatalf("LoadRuntime() returned error: %v", err)
	}
	if rt.Tick != time.Second || rt.LogLevel != "info" || rt.Greptime.Endpoint != "" {
		t.Errorf("unexpected defaults: %+v", rt)
	}

	dir := t.TempDir()
	path := writeFile(t, dir, "runtime.yaml", "tick: 250ms\ngreptime:\n  endpoint: localhost:4001\n")
	t.Setenv("SIGNALOPS_LOG_LEVEL", "debug")
	rt, err = LoadRuntime(path)
	if err != nil {
		t.Fatalf("LoadRuntime() returned error: %v", err)
	}
	if rt.Tick != 250*time.Millisecond {
		t.Errorf("tick = %v", rt.Tick)
	}
	if rt.LogLevel != "debug" {
		t.Errorf("log level = %s", rt.LogLevel)
	}
	if rt.Greptime.Endpoint != "localhost:4001" || rt.Greptime.EntityTable != "entity_positions" {
		t.Errorf("greptime = %+v", rt.Greptime)
	}
}

func TestLoadRuntime_RejectsNonPositiveTick(t *testing.T) {
	t.Setenv("SIGNALOPS_TICK", "0s")
	if _, err := LoadRuntime(""); err == nil {
		t.Fatalf("expected error for zero tick")
	}
}
