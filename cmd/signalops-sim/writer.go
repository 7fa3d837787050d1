package main

import (
	"os"

	"golang.org/x/term"

	"signalops-sim/internal/config"
	"signalops-sim/internal/mission"
	"signalops-sim/internal/sim"
	"signalops-sim/internal/telemetry"
)

type writerOptions struct {
	printOnly bool
	json      bool
	logFile   string
	greptime  config.GreptimeSettings
}

// isTerminal reports whether STDOUT is attached to a terminal.
var isTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }

// newWriters sets up the output writers based on flags and runtime settings.
// It reports whether the TUI owns the terminal and returns a cleanup function
// to close any resources.
func newWriters(m *mission.Mission, opts writerOptions) (sim.EntityWriter, bool, func(), error) {
	writer, tui, err := baseWriter(m, opts)
	if err != nil {
		return nil, false, nil, err
	}
	cleanup := func() {}
	if c, ok := writer.(interface{ Close() error }); ok {
		cleanup = func() { _ = c.Close() }
	}
	if opts.logFile == "" {
		return writer, tui, cleanup, nil
	}

	fw, err := sim.NewFileWriter(opts.logFile, opts.logFile+".effects", opts.logFile+".events")
	if err != nil {
		cleanup()
		return nil, false, nil, err
	}
	effs := []sim.EffectWriter{fw}
	if ew, ok := writer.(sim.EffectWriter); ok {
		effs = append([]sim.EffectWriter{ew}, effs...)
	}
	evs := []sim.EventWriter{fw}
	if ew, ok := writer.(sim.EventWriter); ok {
		evs = append([]sim.EventWriter{ew}, evs...)
	}
	mw := sim.NewMultiWriter([]sim.EntityWriter{writer, fw}, effs, evs)
	base := cleanup
	return mw, tui, func() {
		base()
		fw.Close()
	}, nil
}

// baseWriter chooses GreptimeDB when an endpoint is configured, otherwise a
// STDOUT writer: the TUI on a terminal, JSON lines when asked, colored text
// when piped.
func baseWriter(m *mission.Mission, opts writerOptions) (sim.EntityWriter, bool, error) {
	if !opts.printOnly && opts.greptime.Endpoint != "" {
		if opts.greptime.EntityTable != "" {
			telemetry.EntityTableName = opts.greptime.EntityTable
		}
		if opts.greptime.EffectTable != "" {
			telemetry.EffectTableName = opts.greptime.EffectTable
		}
		w, err := sim.NewGreptimeDBWriter(opts.greptime.Endpoint, opts.greptime.Database)
		return w, false, err
	}
	switch {
	case opts.json:
		return sim.NewJSONStdoutWriter(), false, nil
	case isTerminal():
		return sim.NewTUIWriter(m), true, nil
	default:
		return sim.NewColorStdoutWriter(m), false, nil
	}
}
